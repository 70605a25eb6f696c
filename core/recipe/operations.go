/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/AliceO2Group/ProcessControl/core/workflow"
)

var ErrCommandRejected = errors.New("command not enabled")

func init() {
	RegisterOperation("command", newCommandOperation)
	RegisterOperation("procedure", newProcedureOperation)
	RegisterOperation("wait", newWaitOperation)
	RegisterOperation("await", newAwaitOperation)
}

func lookupService(name string, env Env) (*service.Service, error) {
	if name == "" {
		return nil, errors.New("no service given")
	}
	if env.Services == nil {
		return nil, fmt.Errorf("%w: %s", service.ErrServiceNotFound, name)
	}
	return env.Services.Get(name)
}

// newCommandOperation delivers a command to a service. It fails if the
// service does not accept the command in its current state.
func newCommandOperation(spec OperationSpec, env Env) (workflow.Operation, error) {
	svc, err := lookupService(spec.Service, env)
	if err != nil {
		return nil, err
	}
	cmd, err := sm.ParseCommand(spec.Command)
	if err != nil {
		return nil, err
	}
	return workflow.OperationFunc(func(ctx context.Context) error {
		accepted, settled, err := svc.Deliver(ctx, cmd)
		if err != nil {
			return err
		}
		if !accepted {
			return fmt.Errorf("%w: %s on %s in %s", ErrCommandRejected, cmd, svc.Name(), settled)
		}
		return nil
	}), nil
}

// newProcedureOperation sets the requested procedure of a service.
func newProcedureOperation(spec OperationSpec, env Env) (workflow.Operation, error) {
	svc, err := lookupService(spec.Service, env)
	if err != nil {
		return nil, err
	}
	if spec.Procedure < 0 {
		return nil, fmt.Errorf("invalid procedure %d", spec.Procedure)
	}
	procedure := spec.Procedure
	return workflow.OperationFunc(func(context.Context) error {
		svc.SetProcedureReq(procedure)
		return nil
	}), nil
}

func newWaitOperation(spec OperationSpec, _ Env) (workflow.Operation, error) {
	if spec.Duration <= 0 {
		return nil, errors.New("wait needs a positive duration")
	}
	d := spec.Duration
	return workflow.OperationFunc(func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}), nil
}

// newAwaitOperation blocks until a service reaches a state.
func newAwaitOperation(spec OperationSpec, env Env) (workflow.Operation, error) {
	svc, err := lookupService(spec.Service, env)
	if err != nil {
		return nil, err
	}
	target, err := parseState(spec.State)
	if err != nil {
		return nil, err
	}
	return workflow.OperationFunc(func(ctx context.Context) error {
		reached := make(chan struct{}, 1)
		cancel := svc.Subscribe(func(e *event.ServiceStateChangedEvent) {
			if e.State == target.String() {
				select {
				case reached <- struct{}{}:
				default:
				}
			}
		})
		defer cancel()

		if svc.State() == target {
			return nil
		}
		select {
		case <-reached:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%s did not reach %s: %w", svc.Name(), target, ctx.Err())
		}
	}), nil
}

var ErrTransitionalState = errors.New("state is never settled in")

// parseState accepts the stable states only: a service passes through
// transitional states within a single command and is never observed in them.
func parseState(name string) (sm.State, error) {
	s := sm.StateFromString(name)
	if s == sm.UNDEFINED {
		return s, fmt.Errorf("unknown state %q", name)
	}
	if !s.IsStable() {
		return s, fmt.Errorf("%w: %s", ErrTransitionalState, s)
	}
	return s, nil
}

// decorate applies the options every operation kind accepts.
func decorate(op workflow.Operation, spec OperationSpec) workflow.Operation {
	if spec.Timeout > 0 {
		inner, timeout := op, spec.Timeout
		op = workflow.OperationFunc(func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return inner.Execute(ctx)
		})
	}
	if spec.Optional {
		inner := op
		op = workflow.OperationFunc(func(ctx context.Context) error {
			if err := inner.Execute(ctx); err != nil {
				log.WithError(err).
					WithField("kind", spec.Kind).
					WithField("service", spec.Service).
					Warn("optional operation failed")
			}
			return nil
		})
	}
	return op
}
