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
	"errors"
	"fmt"
	"sync"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/AliceO2Group/ProcessControl/core/workflow"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

func init() {
	RegisterCondition("always", func(ConditionSpec, Env) (workflow.Condition, error) {
		return workflow.Always(), nil
	})
	RegisterCondition("state", newStateCondition)
	RegisterCondition("expr", newExprCondition)
}

// subscription is the Listen/Unlisten half shared by conditions that
// observe services.
type subscription struct {
	mu     sync.Mutex
	cancel func()
}

func (s *subscription) replace(cancel func()) {
	s.mu.Lock()
	previous := s.cancel
	s.cancel = cancel
	s.mu.Unlock()
	if previous != nil {
		previous()
	}
}

func (s *subscription) Unlisten() {
	s.replace(nil)
}

// stateCondition holds while a service is in a given state.
type stateCondition struct {
	subscription
	svc    *service.Service
	target sm.State
}

func newStateCondition(spec ConditionSpec, env Env) (workflow.Condition, error) {
	svc, err := lookupService(spec.Service, env)
	if err != nil {
		return nil, err
	}
	target, err := parseState(spec.State)
	if err != nil {
		return nil, err
	}
	return &stateCondition{svc: svc, target: target}, nil
}

func (c *stateCondition) Fulfilled() bool {
	return c.svc.State() == c.target
}

func (c *stateCondition) Listen(fn func(bool)) error {
	target := c.target.String()
	c.replace(c.svc.Subscribe(func(e *event.ServiceStateChangedEvent) {
		fn(e.State == target)
	}))
	return nil
}

// exprCondition holds while a boolean expression over the services of the
// process is true. The expression sees two maps keyed by service name:
// states (state names) and procedures (current procedure ids), e.g.
//
//	states["reactor"] == "COMPLETED" && procedures["reactor"] == 2
type exprCondition struct {
	subscription
	services *service.Manager
	program  *vm.Program
	source   string
}

func exprEnvironment(services *service.Manager) map[string]interface{} {
	return map[string]interface{}{
		"states":     services.States(),
		"procedures": services.Procedures(),
	}
}

func newExprCondition(spec ConditionSpec, env Env) (workflow.Condition, error) {
	if spec.Expression == "" {
		return nil, errors.New("no expression given")
	}
	if env.Services == nil {
		return nil, errors.New("no services to evaluate against")
	}
	program, err := expr.Compile(spec.Expression,
		expr.Env(exprEnvironment(env.Services)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", spec.Expression, err)
	}
	return &exprCondition{services: env.Services, program: program, source: spec.Expression}, nil
}

func (c *exprCondition) Fulfilled() bool {
	out, err := expr.Run(c.program, exprEnvironment(c.services))
	if err != nil {
		log.WithError(err).
			WithField("expression", c.source).
			Warn("cannot evaluate condition")
		return false
	}
	fulfilled, _ := out.(bool)
	return fulfilled
}

func (c *exprCondition) Listen(fn func(bool)) error {
	c.replace(c.services.Subscribe(func(*event.ServiceStateChangedEvent) {
		fn(c.Fulfilled())
	}))
	return nil
}
