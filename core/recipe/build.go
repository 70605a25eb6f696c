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
	"fmt"

	"github.com/AliceO2Group/ProcessControl/core/workflow"
	"github.com/hashicorp/go-multierror"
)

// Build instantiates the operations and conditions of r against env and
// returns the validated net. Every problem found is reported.
func (r *Recipe) Build(env Env) (*workflow.Net, error) {
	var merr *multierror.Error

	states := make([]*workflow.State, 0, len(r.States))
	for _, spec := range r.States {
		ops := make([]workflow.Operation, 0, len(spec.Operations))
		for i, opSpec := range spec.Operations {
			op, err := newOperation(opSpec, env)
			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("state %s, operation #%d: %w", spec.Id, i, err))
				continue
			}
			ops = append(ops, op)
		}
		states = append(states, workflow.NewState(spec.Id, spec.Next, ops...))
	}

	transitions := make([]*workflow.Transition, 0, len(r.Transitions))
	for _, spec := range r.Transitions {
		cond, err := newCondition(spec.Condition, env)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("transition %s: %w", spec.Id, err))
		}
		transitions = append(transitions, workflow.NewTransition(spec.Id, cond, spec.Next...))
	}

	net, err := workflow.NewNet(states, transitions, r.Initial)
	if err != nil {
		merr = multierror.Append(merr, err)
	}
	if err = merr.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("recipe %s: %w", r.Name, err)
	}
	return net, nil
}
