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

package workflow

// Transition moves the marking forward once its Condition is fulfilled. It
// is armed only when every predecessor state is marked and has completed
// its operations. A transition without successors ends the run.
type Transition struct {
	Id        string
	Condition Condition
	// Next lists the ids of the successor states.
	Next []string

	predecessors []string
}

func NewTransition(id string, condition Condition, next ...string) *Transition {
	return &Transition{
		Id:        id,
		Condition: condition,
		Next:      next,
	}
}

// Predecessors lists the states that name this transition as a successor,
// in the order the states were given to NewNet.
func (t *Transition) Predecessors() []string {
	out := make([]string, len(t.predecessors))
	copy(out, t.predecessors)
	return out
}

// IsFinal reports whether firing t ends the run.
func (t *Transition) IsFinal() bool {
	return len(t.Next) == 0
}
