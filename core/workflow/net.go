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

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrDuplicateId   = errors.New("duplicate id")
	ErrUnknownId     = errors.New("unknown id")
	ErrNoInitial     = errors.New("initial transition not found")
	ErrNoCondition   = errors.New("transition has no condition")
	ErrEmptyId       = errors.New("empty id")
	ErrNilDefinition = errors.New("nil state or transition")
)

// Net is the validated, immutable graph of a recipe.
type Net struct {
	states      map[string]*State
	transitions map[string]*Transition

	stateOrder      []string
	transitionOrder []string
	initial         string
}

// NewNet resolves every id reference and derives the predecessors of each
// transition. All structural problems are reported together.
func NewNet(states []*State, transitions []*Transition, initialTransitionId string) (*Net, error) {
	var merr *multierror.Error
	n := &Net{
		states:      make(map[string]*State, len(states)),
		transitions: make(map[string]*Transition, len(transitions)),
		initial:     initialTransitionId,
	}

	for i, s := range states {
		switch {
		case s == nil:
			merr = multierror.Append(merr, fmt.Errorf("state #%d: %w", i, ErrNilDefinition))
			continue
		case s.Id == "":
			merr = multierror.Append(merr, fmt.Errorf("state #%d: %w", i, ErrEmptyId))
			continue
		}
		if _, ok := n.states[s.Id]; ok {
			merr = multierror.Append(merr, fmt.Errorf("state %s: %w", s.Id, ErrDuplicateId))
			continue
		}
		n.states[s.Id] = s
		n.stateOrder = append(n.stateOrder, s.Id)
	}

	for i, t := range transitions {
		switch {
		case t == nil:
			merr = multierror.Append(merr, fmt.Errorf("transition #%d: %w", i, ErrNilDefinition))
			continue
		case t.Id == "":
			merr = multierror.Append(merr, fmt.Errorf("transition #%d: %w", i, ErrEmptyId))
			continue
		}
		if _, ok := n.transitions[t.Id]; ok {
			merr = multierror.Append(merr, fmt.Errorf("transition %s: %w", t.Id, ErrDuplicateId))
			continue
		}
		if t.Condition == nil {
			merr = multierror.Append(merr, fmt.Errorf("transition %s: %w", t.Id, ErrNoCondition))
		}
		own := *t
		own.predecessors = nil
		n.transitions[t.Id] = &own
		n.transitionOrder = append(n.transitionOrder, t.Id)
	}

	for _, sid := range n.stateOrder {
		for _, tid := range n.states[sid].Next {
			t, ok := n.transitions[tid]
			if !ok {
				merr = multierror.Append(merr, fmt.Errorf("state %s: successor transition %s: %w", sid, tid, ErrUnknownId))
				continue
			}
			if !contains(t.predecessors, sid) {
				t.predecessors = append(t.predecessors, sid)
			}
		}
	}
	for _, tid := range n.transitionOrder {
		for _, sid := range n.transitions[tid].Next {
			if _, ok := n.states[sid]; !ok {
				merr = multierror.Append(merr, fmt.Errorf("transition %s: successor state %s: %w", tid, sid, ErrUnknownId))
			}
		}
	}

	if _, ok := n.transitions[initialTransitionId]; !ok {
		merr = multierror.Append(merr, fmt.Errorf("%w: %q", ErrNoInitial, initialTransitionId))
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Net) State(id string) (*State, bool) {
	s, ok := n.states[id]
	return s, ok
}

func (n *Net) Transition(id string) (*Transition, bool) {
	t, ok := n.transitions[id]
	return t, ok
}

// States returns the states in definition order.
func (n *Net) States() []*State {
	out := make([]*State, 0, len(n.stateOrder))
	for _, id := range n.stateOrder {
		out = append(out, n.states[id])
	}
	return out
}

// Transitions returns the transitions in definition order.
func (n *Net) Transitions() []*Transition {
	out := make([]*Transition, 0, len(n.transitionOrder))
	for _, id := range n.transitionOrder {
		out = append(out, n.transitions[id])
	}
	return out
}

func (n *Net) Initial() *Transition {
	return n.transitions[n.initial]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
