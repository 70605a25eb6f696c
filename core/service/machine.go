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

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/looplab/fsm"
)

var (
	ErrNotInitialized = errors.New("state machine not initialized")
	ErrAlreadyStarted = errors.New("state machine already started")
	ErrUnknownCommand = errors.New("unknown command")
)

// Machine is the lifecycle automaton of one service. It is a synchronous
// function of (current state, command, guard results): delivering a command
// runs the entry hooks of every state it passes through and returns once a
// stable state is reached.
//
// Machine does not lock; callers deliver commands one at a time.
type Machine struct {
	fsm     *fsm.FSM
	initial sm.State

	guards           Guards
	actions          Actions
	procedureOptions ProcedureOptions

	procedureReq int
	procedureCur int
}

type MachineOption func(*Machine)

// WithInitialState chooses the state entered by Start. The default is
// STARTING, which settles in EXECUTE with default guards.
func WithInitialState(s sm.State) MachineOption {
	return func(m *Machine) {
		if s != sm.UNDEFINED {
			m.initial = s
		}
	}
}

func WithGuards(g Guards) MachineOption {
	return func(m *Machine) {
		m.guards.merge(g)
	}
}

func WithActions(a Actions) MachineOption {
	return func(m *Machine) {
		m.actions.merge(a)
	}
}

func WithProcedureOptions(p ProcedureOptions) MachineOption {
	return func(m *Machine) {
		m.procedureOptions = p
	}
}

func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		initial: sm.STARTING,
		guards:  DefaultGuards(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) newFSM() *fsm.FSM {
	rows := sm.Table()
	events := make(fsm.Events, 0, len(rows))
	for _, r := range rows {
		events = append(events, fsm.EventDesc{
			Name: r.Event.String(),
			Src:  []string{r.From.String()},
			Dst:  r.To.String(),
		})
	}

	return fsm.NewFSM(
		m.initial.String(),
		events,
		fsm.Callbacks{
			"before_event": func(_ context.Context, e *fsm.Event) {
				row, ok := sm.Lookup(sm.StateFromString(e.Src), sm.Command(e.Event))
				if ok && !m.guardAllows(row.Guard) {
					e.Cancel()
				}
			},
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				m.enter(ctx, sm.StateFromString(e.Dst))
			},
		},
	)
}

// Start enters the initial state, runs its entry hook and settles.
func (m *Machine) Start(ctx context.Context) error {
	if m.fsm != nil {
		return ErrAlreadyStarted
	}
	m.fsm = m.newFSM()
	m.enter(ctx, m.initial)
	return m.settle(ctx)
}

func (m *Machine) IsStarted() bool {
	return m.fsm != nil
}

// TriggerEvent delivers one command and reports whether it was accepted,
// i.e. whether a transition was taken. Commands that are undefined in the
// current state or rejected by a guard are no-ops.
func (m *Machine) TriggerEvent(ctx context.Context, cmd sm.Command) (changed bool, err error) {
	if m.fsm == nil {
		return false, ErrNotInitialized
	}
	if !cmd.IsValid() {
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	changed, err = m.fire(ctx, cmd)
	if err != nil || !changed {
		return
	}
	return true, m.settle(ctx)
}

// CommandEnabled evaluates every command against the table and the guards
// without changing state. Before Start it returns an empty map.
func (m *Machine) CommandEnabled() map[sm.Command]bool {
	enabled := make(map[sm.Command]bool)
	if m.fsm == nil {
		return enabled
	}
	current := m.State()
	for _, cmd := range sm.Commands() {
		row, ok := sm.Lookup(current, cmd)
		enabled[cmd] = ok && m.guardAllows(row.Guard)
	}
	return enabled
}

// State returns the current leaf state, UNDEFINED before Start.
func (m *Machine) State() sm.State {
	if m.fsm == nil {
		return sm.UNDEFINED
	}
	return sm.StateFromString(m.fsm.Current())
}

func (m *Machine) SetProcedureReq(id int) {
	m.procedureReq = id
}

func (m *Machine) ProcedureReq() int {
	return m.procedureReq
}

// ProcedureCur is frozen from ProcedureReq on each entry to STARTING.
func (m *Machine) ProcedureCur() int {
	return m.procedureCur
}

// Reconfigure swaps guards and entry hooks without touching the current
// state. nil fields keep what is currently installed.
func (m *Machine) Reconfigure(guards Guards, actions Actions) {
	m.guards.merge(guards)
	m.actions.merge(actions)
}

func (m *Machine) SetProcedureOptions(p ProcedureOptions) {
	m.procedureOptions = p
}

func (m *Machine) guardAllows(name sm.Guard) bool {
	if name == sm.NoGuard {
		return true
	}
	g := m.guards.lookup(name)
	return g != nil && g()
}

func (m *Machine) enter(ctx context.Context, s sm.State) {
	switch s {
	case sm.STARTING:
		m.procedureCur = m.procedureReq
	case sm.RESETTING:
		if m.procedureOptions.ResetCurOnResetting {
			m.procedureCur = 0
		}
		if m.procedureOptions.ResetReqOnResetting {
			m.procedureReq = 0
		}
	}
	if action := m.actions.forState(s); action != nil {
		action(ctx, s)
	}
}

// fire delivers one event to the underlying fsm and folds its "nothing
// happened" errors into changed == false.
func (m *Machine) fire(ctx context.Context, cmd sm.Command) (bool, error) {
	err := m.fsm.Event(ctx, cmd.String())
	if err == nil {
		return true, nil
	}

	var (
		canceled     fsm.CanceledError
		invalid      fsm.InvalidEventError
		unknown      fsm.UnknownEventError
		noTransition fsm.NoTransitionError
	)
	switch {
	case errors.As(err, &canceled), errors.As(err, &invalid),
		errors.As(err, &unknown), errors.As(err, &noTransition):
		return false, nil
	}
	return false, fmt.Errorf("cannot deliver %s in %s: %w", cmd, m.fsm.Current(), err)
}

// settle runs the self-complete cascade until a stable state is reached, or
// a guard holds the machine in a transitional state.
func (m *Machine) settle(ctx context.Context) error {
	for m.State().IsTransitional() {
		changed, err := m.fire(ctx, sm.SC)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
	return nil
}
