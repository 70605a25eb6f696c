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

	"github.com/AliceO2Group/ProcessControl/core/service/sm"
)

// GuardFunc is a pure predicate consulted before a guarded transition.
type GuardFunc func() bool

// ActionFunc is an entry hook, run synchronously when the state machine
// enters state. Hooks must not call back into the same state machine.
type ActionFunc func(ctx context.Context, state sm.State)

// Guards holds the seven guard predicates of the lifecycle. In Reconfigure,
// nil fields mean "keep the current predicate".
type Guards struct {
	StartingEnabled   GuardFunc
	RestartingEnabled GuardFunc
	ExecuteEnabled    GuardFunc
	CompletingEnabled GuardFunc
	PausingEnabled    GuardFunc
	HoldingEnabled    GuardFunc
	UnholdingEnabled  GuardFunc
}

func Always() bool { return true }
func Never() bool  { return false }

// Constant returns a guard with a fixed answer.
func Constant(v bool) GuardFunc {
	if v {
		return Always
	}
	return Never
}

// DefaultGuards enables every guarded transition except HOLD, which a host
// must enable explicitly.
func DefaultGuards() Guards {
	return Guards{
		StartingEnabled:   Always,
		RestartingEnabled: Always,
		ExecuteEnabled:    Always,
		CompletingEnabled: Always,
		PausingEnabled:    Always,
		HoldingEnabled:    Never,
		UnholdingEnabled:  Always,
	}
}

func (g Guards) lookup(name sm.Guard) GuardFunc {
	switch name {
	case sm.GuardStartingEnabled:
		return g.StartingEnabled
	case sm.GuardRestartingEnabled:
		return g.RestartingEnabled
	case sm.GuardExecuteEnabled:
		return g.ExecuteEnabled
	case sm.GuardCompletingEnabled:
		return g.CompletingEnabled
	case sm.GuardPausingEnabled:
		return g.PausingEnabled
	case sm.GuardHoldingEnabled:
		return g.HoldingEnabled
	case sm.GuardUnholdingEnabled:
		return g.UnholdingEnabled
	}
	return nil
}

func (g *Guards) merge(other Guards) {
	pick := func(dst *GuardFunc, src GuardFunc) {
		if src != nil {
			*dst = src
		}
	}
	pick(&g.StartingEnabled, other.StartingEnabled)
	pick(&g.RestartingEnabled, other.RestartingEnabled)
	pick(&g.ExecuteEnabled, other.ExecuteEnabled)
	pick(&g.CompletingEnabled, other.CompletingEnabled)
	pick(&g.PausingEnabled, other.PausingEnabled)
	pick(&g.HoldingEnabled, other.HoldingEnabled)
	pick(&g.UnholdingEnabled, other.UnholdingEnabled)
}

// Actions holds one entry hook per state. nil hooks are skipped; in
// Reconfigure, nil fields mean "keep the current hook".
type Actions struct {
	OnIdle       ActionFunc
	OnStarting   ActionFunc
	OnExecute    ActionFunc
	OnCompleting ActionFunc
	OnCompleted  ActionFunc
	OnPausing    ActionFunc
	OnPaused     ActionFunc
	OnResuming   ActionFunc
	OnHolding    ActionFunc
	OnHeld       ActionFunc
	OnUnholding  ActionFunc
	OnStopping   ActionFunc
	OnStopped    ActionFunc
	OnAborting   ActionFunc
	OnAborted    ActionFunc
	OnResetting  ActionFunc
}

// Uniform binds the same hook to every state.
func Uniform(action ActionFunc) Actions {
	a := Actions{}
	for _, s := range sm.States() {
		if slot := a.slot(s); slot != nil {
			*slot = action
		}
	}
	return a
}

func (a *Actions) slot(s sm.State) *ActionFunc {
	switch s {
	case sm.IDLE:
		return &a.OnIdle
	case sm.STARTING:
		return &a.OnStarting
	case sm.EXECUTE:
		return &a.OnExecute
	case sm.COMPLETING:
		return &a.OnCompleting
	case sm.COMPLETED:
		return &a.OnCompleted
	case sm.PAUSING:
		return &a.OnPausing
	case sm.PAUSED:
		return &a.OnPaused
	case sm.RESUMING:
		return &a.OnResuming
	case sm.HOLDING:
		return &a.OnHolding
	case sm.HELD:
		return &a.OnHeld
	case sm.UNHOLDING:
		return &a.OnUnholding
	case sm.STOPPING:
		return &a.OnStopping
	case sm.STOPPED:
		return &a.OnStopped
	case sm.ABORTING:
		return &a.OnAborting
	case sm.ABORTED:
		return &a.OnAborted
	case sm.RESETTING:
		return &a.OnResetting
	}
	return nil
}

func (a *Actions) forState(s sm.State) ActionFunc {
	if slot := a.slot(s); slot != nil {
		return *slot
	}
	return nil
}

func (a *Actions) merge(other Actions) {
	for _, s := range sm.States() {
		if src := other.forState(s); src != nil {
			*a.slot(s) = src
		}
	}
}

// ProcedureOptions decide what happens to the procedure selector when the
// service resets. Both default to off: the selector survives a reset.
type ProcedureOptions struct {
	// ResetCurOnResetting clears the current procedure on entry to RESETTING.
	ResetCurOnResetting bool `yaml:"resetCurOnResetting" json:"resetCurOnResetting"`
	// ResetReqOnResetting clears the requested procedure on entry to RESETTING.
	ResetReqOnResetting bool `yaml:"resetReqOnResetting" json:"resetReqOnResetting"`
}
