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

package sm

// Guard names a predicate consulted before a row of the table may fire.
type Guard string

const (
	NoGuard                Guard = ""
	GuardStartingEnabled   Guard = "startingEnabled"
	GuardRestartingEnabled Guard = "restartingEnabled"
	GuardExecuteEnabled    Guard = "executeEnabled"
	GuardCompletingEnabled Guard = "completingEnabled"
	GuardPausingEnabled    Guard = "pausingEnabled"
	GuardHoldingEnabled    Guard = "holdingEnabled"
	GuardUnholdingEnabled  Guard = "unholdingEnabled"
)

// Row is one transition: on Event in From, if Guard holds, go to To.
// The entry action that runs afterwards is the one bound to To.
type Row struct {
	From  State
	Event Command
	Guard Guard
	To    State
}

// The lifecycle is a four-level hierarchy: a running cycle, wrapped by the
// idle/complete/reset cycle with HOLD pre-emption, wrapped by STOP
// pre-emption, wrapped by ABORT pre-emption. Outer pre-emptions apply to
// every state of the level they wrap, so the hierarchy is flattened here into
// one row per (state, event) pair.
var (
	runningStates   = []State{STARTING, EXECUTE, COMPLETING, PAUSING, PAUSED, RESUMING, UNHOLDING}
	holdableStates  = runningStates
	stoppableStates = append([]State{IDLE, COMPLETED, RESETTING, HOLDING, HELD}, runningStates...)
	abortableStates = append([]State{STOPPING, STOPPED}, stoppableStates...)
)

var table = buildTable()

func buildTable() []Row {
	rows := []Row{
		// running cycle
		{IDLE, START, GuardStartingEnabled, STARTING},
		{STARTING, SC, GuardExecuteEnabled, EXECUTE},
		{EXECUTE, COMPLETE, GuardCompletingEnabled, COMPLETING},
		{EXECUTE, RESTART, GuardRestartingEnabled, STARTING},
		{EXECUTE, PAUSE, GuardPausingEnabled, PAUSING},
		{COMPLETING, SC, NoGuard, COMPLETED},
		{PAUSING, SC, NoGuard, PAUSED},
		{PAUSED, RESUME, NoGuard, RESUMING},
		{RESUMING, SC, NoGuard, EXECUTE},
		{UNHOLDING, SC, NoGuard, EXECUTE},

		// idle/complete/reset cycle
		{COMPLETED, RESET, NoGuard, RESETTING},
		{RESETTING, SC, NoGuard, IDLE},
		{HOLDING, SC, NoGuard, HELD},
		{HELD, UNHOLD, GuardUnholdingEnabled, UNHOLDING},

		// stop
		{STOPPING, SC, NoGuard, STOPPED},
		{STOPPED, RESET, NoGuard, RESETTING},

		// abort
		{ABORTING, SC, NoGuard, ABORTED},
		{ABORTED, RESET, NoGuard, RESETTING},
	}
	for _, s := range holdableStates {
		rows = append(rows, Row{s, HOLD, GuardHoldingEnabled, HOLDING})
	}
	for _, s := range stoppableStates {
		rows = append(rows, Row{s, STOP, NoGuard, STOPPING})
	}
	for _, s := range abortableStates {
		rows = append(rows, Row{s, ABORT, NoGuard, ABORTING})
	}
	return rows
}

// Table returns a copy of the flattened transition table.
func Table() []Row {
	out := make([]Row, len(table))
	copy(out, table)
	return out
}

// Lookup finds the row for event in state from.
func Lookup(from State, event Command) (Row, bool) {
	for _, r := range table {
		if r.From == from && r.Event == event {
			return r, true
		}
	}
	return Row{}, false
}

// EventsFrom lists the events that have a row starting in state s,
// regardless of guards.
func EventsFrom(s State) []Command {
	var out []Command
	for _, r := range table {
		if r.From == s {
			out = append(out, r.Event)
		}
	}
	return out
}
