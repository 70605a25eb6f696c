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

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("transition table", func() {
	It("has at most one row per state and event", func() {
		seen := make(map[State]map[Command]bool)
		for _, r := range Table() {
			if seen[r.From] == nil {
				seen[r.From] = make(map[Command]bool)
			}
			Expect(seen[r.From][r.Event]).To(BeFalse(), "duplicate row %s/%s", r.From, r.Event)
			seen[r.From][r.Event] = true
		}
	})

	It("has no self loops", func() {
		for _, r := range Table() {
			Expect(r.To).NotTo(Equal(r.From), "%s/%s", r.From, r.Event)
		}
	})

	It("gives every transitional state exactly one way out on its own", func() {
		for _, s := range States() {
			_, ok := Lookup(s, SC)
			Expect(ok).To(Equal(s.IsTransitional()), s.String())
		}
	})

	DescribeTable("single rows",
		func(from State, event Command, guard Guard, to State) {
			r, ok := Lookup(from, event)
			Expect(ok).To(BeTrue())
			Expect(r.Guard).To(Equal(guard))
			Expect(r.To).To(Equal(to))
		},
		Entry("start", IDLE, START, GuardStartingEnabled, STARTING),
		Entry("starting completes into execute", STARTING, SC, GuardExecuteEnabled, EXECUTE),
		Entry("complete", EXECUTE, COMPLETE, GuardCompletingEnabled, COMPLETING),
		Entry("restart", EXECUTE, RESTART, GuardRestartingEnabled, STARTING),
		Entry("pause", EXECUTE, PAUSE, GuardPausingEnabled, PAUSING),
		Entry("resume", PAUSED, RESUME, NoGuard, RESUMING),
		Entry("hold from execute", EXECUTE, HOLD, GuardHoldingEnabled, HOLDING),
		Entry("hold from paused", PAUSED, HOLD, GuardHoldingEnabled, HOLDING),
		Entry("unhold", HELD, UNHOLD, GuardUnholdingEnabled, UNHOLDING),
		Entry("unholding re-enters the running cycle", UNHOLDING, SC, NoGuard, EXECUTE),
		Entry("reset after completion", COMPLETED, RESET, NoGuard, RESETTING),
		Entry("reset after stop", STOPPED, RESET, NoGuard, RESETTING),
		Entry("reset after abort", ABORTED, RESET, NoGuard, RESETTING),
		Entry("resetting settles in idle", RESETTING, SC, NoGuard, IDLE),
	)

	It("accepts STOP from every state of the inner levels", func() {
		for _, s := range []State{IDLE, STARTING, EXECUTE, COMPLETING, COMPLETED, PAUSING, PAUSED,
			RESUMING, RESETTING, HOLDING, HELD, UNHOLDING} {
			r, ok := Lookup(s, STOP)
			Expect(ok).To(BeTrue(), s.String())
			Expect(r.To).To(Equal(STOPPING))
		}
	})

	It("accepts ABORT from every state except the abort branch itself", func() {
		for _, s := range States() {
			_, ok := Lookup(s, ABORT)
			Expect(ok).To(Equal(s != ABORTING && s != ABORTED), s.String())
		}
	})

	It("does not accept STOP once stopped or aborted", func() {
		for _, s := range []State{STOPPING, STOPPED, ABORTING, ABORTED} {
			_, ok := Lookup(s, STOP)
			Expect(ok).To(BeFalse(), s.String())
		}
	})

	It("does not hold an idle or completed service", func() {
		Expect(EventsFrom(IDLE)).NotTo(ContainElement(HOLD))
		Expect(EventsFrom(COMPLETED)).NotTo(ContainElement(HOLD))
	})
})
