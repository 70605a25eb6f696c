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
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("service state", func() {
	Describe("enumerated state to string conversion", func() {
		When("a State is one of the defined states", func() {
			It("should be converted literally", func() {
				Expect(EXECUTE.String()).To(Equal("EXECUTE"))
				Expect(COMPLETED.String()).To(Equal("COMPLETED"))
			})
		})
		When("a State is out of range", func() {
			It("should be converted to UNDEFINED", func() {
				Expect(State(42).String()).To(Equal("UNDEFINED"))
			})
		})
	})

	Describe("string state to enum conversion", func() {
		It("round-trips every state", func() {
			for _, s := range States() {
				Expect(StateFromString(s.String())).To(Equal(s))
			}
		})
		When("a State is wrong", func() {
			It("should be converted to UNDEFINED", func() {
				Expect(StateFromString("NEVADA")).To(Equal(UNDEFINED))
			})
		})
	})

	It("knows 16 defined states plus UNDEFINED", func() {
		Expect(States()).To(HaveLen(16))
		Expect(States()).NotTo(ContainElement(UNDEFINED))
	})

	Describe("transitional states", func() {
		It("are exactly the ones that complete on their own", func() {
			var transitional []State
			for _, s := range States() {
				if s.IsTransitional() {
					transitional = append(transitional, s)
				}
			}
			Expect(transitional).To(ConsistOf(STARTING, COMPLETING, PAUSING, RESUMING, STOPPING,
				ABORTING, RESETTING, UNHOLDING, HOLDING))
		})
		It("are never stable", func() {
			Expect(EXECUTE.IsStable()).To(BeTrue())
			Expect(STARTING.IsStable()).To(BeFalse())
			Expect(UNDEFINED.IsStable()).To(BeFalse())
		})
	})

	It("is encoded as its name in JSON", func() {
		b, err := json.Marshal(map[string]State{"state": PAUSED})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"state":"PAUSED"}`))

		var s State
		Expect(json.Unmarshal([]byte(`"HELD"`), &s)).To(Succeed())
		Expect(s).To(Equal(HELD))
	})

	It("rejects unknown names", func() {
		var s State
		Expect(json.Unmarshal([]byte(`"BREWING"`), &s)).NotTo(Succeed())
	})
})

var _ = Describe("commands", func() {
	It("lists the ten external commands", func() {
		Expect(Commands()).To(HaveLen(10))
		Expect(Commands()).NotTo(ContainElement(SC))
	})

	It("parses command names case-insensitively", func() {
		c, err := ParseCommand(" pause ")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(PAUSE))
	})

	It("rejects the internal self-complete event", func() {
		_, err := ParseCommand("SC")
		Expect(err).To(HaveOccurred())
	})
})
