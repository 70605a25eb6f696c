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

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("service manager", func() {
	var (
		ctx context.Context
		m   *Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		m = NewManager()
		for _, name := range []string{"reactor-1", "reactor-2", "pump"} {
			Expect(m.Add(New(name, WithMachineOptions(WithInitialState(sm.IDLE))))).To(Succeed())
		}
	})

	It("refuses duplicate names", func() {
		Expect(m.Add(New("pump"))).To(MatchError(ErrServiceExists))
	})

	It("looks services up by name", func() {
		svc, err := m.Get("pump")
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.Name()).To(Equal("pump"))

		_, err = m.Get("mixer")
		Expect(err).To(MatchError(ErrServiceNotFound))
	})

	It("lists services sorted by name", func() {
		var names []string
		for _, svc := range m.List() {
			names = append(names, svc.Name())
		}
		Expect(names).To(Equal([]string{"pump", "reactor-1", "reactor-2"}))
	})

	It("filters services with a glob", func() {
		matched, err := m.Filter("reactor-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(matched).To(HaveLen(2))

		all, err := m.Filter("")
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))

		_, err = m.Filter("[")
		Expect(err).To(HaveOccurred())
	})

	It("starts every service once", func() {
		Expect(m.StartAll(ctx)).To(Succeed())
		Expect(m.StartAll(ctx)).To(Succeed())
		Expect(m.States()).To(Equal(map[string]string{
			"pump":      "IDLE",
			"reactor-1": "IDLE",
			"reactor-2": "IDLE",
		}))
	})

	It("snapshots procedures", func() {
		Expect(m.StartAll(ctx)).To(Succeed())
		svc, _ := m.Get("pump")
		svc.SetProcedureReq(9)
		_, err := svc.Command(ctx, sm.START)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Procedures()).To(HaveKeyWithValue("pump", 9))
		Expect(m.Procedures()).To(HaveKeyWithValue("reactor-1", 0))
	})

	It("forwards the state changes of every service", func() {
		var names []string
		cancel := m.Subscribe(func(e *event.ServiceStateChangedEvent) {
			names = append(names, e.Service)
		})
		Expect(m.StartAll(ctx)).To(Succeed())
		Expect(names).To(ConsistOf("pump", "reactor-1", "reactor-2"))

		cancel()
		svc, _ := m.Get("pump")
		_, err := svc.Command(ctx, sm.START)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(HaveLen(3))
	})
})
