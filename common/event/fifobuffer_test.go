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

package event

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FifoBuffer", func() {
	When("popping a lower amount of items than inside of a buffer", func() {
		It("returns the requested items in order", func() {
			buffer := NewFifoBuffer[int]()
			buffer.Push(1)
			buffer.Push(2)
			buffer.Push(3)

			Expect(buffer.Length()).To(Equal(3))
			Expect(buffer.PopMultiple(2)).To(Equal([]int{1, 2}))
			Expect(buffer.Length()).To(Equal(1))
		})
	})

	When("popping a higher amount of items than inside of a buffer", func() {
		It("returns only available items", func() {
			buffer := NewFifoBuffer[int]()
			buffer.Push(1)

			Expect(buffer.PopMultiple(2)).To(Equal([]int{1}))
		})
	})

	When("a consumer waits before anything is pushed", func() {
		It("is woken up by the producer", func() {
			buffer := NewFifoBuffer[int]()
			ready := make(chan struct{})
			received := make(chan int, 1)

			go func() {
				defer GinkgoRecover()
				close(ready)
				v, ok := buffer.Pop()
				Expect(ok).To(BeTrue())
				received <- v
			}()

			<-ready
			buffer.Push(7)
			Eventually(received).Should(Receive(Equal(7)))
		})
	})

	When("the buffer is blocked without data and Release is called", func() {
		It("releases goroutines properly", func() {
			buffer := NewFifoBuffer[int]()
			everythingDone := sync.WaitGroup{}
			ready := make(chan struct{})

			everythingDone.Add(1)
			go func() {
				defer GinkgoRecover()
				close(ready)
				Expect(buffer.PopMultiple(42)).To(BeEmpty())
				everythingDone.Done()
			}()
			<-ready
			time.Sleep(100 * time.Millisecond)
			buffer.ReleaseGoroutines()
			everythingDone.Wait()
		})
	})

	When("the buffer is closed", func() {
		It("drains what is left and then reports closure", func() {
			buffer := NewFifoBuffer[string]()
			buffer.Push("a")
			buffer.Close()
			buffer.Push("b")

			v, ok := buffer.Pop()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("a"))

			_, ok = buffer.Pop()
			Expect(ok).To(BeFalse())
		})
	})
})
