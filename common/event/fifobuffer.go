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
)

// FifoBuffer is an unbounded threadsafe FIFO with builtin waiting for new
// data in its Pop and PopMultiple functions. Push never blocks, which makes it
// suitable as the inbox of a single consumer goroutine fed from callbacks that
// must not block on the consumer.
type FifoBuffer[T any] struct {
	lock sync.Mutex
	cond *sync.Cond

	buffer []T
	closed bool
}

func NewFifoBuffer[T any]() *FifoBuffer[T] {
	fb := &FifoBuffer[T]{}
	fb.cond = sync.NewCond(&fb.lock)
	return fb
}

// Push appends a value. Values pushed after Close are dropped.
func (fb *FifoBuffer[T]) Push(value T) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if fb.closed {
		return
	}
	fb.buffer = append(fb.buffer, value)
	fb.cond.Signal()
}

// Pop blocks until a value is available. ok is false once the buffer is
// closed and drained, or when waiting goroutines were released.
func (fb *FifoBuffer[T]) Pop() (value T, ok bool) {
	values := fb.PopMultiple(1)
	if len(values) == 0 {
		return value, false
	}
	return values[0], true
}

// PopMultiple blocks until it has some value in the internal buffer, then
// returns at most numberToPop values.
func (fb *FifoBuffer[T]) PopMultiple(numberToPop uint) (result []T) {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	for len(fb.buffer) == 0 {
		if fb.closed {
			return
		}
		fb.cond.Wait()
		// woken by ReleaseGoroutines or Close
		if len(fb.buffer) == 0 {
			return
		}
	}

	n := len(fb.buffer)
	if uint(n) > numberToPop {
		n = int(numberToPop)
	}
	result = make([]T, n)
	copy(result, fb.buffer[0:n])
	fb.buffer = fb.buffer[n:]
	return
}

func (fb *FifoBuffer[T]) Length() int {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	return len(fb.buffer)
}

func (fb *FifoBuffer[T]) ReleaseGoroutines() {
	fb.lock.Lock()
	fb.cond.Broadcast()
	fb.lock.Unlock()
}

// Close rejects further pushes and wakes every waiting goroutine. Values
// already buffered can still be popped.
func (fb *FifoBuffer[T]) Close() {
	fb.lock.Lock()
	fb.closed = true
	fb.cond.Broadcast()
	fb.lock.Unlock()
}
