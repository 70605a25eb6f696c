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

import "sync"

// Condition is an observable boolean guarding a transition. Listen installs
// a single callback, replacing any previous one, which is called whenever
// the value may have changed. Callbacks may run on any goroutine.
type Condition interface {
	Fulfilled() bool
	Listen(fn func(fulfilled bool)) error
	Unlisten()
}

// Flag is a settable Condition.
type Flag struct {
	mu       sync.Mutex
	value    bool
	listener func(bool)
}

func NewFlag(initial bool) *Flag {
	return &Flag{value: initial}
}

// Always is a fulfilled condition that never changes.
func Always() Condition {
	return NewFlag(true)
}

func (f *Flag) Fulfilled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set changes the value and notifies the listener, outside of the lock.
func (f *Flag) Set(value bool) {
	f.mu.Lock()
	changed := f.value != value
	f.value = value
	listener := f.listener
	f.mu.Unlock()

	if changed && listener != nil {
		listener(value)
	}
}

func (f *Flag) Listen(fn func(bool)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	return nil
}

func (f *Flag) Unlisten() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = nil
}
