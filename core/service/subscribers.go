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
	"sort"
	"sync"

	"github.com/AliceO2Group/ProcessControl/common/event"
)

// Subscriber receives state change notifications. It is called outside of
// the service lock, so it may read the service but must not block for long.
type Subscriber func(e *event.ServiceStateChangedEvent)

// subscriberSet notifies in subscription order.
type subscriberSet struct {
	mu     sync.RWMutex
	subs   map[int]Subscriber
	nextId int
}

func (s *subscriberSet) add(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]Subscriber)
	}
	id := s.nextId
	s.nextId++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *subscriberSet) notify(e *event.ServiceStateChangedEvent) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
