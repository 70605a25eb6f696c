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

import (
	"encoding/json"
	"fmt"
	"sync"
)

type Status int

const (
	PENDING Status = iota
	RUNNING
	COMPLETED
	CANCELLED
)

var _statusNames = []string{"PENDING", "RUNNING", "COMPLETED", "CANCELLED"}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(_statusNames) {
		return "UNKNOWN"
	}
	return _statusNames[s]
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, v := range _statusNames {
		if v == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown run status %q", name)
}

// IsTerminal reports whether a run with this status will not change anymore.
func (s Status) IsTerminal() bool {
	return s == COMPLETED || s == CANCELLED
}

type SafeStatus struct {
	mu     sync.RWMutex
	status Status
}

// advance moves to s unless the current status is already terminal, and
// reports whether it did.
func (t *SafeStatus) advance(s Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() || t.status == s {
		return false
	}
	t.status = s
	return true
}

func (t *SafeStatus) get() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
