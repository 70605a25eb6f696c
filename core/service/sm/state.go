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
	"fmt"
)

type State int

const (
	UNDEFINED State = iota
	STOPPED
	STARTING
	IDLE
	PAUSED
	EXECUTE
	STOPPING
	ABORTING
	ABORTED
	HOLDING
	HELD
	UNHOLDING
	PAUSING
	RESUMING
	RESETTING
	COMPLETING
	COMPLETED
)

var _names = []string{
	"UNDEFINED",
	"STOPPED",
	"STARTING",
	"IDLE",
	"PAUSED",
	"EXECUTE",
	"STOPPING",
	"ABORTING",
	"ABORTED",
	"HOLDING",
	"HELD",
	"UNHOLDING",
	"PAUSING",
	"RESUMING",
	"RESETTING",
	"COMPLETING",
	"COMPLETED",
}

// States lists every defined state except UNDEFINED, in declaration order.
func States() []State {
	states := make([]State, 0, len(_names)-1)
	for i := range _names[1:] {
		states = append(states, State(i+1))
	}
	return states
}

func (s State) String() string {
	if s < 0 || int(s) >= len(_names) {
		return "UNDEFINED"
	}
	return _names[s]
}

func StateFromString(s string) State {
	for i, v := range _names {
		if s == v {
			return State(i)
		}
	}
	return UNDEFINED
}

// IsTransitional reports whether the state completes on its own: entering it
// is immediately followed by the internal self-complete event.
func (s State) IsTransitional() bool {
	switch s {
	case STARTING, COMPLETING, PAUSING, RESUMING, STOPPING, ABORTING, RESETTING, UNHOLDING, HOLDING:
		return true
	}
	return false
}

// IsStable is the complement of IsTransitional for defined states.
func (s State) IsStable() bool {
	return s != UNDEFINED && !s.IsTransitional()
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	return s.parse(str)
}

func (s State) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *State) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	return s.parse(str)
}

func (s *State) parse(str string) error {
	parsed := StateFromString(str)
	if parsed == UNDEFINED && str != "" && str != UNDEFINED.String() {
		return fmt.Errorf("unknown state %q", str)
	}
	*s = parsed
	return nil
}
