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

// Package sm defines the vocabulary of the service lifecycle: its states,
// the commands that drive it and the flattened transition table that ties
// them together.
package sm

import (
	"fmt"
	"strings"
)

type Command string

const (
	RESET    = Command("RESET")
	START    = Command("START")
	STOP     = Command("STOP")
	HOLD     = Command("HOLD")
	UNHOLD   = Command("UNHOLD")
	PAUSE    = Command("PAUSE")
	RESUME   = Command("RESUME")
	ABORT    = Command("ABORT")
	RESTART  = Command("RESTART")
	COMPLETE = Command("COMPLETE")

	// SC (self-complete) is internal: it advances transitional states and
	// is never accepted from outside the state machine.
	SC = Command("SC")
)

var _commands = []Command{RESET, START, STOP, HOLD, UNHOLD, PAUSE, RESUME, ABORT, RESTART, COMPLETE}

// Commands lists the externally deliverable commands.
func Commands() []Command {
	out := make([]Command, len(_commands))
	copy(out, _commands)
	return out
}

func (c Command) String() string {
	return string(c)
}

func (c Command) IsValid() bool {
	for _, v := range _commands {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCommand accepts command names case-insensitively.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown command %q", s)
	}
	return c, nil
}
