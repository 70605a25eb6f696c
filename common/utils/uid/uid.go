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

// Package uid generates the short, time-ordered identifiers used for
// recipe runs.
package uid

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/osamingo/indigo"
	"github.com/pborman/uuid"
	"github.com/rs/xid"
)

type ID string

var uidGen *indigo.Generator

func init() {
	// Sonyflake/Indigo derive the machine part of the ID from the private IP
	// address, which is not always available in containers. We read the
	// standard machine-id instead and take 2 bytes of its node block,
	// defaulting to 42.
	var machine uint16 = 42
	if id, err := machineid.ID(); err == nil {
		if parsed := uuid.Parse(id); parsed != nil {
			node := parsed.NodeID()
			machine = binary.BigEndian.Uint16(node[0:2])
		}
	}

	uidGen = indigo.New(
		nil,
		indigo.StartTime(time.Unix(1257894000, 0)), // Go epoch
		indigo.MachineID(func() (uint16, error) { return machine, nil }),
	)
}

func (u ID) String() string {
	return string(u)
}

func (u ID) IsNil() bool {
	return len(u) == 0
}

// FromString accepts both indigo IDs and the xid fallback.
func FromString(s string) (ID, error) {
	if _, err := uidGen.Decompose(s); err == nil {
		return ID(s), nil
	}
	if _, err := xid.FromString(s); err != nil {
		return "", err
	}
	return ID(s), nil
}

func NilID() ID {
	return ""
}

func New() ID {
	id, err := uidGen.NextID()
	if err != nil {
		return ID(xid.New().String())
	}
	return ID(id)
}

func (u ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}
