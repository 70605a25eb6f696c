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
	"fmt"

	"github.com/AliceO2Group/ProcessControl/configuration"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"gopkg.in/yaml.v3"
)

// Definition describes one service in a services document:
//
//	services:
//	  - name: reactor
//	    initialState: IDLE
//	    procedureReq: 2
//	    guards:
//	      holdingEnabled: true
//	    procedure:
//	      resetCurOnResetting: true
type Definition struct {
	Name         string            `yaml:"name"`
	InitialState sm.State          `yaml:"initialState,omitempty"`
	ProcedureReq int               `yaml:"procedureReq,omitempty"`
	Guards       map[string]bool   `yaml:"guards,omitempty"`
	Procedure    *ProcedureOptions `yaml:"procedure,omitempty"`
}

type definitionsDocument struct {
	Services []Definition `yaml:"services"`
}

// ParseDefinitions decodes a services document.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var doc definitionsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse service definitions: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Services))
	for i, def := range doc.Services {
		if def.Name == "" {
			return nil, fmt.Errorf("service definition #%d has no name", i)
		}
		if _, ok := seen[def.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrServiceExists, def.Name)
		}
		seen[def.Name] = struct{}{}
		if _, err := def.guards(); err != nil {
			return nil, fmt.Errorf("service %s: %w", def.Name, err)
		}
	}
	return doc.Services, nil
}

// LoadDefinitions reads and decodes the services document at uri.
func LoadDefinitions(uri string) ([]Definition, error) {
	data, err := configuration.ReadDocument(uri)
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(data)
}

func (d Definition) guards() (Guards, error) {
	g := Guards{}
	for name, value := range d.Guards {
		switch sm.Guard(name) {
		case sm.GuardStartingEnabled:
			g.StartingEnabled = Constant(value)
		case sm.GuardRestartingEnabled:
			g.RestartingEnabled = Constant(value)
		case sm.GuardExecuteEnabled:
			g.ExecuteEnabled = Constant(value)
		case sm.GuardCompletingEnabled:
			g.CompletingEnabled = Constant(value)
		case sm.GuardPausingEnabled:
			g.PausingEnabled = Constant(value)
		case sm.GuardHoldingEnabled:
			g.HoldingEnabled = Constant(value)
		case sm.GuardUnholdingEnabled:
			g.UnholdingEnabled = Constant(value)
		default:
			return Guards{}, fmt.Errorf("unknown guard %q", name)
		}
	}
	return g, nil
}

// Build creates the service described by d. opts are applied before the
// definition, so they act as defaults for what d leaves unset.
func (d Definition) Build(opts ...Option) (*Service, error) {
	g, err := d.guards()
	if err != nil {
		return nil, err
	}
	machineOptions := []MachineOption{WithGuards(g)}
	if d.Procedure != nil {
		machineOptions = append(machineOptions, WithProcedureOptions(*d.Procedure))
	}
	if d.InitialState != sm.UNDEFINED {
		machineOptions = append(machineOptions, WithInitialState(d.InitialState))
	}
	all := append(append([]Option{}, opts...), WithMachineOptions(machineOptions...))
	svc := New(d.Name, all...)
	svc.SetProcedureReq(d.ProcedureReq)
	return svc, nil
}

// NewManagerFromDefinitions builds and registers a service per definition.
func NewManagerFromDefinitions(defs []Definition, opts ...Option) (*Manager, error) {
	m := NewManager()
	for _, def := range defs {
		svc, err := def.Build(opts...)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", def.Name, err)
		}
		if err = m.Add(svc); err != nil {
			return nil, err
		}
	}
	return m, nil
}
