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

// Package gera implements layered string maps: a map may wrap a parent, and
// its own keys shadow the parent's. Recipe runs use it to lay run-time
// variables over the defaults a recipe declares.
package gera

import (
	"encoding/json"
	"sync"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

type StringMap struct {
	mu     sync.RWMutex
	values map[string]string
	parent *StringMap
}

// MakeStringMap returns a root map holding a copy of values.
func MakeStringMap(values map[string]string) *StringMap {
	m := &StringMap{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// UnmarshalYAML accepts a mapping of scalars. A key may also map to
// {value: ..., description: ...}, in which case only value is kept.
func (m *StringMap) UnmarshalYAML(node *yaml.Node) error {
	nodes := make(map[string]yaml.Node)
	if err := node.Decode(&nodes); err != nil {
		return err
	}
	values := make(map[string]string, len(nodes))
	for k, v := range nodes {
		switch v.Kind {
		case yaml.ScalarNode:
			values[k] = v.Value
		case yaml.MappingNode:
			var described struct {
				Value string `yaml:"value"`
			}
			if err := v.Decode(&described); err != nil {
				return err
			}
			values[k] = described.Value
		}
	}
	*m = StringMap{values: values}
	return nil
}

func (m *StringMap) MarshalYAML() (interface{}, error) {
	return m.Raw(), nil
}

func (m *StringMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Raw())
}

func (m *StringMap) UnmarshalJSON(data []byte) error {
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*m = StringMap{values: values}
	return nil
}

// Wrap makes parent the fallback of m and returns m.
func (m *StringMap) Wrap(parent *StringMap) *StringMap {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parent = parent
	return m
}

func (m *StringMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v, true
	}
	if m.parent != nil {
		return m.parent.Get(key)
	}
	return "", false
}

func (m *StringMap) Set(key string, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// Flattened resolves the whole hierarchy into one map.
func (m *StringMap) Flattened() (map[string]string, error) {
	if m == nil {
		return map[string]string{}, nil
	}
	out := m.Raw()

	m.mu.RLock()
	parent := m.parent
	m.mu.RUnlock()
	if parent == nil {
		return out, nil
	}

	flattenedParent, err := parent.Flattened()
	if err != nil {
		return out, err
	}
	// keys already in out win
	err = mergo.Merge(&out, flattenedParent)
	return out, err
}

// Raw copies the keys of m itself, without its parents.
func (m *StringMap) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
