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

package recipe

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/workflow"
)

var ErrUnknownKind = errors.New("unknown kind")

// Env is what operations and conditions of a recipe act upon.
type Env struct {
	Services *service.Manager
}

type OperationFactory func(spec OperationSpec, env Env) (workflow.Operation, error)
type ConditionFactory func(spec ConditionSpec, env Env) (workflow.Condition, error)

var (
	registryMu sync.RWMutex
	operations = make(map[string]OperationFactory)
	conditions = make(map[string]ConditionFactory)
)

// RegisterOperation makes an operation kind available to recipes. It
// panics if kind is already registered.
func RegisterOperation(kind string, factory OperationFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := operations[kind]; ok {
		panic(fmt.Sprintf("recipe: operation kind %q registered twice", kind))
	}
	operations[kind] = factory
}

// RegisterCondition makes a condition kind available to recipes. It panics
// if kind is already registered.
func RegisterCondition(kind string, factory ConditionFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := conditions[kind]; ok {
		panic(fmt.Sprintf("recipe: condition kind %q registered twice", kind))
	}
	conditions[kind] = factory
}

func OperationKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(operations)
}

func ConditionKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(conditions)
}

func newOperation(spec OperationSpec, env Env) (workflow.Operation, error) {
	registryMu.RLock()
	factory, ok := operations[spec.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("operation: %w %q", ErrUnknownKind, spec.Kind)
	}
	op, err := factory(spec, env)
	if err != nil {
		return nil, fmt.Errorf("%s operation: %w", spec.Kind, err)
	}
	return decorate(op, spec), nil
}

func newCondition(spec ConditionSpec, env Env) (workflow.Condition, error) {
	registryMu.RLock()
	factory, ok := conditions[spec.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("condition: %w %q", ErrUnknownKind, spec.Kind)
	}
	cond, err := factory(spec, env)
	if err != nil {
		return nil, fmt.Errorf("%s condition: %w", spec.Kind, err)
	}
	return cond, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
