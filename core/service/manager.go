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
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceExists   = errors.New("service already registered")
)

// Manager is the registry of the services of one process.
type Manager struct {
	mu       sync.RWMutex
	services map[string]*Service

	subscribers subscriberSet
}

func NewManager() *Manager {
	return &Manager{
		services: make(map[string]*Service),
	}
}

// Add registers svc. Subscribers of the manager also receive the state
// changes of svc from now on.
func (m *Manager) Add(svc *Service) error {
	if svc == nil {
		return errors.New("cannot register nil service")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.services[svc.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrServiceExists, svc.Name())
	}
	m.services[svc.Name()] = svc
	svc.Subscribe(m.subscribers.notify)
	return nil
}

func (m *Manager) Get(name string) (*Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	svc, ok := m.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// List returns every service, sorted by name.
func (m *Manager) List() []*Service {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Service, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Filter returns the services whose name matches a glob pattern such as
// "reactor-*". An empty pattern matches everything.
func (m *Manager) Filter(pattern string) ([]*Service, error) {
	all := m.List()
	if pattern == "" {
		return all, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid service filter %q: %w", pattern, err)
	}
	out := make([]*Service, 0, len(all))
	for _, svc := range all {
		if g.Match(svc.Name()) {
			out = append(out, svc)
		}
	}
	return out, nil
}

// StartAll starts every registered service that has not been started yet.
func (m *Manager) StartAll(ctx context.Context) error {
	var merr *multierror.Error
	for _, svc := range m.List() {
		err := svc.Start(ctx)
		if err != nil && !errors.Is(err, ErrAlreadyStarted) {
			merr = multierror.Append(merr, fmt.Errorf("service %s: %w", svc.Name(), err))
		}
	}
	return merr.ErrorOrNil()
}

// States is a snapshot of the current state name of every service.
func (m *Manager) States() map[string]string {
	out := make(map[string]string)
	for _, svc := range m.List() {
		out[svc.Name()] = svc.State().String()
	}
	return out
}

// Procedures is a snapshot of the current procedure of every service.
func (m *Manager) Procedures() map[string]int {
	out := make(map[string]int)
	for _, svc := range m.List() {
		out[svc.Name()] = svc.ProcedureCur()
	}
	return out
}

// Subscribe registers fn for the state changes of every service. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn Subscriber) (cancel func()) {
	return m.subscribers.add(fn)
}
