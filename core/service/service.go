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

// Package service implements the lifecycle of a controllable unit of process
// equipment: the state machine, the facade that serializes access to it and
// publishes its state changes, and the registry of services known to a
// process.
package service

import (
	"context"
	"sync"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/AliceO2Group/ProcessControl/core/metrics"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "service")

// Binding connects a service to its equipment. EnterState is called on every
// state entry, typically to write the new phase to the device's command
// channel. Confirmations read back from the device are delivered as
// commands by the host.
type Binding interface {
	EnterState(ctx context.Context, service string, state sm.State, procedure int)
}

// LogBinding only logs state entries, for simulated equipment.
type LogBinding struct{}

func (LogBinding) EnterState(_ context.Context, service string, state sm.State, procedure int) {
	log.ForService(service).
		WithField("state", state.String()).
		WithField("procedure", procedure).
		Debug("entering state")
}

// Service is the facade of one Machine: it serializes commands, binds the
// machine's entry hooks to a Binding, and notifies subscribers and the event
// writer when the state changes.
type Service struct {
	mu      sync.Mutex
	name    string
	machine *Machine
	writer  event.Writer

	subscribers subscriberSet
}

type Option func(*options)

type options struct {
	binding        Binding
	writer         event.Writer
	machineOptions []MachineOption
}

func WithBinding(b Binding) Option {
	return func(o *options) { o.binding = b }
}

func WithEventWriter(w event.Writer) Option {
	return func(o *options) { o.writer = w }
}

func WithMachineOptions(opts ...MachineOption) Option {
	return func(o *options) { o.machineOptions = append(o.machineOptions, opts...) }
}

func New(name string, opts ...Option) *Service {
	o := &options{
		binding: LogBinding{},
		writer:  &event.DummyWriter{},
	}
	for _, opt := range opts {
		opt(o)
	}

	svc := &Service{
		name:   name,
		writer: o.writer,
	}
	binding := o.binding
	hook := func(ctx context.Context, s sm.State) {
		binding.EnterState(ctx, name, s, svc.machine.ProcedureCur())
	}
	machineOptions := append([]MachineOption{WithActions(Uniform(hook))}, o.machineOptions...)
	svc.machine = NewMachine(machineOptions...)
	return svc
}

func (s *Service) Name() string {
	return s.name
}

// Start activates the state machine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	err := s.machine.Start(ctx)
	current := s.machine.State()
	procedure := s.machine.ProcedureCur()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.publish(event.NewServiceStateChangedEvent(s.name, "", sm.UNDEFINED.String(), current.String(), procedure))
	return nil
}

// Command delivers one command and reports whether it was accepted.
func (s *Service) Command(ctx context.Context, cmd sm.Command) (bool, error) {
	accepted, _, err := s.Deliver(ctx, cmd)
	return accepted, err
}

// Deliver is Command, also returning the state the service was left in by
// this command, read under the same lock.
func (s *Service) Deliver(ctx context.Context, cmd sm.Command) (accepted bool, settled sm.State, err error) {
	s.mu.Lock()
	previous := s.machine.State()
	changed, err := s.machine.TriggerEvent(ctx, cmd)
	current := s.machine.State()
	procedure := s.machine.ProcedureCur()
	s.mu.Unlock()

	entry := log.ForService(s.name).WithField("command", cmd.String())
	switch {
	case err != nil:
		metrics.ServiceCommandCount.WithLabelValues(s.name, cmd.String(), "error").Inc()
		entry.WithError(err).Warn("command failed")
		return false, current, err
	case !changed:
		metrics.ServiceCommandCount.WithLabelValues(s.name, cmd.String(), "rejected").Inc()
		entry.WithField("state", current.String()).Debug("command not enabled")
		return false, current, nil
	}

	metrics.ServiceCommandCount.WithLabelValues(s.name, cmd.String(), "accepted").Inc()
	entry.WithField("from", previous.String()).
		WithField("state", current.String()).
		Info("command accepted")
	s.publish(event.NewServiceStateChangedEvent(s.name, cmd.String(), previous.String(), current.String(), procedure))
	return true, current, nil
}

func (s *Service) CommandEnabled() map[sm.Command]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.CommandEnabled()
}

func (s *Service) State() sm.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

func (s *Service) SetProcedureReq(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.SetProcedureReq(id)
}

func (s *Service) ProcedureReq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ProcedureReq()
}

func (s *Service) ProcedureCur() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ProcedureCur()
}

func (s *Service) Reconfigure(guards Guards, actions Actions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.Reconfigure(guards, actions)
}

// Subscribe registers fn for state change notifications. The returned
// function removes the subscription.
func (s *Service) Subscribe(fn Subscriber) (cancel func()) {
	return s.subscribers.add(fn)
}

func (s *Service) publish(e *event.ServiceStateChangedEvent) {
	if e.PreviousState != e.State {
		metrics.SetServiceState(s.name, e.PreviousState, e.State)
	}
	s.writer.WriteEvent(e)
	s.subscribers.notify(e)
}

// Status is a snapshot of a service, as served over HTTP.
type Status struct {
	Name           string          `json:"name"`
	State          sm.State        `json:"state"`
	ProcedureReq   int             `json:"procedureReq"`
	ProcedureCur   int             `json:"procedureCur"`
	CommandEnabled map[string]bool `json:"commandEnabled"`
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled := s.machine.CommandEnabled()
	st := Status{
		Name:           s.name,
		State:          s.machine.State(),
		ProcedureReq:   s.machine.ProcedureReq(),
		ProcedureCur:   s.machine.ProcedureCur(),
		CommandEnabled: make(map[string]bool, len(enabled)),
	}
	for cmd, ok := range enabled {
		st.CommandEnabled[cmd.String()] = ok
	}
	return st
}
