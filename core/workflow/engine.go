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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/AliceO2Group/ProcessControl/common/utils/uid"
	"github.com/AliceO2Group/ProcessControl/core/metrics"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "workflow")

var (
	ErrAlreadyRunning = errors.New("workflow engine already running")
	ErrCancelled      = errors.New("workflow run cancelled")
)

// Subscriber receives the events of a run. It is called from the engine
// loop, so it must not block and must not call back into the engine's
// blocking methods.
type Subscriber func(e event.Event)

type Option func(*Engine)

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithSubscriber(fn Subscriber) Option {
	return func(e *Engine) {
		if fn != nil {
			e.subscribers = append(e.subscribers, fn)
		}
	}
}

func WithRunID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.runId = id
		}
	}
}

func WithRecipeName(name string) Option {
	return func(e *Engine) {
		e.recipe = name
	}
}

type signalKind int

const (
	signalCondition signalKind = iota
	signalOperations
	signalCancelled
)

type signal struct {
	kind    signalKind
	id      string
	err     error
	elapsed time.Duration

	// for signalCondition: the arming the signal belongs to, and whether
	// the condition reported itself fulfilled
	arming    uint64
	fulfilled bool
}

// Engine runs one recipe net once. A single goroutine owns the progress of
// the run: condition callbacks and operation goroutines only post signals
// to its inbox.
type Engine struct {
	net    *Net
	runId  string
	recipe string
	log    *logrus.Entry

	subsMu      sync.RWMutex
	subscribers []Subscriber

	inbox   *event.FifoBuffer[signal]
	marking SafeMarking
	status  SafeStatus

	failuresMu sync.RWMutex
	failures   map[string]error

	// owned by the loop
	armed   map[string]uint64
	armings uint64

	startMu sync.Mutex
	started bool
	done    chan struct{}
	stopped chan struct{}
}

func NewEngine(net *Net, opts ...Option) *Engine {
	e := &Engine{
		net:      net,
		inbox:    event.NewFifoBuffer[signal](),
		failures: make(map[string]error),
		armed:    make(map[string]uint64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runId == "" {
		e.runId = uid.New().String()
	}
	if e.log == nil {
		e.log = log.WithField("run", e.runId)
	}
	if e.recipe != "" {
		e.log = e.log.WithField("recipe", e.recipe)
	}
	return e
}

// Run arms the initial transition and returns a channel that is closed
// once a transition without successors fires. Cancelling ctx stops the run
// without completing it.
func (e *Engine) Run(ctx context.Context) (<-chan struct{}, error) {
	e.startMu.Lock()
	if e.started {
		e.startMu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.started = true
	e.startMu.Unlock()

	e.status.advance(RUNNING)
	e.log.WithField("level", logger.IL_Devel).Debug("recipe run starting")

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-runCtx.Done():
			e.inbox.Push(signal{kind: signalCancelled})
		case <-e.stopped:
		}
	}()
	go e.loop(runCtx, cancel)
	return e.done, nil
}

// Wait blocks until the run completes, is cancelled, or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-e.stopped:
		select {
		case <-e.done:
			return nil
		default:
			return ErrCancelled
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Marking returns the sorted ids of the currently active states.
func (e *Engine) Marking() []string {
	return e.marking.get()
}

// OperationsCompleted reports whether state id is active and its operations
// have all succeeded.
func (e *Engine) OperationsCompleted(id string) bool {
	return e.marking.completed(id)
}

func (e *Engine) Status() Status {
	return e.status.get()
}

func (e *Engine) RunId() string {
	return e.runId
}

func (e *Engine) Recipe() string {
	return e.recipe
}

// Failures maps the states whose operations failed to the error they
// failed with. Their branches do not progress any further.
func (e *Engine) Failures() map[string]string {
	e.failuresMu.RLock()
	defer e.failuresMu.RUnlock()
	out := make(map[string]string, len(e.failures))
	for id, err := range e.failures {
		out[id] = err.Error()
	}
	return out
}

func (e *Engine) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

func (e *Engine) loop(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		e.unlistenAll()
		cancel()
		e.inbox.Close()
		close(e.stopped)
	}()

	e.arm(e.net.Initial())

	for {
		sig, ok := e.inbox.Pop()
		if !ok {
			continue
		}
		switch sig.kind {
		case signalCancelled:
			if e.status.advance(CANCELLED) {
				metrics.RecipeRunCount.WithLabelValues(e.recipe, CANCELLED.String()).Inc()
				e.log.WithField("marking", e.marking.get()).Info("recipe run cancelled")
			}
			return
		case signalCondition:
			if e.tryFire(ctx, sig) {
				return
			}
		case signalOperations:
			e.operationsFinished(sig)
		}
	}
}

// arm starts listening to the condition of t. A transition is armed at most
// once at a time. A callback reporting the condition fulfilled fires the
// transition even if the condition has dropped again by the time the loop
// gets to it.
func (e *Engine) arm(t *Transition) {
	if _, ok := e.armed[t.Id]; ok {
		return
	}
	e.armings++
	arming := e.armings
	e.armed[t.Id] = arming
	e.log.WithField("transition", t.Id).Debug("transition armed")
	e.publish(event.NewTransitionArmedEvent(e.runId, e.recipe, t.Id))

	id := t.Id
	err := t.Condition.Listen(func(fulfilled bool) {
		e.inbox.Push(signal{kind: signalCondition, id: id, arming: arming, fulfilled: fulfilled})
	})
	if err != nil {
		e.log.WithError(err).
			WithField("transition", id).
			Error("cannot listen to transition condition, branch stalled")
		return
	}
	// the condition may already hold, in which case no callback will come
	e.inbox.Push(signal{kind: signalCondition, id: id, arming: arming})
}

// tryFire fires the transition of sig if sig belongs to its current arming
// and the condition flipped to true or holds now. It returns true if firing
// ended the run.
func (e *Engine) tryFire(ctx context.Context, sig signal) bool {
	id := sig.id
	if arming, ok := e.armed[id]; !ok || arming != sig.arming {
		return false
	}
	t, _ := e.net.Transition(id)
	if !sig.fulfilled && !t.Condition.Fulfilled() {
		return false
	}
	t.Condition.Unlisten()
	delete(e.armed, id)

	for _, p := range t.predecessors {
		e.marking.remove(p)
	}
	metrics.RecipeTransitionsFired.WithLabelValues(e.recipe).Inc()
	e.log.WithField("transition", id).Debug("transition fired")

	if t.IsFinal() {
		e.complete(t)
		return true
	}
	for _, sid := range t.Next {
		s, _ := e.net.State(sid)
		e.activate(ctx, s)
	}
	return false
}

func (e *Engine) complete(t *Transition) {
	e.unlistenAll()
	e.status.advance(COMPLETED)
	metrics.RecipeRunCount.WithLabelValues(e.recipe, COMPLETED.String()).Inc()
	e.log.WithField("transition", t.Id).
		WithField("level", logger.IL_Ops).
		Info("recipe run completed")
	e.publish(event.NewRecipeCompletedEvent(e.runId, e.recipe, t.Id))
	close(e.done)
}

func (e *Engine) activate(ctx context.Context, s *State) {
	e.marking.add(s.Id)
	metrics.RecipeStatesActivated.WithLabelValues(e.recipe).Inc()
	e.log.WithField("state", s.Id).Debug("state activated")
	e.publish(event.NewStateActivatedEvent(e.runId, e.recipe, s.Id))

	operations := s.Operations
	id := s.Id
	go func() {
		start := time.Now()
		var err error
		for i, op := range operations {
			if err = op.Execute(ctx); err != nil {
				err = fmt.Errorf("operation #%d: %w", i, err)
				break
			}
		}
		e.inbox.Push(signal{kind: signalOperations, id: id, err: err, elapsed: time.Since(start)})
	}()
}

func (e *Engine) operationsFinished(sig signal) {
	metrics.RecipeOperationLatency.WithLabelValues(e.recipe).Observe(sig.elapsed.Seconds())
	if !e.marking.contains(sig.id) {
		return
	}
	if sig.err != nil {
		metrics.RecipeOperationFailures.WithLabelValues(e.recipe, sig.id).Inc()
		e.failuresMu.Lock()
		e.failures[sig.id] = sig.err
		e.failuresMu.Unlock()
		e.log.WithError(sig.err).
			WithField("state", sig.id).
			Error("state operations failed, branch stalled")
		return
	}

	e.marking.complete(sig.id)
	s, _ := e.net.State(sig.id)
	for _, tid := range s.Next {
		t, _ := e.net.Transition(tid)
		if e.joinReady(t) {
			e.arm(t)
		}
	}
}

// joinReady reports whether every predecessor of t is marked and done.
func (e *Engine) joinReady(t *Transition) bool {
	for _, p := range t.predecessors {
		if !e.marking.completed(p) {
			return false
		}
	}
	return true
}

func (e *Engine) unlistenAll() {
	for id := range e.armed {
		if t, ok := e.net.Transition(id); ok {
			t.Condition.Unlisten()
		}
		delete(e.armed, id)
	}
}

func (e *Engine) publish(ev event.Event) {
	e.subsMu.RLock()
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.subsMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
