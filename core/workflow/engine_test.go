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
	"sync"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/event"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) record(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// trace renders the recorded events as "NAME subject" strings.
func (r *recorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		switch ev := e.(type) {
		case *event.TransitionArmedEvent:
			out = append(out, ev.GetName()+" "+ev.Transition)
		case *event.StateActivatedEvent:
			out = append(out, ev.GetName()+" "+ev.State)
		case *event.RecipeCompletedEvent:
			out = append(out, ev.GetName()+" "+ev.Transition)
		}
	}
	return out
}

func (r *recorder) count(name string) int {
	n := 0
	for _, s := range r.trace() {
		if s == name {
			n++
		}
	}
	return n
}

// gate is an operation that blocks until opened, then returns err.
type gate struct {
	open    chan struct{}
	err     error
	started chan struct{}
	once    sync.Once
}

func newGate(err error) *gate {
	return &gate{open: make(chan struct{}), started: make(chan struct{}), err: err}
}

func (g *gate) Execute(ctx context.Context) error {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.open:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) release() {
	close(g.open)
}

func forkJoin(a, b Operation) *Net {
	n, err := NewNet(
		[]*State{
			NewState("A", []string{"t2"}, a),
			NewState("B", []string{"t2"}, b),
		},
		[]*Transition{
			NewTransition("t1", Always(), "A", "B"),
			NewTransition("t2", Always()),
		},
		"t1",
	)
	Expect(err).NotTo(HaveOccurred())
	return n
}

var _ = Describe("engine", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		rec    *recorder
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() { cancel() })
		rec = &recorder{}
	})

	It("runs a single edge recipe to completion exactly once", func() {
		ran := 0
		n, err := NewNet(
			[]*State{NewState("A", []string{"t2"}, OperationFunc(func(context.Context) error {
				ran++
				return nil
			}))},
			[]*Transition{
				NewTransition("t1", Always(), "A"),
				NewTransition("t2", Always()),
			},
			"t1",
		)
		Expect(err).NotTo(HaveOccurred())

		e := NewEngine(n, WithSubscriber(rec.record), WithRunID("run-1"), WithRecipeName("single"))
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Eventually(done).Should(BeClosed())

		Expect(e.Wait(ctx)).To(Succeed())
		Expect(ran).To(Equal(1))
		Expect(e.Marking()).To(BeEmpty())
		Expect(e.Status()).To(Equal(COMPLETED))
		Expect(e.RunId()).To(Equal("run-1"))
		Expect(rec.trace()).To(Equal([]string{
			"TRANSITION_ARMED t1",
			"STATE_ACTIVATED A",
			"TRANSITION_ARMED t2",
			"RECIPE_COMPLETED t2",
		}))
		Consistently(func() int { return rec.count("RECIPE_COMPLETED t2") }, "100ms").Should(Equal(1))
	})

	It("cannot run twice", func() {
		e := NewEngine(forkJoin(Noop, Noop))
		_, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.Run(ctx)
		Expect(err).To(MatchError(ErrAlreadyRunning))
	})

	DescribeTable("joins branches regardless of which finishes first",
		func(firstA bool) {
			a, b := newGate(nil), newGate(nil)
			e := NewEngine(forkJoin(a, b), WithSubscriber(rec.record))
			done, err := e.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Eventually(a.started).Should(BeClosed())
			Eventually(b.started).Should(BeClosed())
			Expect(e.Marking()).To(Equal([]string{"A", "B"}))

			first, second, firstId := b, a, "B"
			if firstA {
				first, second, firstId = a, b, "A"
			}
			first.release()
			Eventually(func() bool { return e.OperationsCompleted(firstId) }).Should(BeTrue())
			Consistently(func() int { return rec.count("TRANSITION_ARMED t2") }, "100ms").Should(Equal(0))
			Expect(done).NotTo(BeClosed())

			second.release()
			Eventually(done).Should(BeClosed())
			Expect(rec.count("TRANSITION_ARMED t2")).To(Equal(1))
			Expect(rec.count("RECIPE_COMPLETED t2")).To(Equal(1))
			Expect(e.Marking()).To(BeEmpty())
		},
		Entry("A first", true),
		Entry("B first", false),
	)

	It("stalls a branch whose operation fails", func() {
		a, b := newGate(errors.New("valve stuck")), newGate(nil)
		e := NewEngine(forkJoin(a, b), WithSubscriber(rec.record))
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		a.release()
		b.release()
		Eventually(func() bool { return e.OperationsCompleted("B") }).Should(BeTrue())
		Eventually(e.Failures).Should(HaveKey("A"))

		Consistently(done, "200ms").ShouldNot(BeClosed())
		Expect(rec.trace()).To(ContainElement("STATE_ACTIVATED B"))
		Expect(rec.count("TRANSITION_ARMED t2")).To(Equal(0))
		Expect(rec.count("RECIPE_COMPLETED t2")).To(Equal(0))
		Expect(e.OperationsCompleted("A")).To(BeFalse())
		Expect(e.Status()).To(Equal(RUNNING))
	})

	It("runs the operations of a state in order and stops at the first failure", func() {
		var order []int
		var mu sync.Mutex
		step := func(i int, err error) Operation {
			return OperationFunc(func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, i)
				return err
			})
		}
		n, err := NewNet(
			[]*State{NewState("A", []string{"t2"}, step(1, nil), step(2, errors.New("boom")), step(3, nil))},
			[]*Transition{NewTransition("t1", Always(), "A"), NewTransition("t2", Always())},
			"t1",
		)
		Expect(err).NotTo(HaveOccurred())
		e := NewEngine(n)
		_, err = e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		Eventually(e.Failures).Should(HaveKeyWithValue("A", ContainSubstring("boom")))
		mu.Lock()
		defer mu.Unlock()
		Expect(order).To(Equal([]int{1, 2}))
	})

	It("waits for the condition of an armed transition", func() {
		ready := NewFlag(false)
		n, err := NewNet(
			[]*State{NewState("A", []string{"t2"})},
			[]*Transition{NewTransition("t1", Always(), "A"), NewTransition("t2", ready)},
			"t1",
		)
		Expect(err).NotTo(HaveOccurred())
		e := NewEngine(n, WithSubscriber(rec.record))
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() int { return rec.count("TRANSITION_ARMED t2") }).Should(Equal(1))
		Consistently(done, "100ms").ShouldNot(BeClosed())
		Expect(e.Marking()).To(Equal([]string{"A"}))

		ready.Set(true)
		Eventually(done).Should(BeClosed())
	})

	It("stops listening once a transition fired", func() {
		ready := NewFlag(false)
		n, err := NewNet(
			[]*State{NewState("A", []string{"t2"})},
			[]*Transition{NewTransition("t1", Always(), "A"), NewTransition("t2", ready)},
			"t1",
		)
		Expect(err).NotTo(HaveOccurred())
		e := NewEngine(n)
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() bool {
			ready.mu.Lock()
			defer ready.mu.Unlock()
			return ready.listener != nil
		}).Should(BeTrue())

		ready.Set(true)
		Eventually(done).Should(BeClosed())
		Eventually(func() bool {
			ready.mu.Lock()
			defer ready.mu.Unlock()
			return ready.listener == nil
		}).Should(BeTrue())
	})

	It("stops without completing when cancelled", func() {
		a, b := newGate(nil), newGate(nil)
		e := NewEngine(forkJoin(a, b), WithSubscriber(rec.record))
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Eventually(a.started).Should(BeClosed())

		cancel()
		Expect(e.Wait(context.Background())).To(MatchError(ErrCancelled))
		Expect(e.Status()).To(Equal(CANCELLED))
		Expect(done).NotTo(BeClosed())
		Expect(rec.count("RECIPE_COMPLETED t2")).To(Equal(0))
	})

	It("gives up waiting when the caller's context ends", func() {
		e := NewEngine(forkJoin(newGate(nil), Noop))
		_, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer waitCancel()
		Expect(e.Wait(waitCtx)).To(MatchError(context.DeadlineExceeded))
	})

	It("stalls a branch whose condition cannot be observed", func() {
		n, err := NewNet(
			[]*State{NewState("A", []string{"t2"})},
			[]*Transition{NewTransition("t1", Always(), "A"), NewTransition("t2", brokenCondition{})},
			"t1",
		)
		Expect(err).NotTo(HaveOccurred())
		e := NewEngine(n, WithSubscriber(rec.record))
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() int { return rec.count("TRANSITION_ARMED t2") }).Should(Equal(1))
		Consistently(done, "100ms").ShouldNot(BeClosed())
	})

	It("fires on a condition that held only briefly", func() {
		blip := &blipCondition{}
		n, err := NewNet(
			[]*State{NewState("A", []string{"t2"})},
			[]*Transition{NewTransition("t1", Always(), "A"), NewTransition("t2", blip)},
			"t1",
		)
		Expect(err).NotTo(HaveOccurred())
		e := NewEngine(n)
		done, err := e.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		Eventually(blip.listening).Should(BeTrue())
		Consistently(done, "50ms").ShouldNot(BeClosed())
		blip.flip(true)
		Eventually(done).Should(BeClosed())
		Expect(e.Status()).To(Equal(COMPLETED))
	})
})

// blipCondition reports a change through its listener but is never
// fulfilled when read back.
type blipCondition struct {
	mu       sync.Mutex
	listener func(bool)
}

func (*blipCondition) Fulfilled() bool { return false }

func (c *blipCondition) Listen(fn func(bool)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = fn
	return nil
}

func (c *blipCondition) Unlisten() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = nil
}

func (c *blipCondition) listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener != nil
}

func (c *blipCondition) flip(value bool) {
	c.mu.Lock()
	listener := c.listener
	c.mu.Unlock()
	if listener != nil {
		listener(value)
	}
}

type brokenCondition struct{}

func (brokenCondition) Fulfilled() bool         { return true }
func (brokenCondition) Listen(func(bool)) error { return errors.New("unreachable sensor") }
func (brokenCondition) Unlisten()               {}
