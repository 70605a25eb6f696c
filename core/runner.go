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

package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/core/recipe"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/workflow"
)

var ErrRunNotFound = errors.New("recipe run not found")

// Run is one recipe run started by a Runner.
type Run struct {
	// ctx scopes the operations of the run. It is cancelled once the run
	// has ended, however it ended.
	ctx       context.Context
	engine    *workflow.Engine
	uri       string
	vars      map[string]string
	startedAt time.Time
	cancel    context.CancelFunc
}

// RunInfo is a snapshot of a Run, as served over HTTP.
type RunInfo struct {
	Id        string            `json:"id"`
	Recipe    string            `json:"recipe"`
	Uri       string            `json:"uri"`
	Vars      map[string]string `json:"vars,omitempty"`
	Status    workflow.Status   `json:"status"`
	Marking   []string          `json:"marking"`
	Failures  map[string]string `json:"failures,omitempty"`
	StartedAt time.Time         `json:"startedAt"`
}

func (r *Run) Info() RunInfo {
	return RunInfo{
		Id:        r.engine.RunId(),
		Recipe:    r.engine.Recipe(),
		Uri:       r.uri,
		Vars:      r.vars,
		Status:    r.engine.Status(),
		Marking:   r.engine.Marking(),
		Failures:  r.engine.Failures(),
		StartedAt: r.startedAt,
	}
}

// Wait blocks until the run completes or is cancelled, or ctx is done.
func (r *Run) Wait(ctx context.Context) error {
	return r.engine.Wait(ctx)
}

// DefaultRetainedRuns is how many finished runs a Runner keeps by default.
const DefaultRetainedRuns = 100

// Runner starts recipe runs against the services of the process and keeps
// track of them. Runs still going are always kept; of the finished ones,
// only the most recent are.
type Runner struct {
	mu   sync.RWMutex
	runs map[string]*Run

	ctx        context.Context
	services   *service.Manager
	writer     event.Writer
	recipesUri string
	retained   int
}

type RunnerOption func(*Runner)

// WithRetainedRuns sets how many finished runs are kept. Older finished
// runs are forgotten.
func WithRetainedRuns(n int) RunnerOption {
	return func(rn *Runner) {
		if n >= 0 {
			rn.retained = n
		}
	}
}

// NewRunner creates a Runner whose runs all end when ctx is done. Recipe
// URIs without a scheme are resolved against recipesUri.
func NewRunner(ctx context.Context, services *service.Manager, writer event.Writer, recipesUri string, opts ...RunnerOption) *Runner {
	if writer == nil {
		writer = &event.DummyWriter{}
	}
	rn := &Runner{
		runs:       make(map[string]*Run),
		ctx:        ctx,
		services:   services,
		writer:     writer,
		recipesUri: strings.TrimSuffix(recipesUri, "/"),
		retained:   DefaultRetainedRuns,
	}
	for _, opt := range opts {
		opt(rn)
	}
	return rn
}

// ResolveUri turns a recipe name such as brew.yaml into a document URI
// below the configured recipes source.
func (rn *Runner) ResolveUri(uri string) (string, error) {
	if strings.Contains(uri, "://") {
		return uri, nil
	}
	if rn.recipesUri == "" {
		return "", fmt.Errorf("no recipes source configured to resolve %s", uri)
	}
	return rn.recipesUri + "/" + strings.TrimPrefix(uri, "/"), nil
}

// Recipes lists the recipe documents of the configured source.
func (rn *Runner) Recipes() ([]string, error) {
	if rn.recipesUri == "" {
		return []string{}, nil
	}
	return recipe.List(rn.recipesUri)
}

// Check loads and builds a recipe without running it.
func (rn *Runner) Check(uri string, vars map[string]string) (*recipe.Recipe, *workflow.Net, error) {
	resolved, err := rn.ResolveUri(uri)
	if err != nil {
		return nil, nil, err
	}
	r, err := recipe.Load(resolved, vars)
	if err != nil {
		return nil, nil, err
	}
	net, err := r.Build(recipe.Env{Services: rn.services})
	if err != nil {
		return nil, nil, err
	}
	return r, net, nil
}

// Start loads the recipe at uri and starts running it.
func (rn *Runner) Start(uri string, vars map[string]string) (*Run, error) {
	r, net, err := rn.Check(uri, vars)
	if err != nil {
		return nil, err
	}
	resolved, _ := rn.ResolveUri(uri)

	engine := workflow.NewEngine(net,
		workflow.WithRecipeName(r.Name),
		workflow.WithSubscriber(rn.writer.WriteEvent),
	)
	ctx, cancel := context.WithCancel(rn.ctx)
	run := &Run{
		ctx:       ctx,
		engine:    engine,
		uri:       resolved,
		vars:      vars,
		startedAt: time.Now(),
		cancel:    cancel,
	}

	rn.mu.Lock()
	rn.runs[engine.RunId()] = run
	rn.mu.Unlock()

	if _, err = engine.Run(ctx); err != nil {
		rn.mu.Lock()
		delete(rn.runs, engine.RunId())
		rn.mu.Unlock()
		cancel()
		return nil, err
	}
	go rn.release(run)
	log.WithField("run", engine.RunId()).
		WithField("recipe", r.Name).
		Info("recipe run started")
	return run, nil
}

// release lets go of the context of run once it has ended, then forgets
// the oldest finished runs beyond the retained count.
func (rn *Runner) release(run *Run) {
	_ = run.engine.Wait(context.Background())
	run.cancel()
	rn.evict()
}

func (rn *Runner) evict() {
	rn.mu.Lock()
	defer rn.mu.Unlock()

	finished := make([]*Run, 0, len(rn.runs))
	for _, run := range rn.runs {
		if run.engine.Status().IsTerminal() {
			finished = append(finished, run)
		}
	}
	if len(finished) <= rn.retained {
		return
	}
	sortRuns(finished)
	for _, run := range finished[:len(finished)-rn.retained] {
		delete(rn.runs, run.engine.RunId())
	}
}

func sortRuns(runs []*Run) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].startedAt.Equal(runs[j].startedAt) {
			return runs[i].engine.RunId() < runs[j].engine.RunId()
		}
		return runs[i].startedAt.Before(runs[j].startedAt)
	})
}

func (rn *Runner) Get(id string) (*Run, error) {
	rn.mu.RLock()
	defer rn.mu.RUnlock()
	run, ok := rn.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// List returns every run, oldest first.
func (rn *Runner) List() []*Run {
	rn.mu.RLock()
	out := make([]*Run, 0, len(rn.runs))
	for _, run := range rn.runs {
		out = append(out, run)
	}
	rn.mu.RUnlock()

	sortRuns(out)
	return out
}

// Cancel stops a run and waits until its engine has let go of its
// conditions. Cancelling a finished run is a no-op.
func (rn *Runner) Cancel(ctx context.Context, id string) (*Run, error) {
	run, err := rn.Get(id)
	if err != nil {
		return nil, err
	}
	run.cancel()
	err = run.engine.Wait(ctx)
	if err != nil && !errors.Is(err, workflow.ErrCancelled) {
		return run, err
	}
	return run, nil
}

// CancelAll stops every run still going.
func (rn *Runner) CancelAll(ctx context.Context) {
	for _, run := range rn.List() {
		if run.engine.Status().IsTerminal() {
			continue
		}
		if _, err := rn.Cancel(ctx, run.engine.RunId()); err != nil {
			log.WithError(err).
				WithField("run", run.engine.RunId()).
				Warn("cannot cancel recipe run")
		}
	}
}
