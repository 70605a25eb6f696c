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
	"os"
	"path/filepath"

	"github.com/AliceO2Group/ProcessControl/core/recipe"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/AliceO2Group/ProcessControl/core/workflow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
)

var _ = Describe("recipe runner", func() {
	var (
		ctx    context.Context
		dir    string
		runner *Runner
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() { cancel() })

		var err error
		dir, err = os.MkdirTemp("", "pecs-runner")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		Expect(os.WriteFile(filepath.Join(dir, "fill.yaml"), []byte(fillRecipe), 0644)).To(Succeed())

		services, err := service.NewManagerFromDefinitions([]service.Definition{{Name: "pump", InitialState: sm.IDLE}})
		Expect(err).NotTo(HaveOccurred())
		Expect(services.StartAll(ctx)).To(Succeed())
		runner = NewRunner(ctx, services, nil, "file://"+dir+"/")
	})

	It("resolves recipe names against the recipes source", func() {
		Expect(runner.ResolveUri("fill.yaml")).To(Equal("file://" + dir + "/fill.yaml"))
		Expect(runner.ResolveUri("consul://host/recipes/fill.yaml")).To(Equal("consul://host/recipes/fill.yaml"))

		bare := NewRunner(ctx, service.NewManager(), nil, "")
		_, err := bare.ResolveUri("fill.yaml")
		Expect(err).To(HaveOccurred())
		Expect(bare.Recipes()).To(BeEmpty())
	})

	It("does not start recipes that do not build", func() {
		Expect(os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
name: bad
initial: t0
transitions:
  - id: t0
    condition: {kind: state, service: boiler, state: IDLE}
`), 0644)).To(Succeed())
		_, err := runner.Start("bad.yaml", nil)
		Expect(err).To(MatchError(service.ErrServiceNotFound))
		Expect(runner.List()).To(BeEmpty())
	})

	It("rejects unknown operation kinds", func() {
		_, _, err := runner.Check("fill.yaml", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.WriteFile(filepath.Join(dir, "odd.yaml"), []byte(`
name: odd
initial: t0
states: [{id: a, operations: [{kind: teleport}]}]
transitions: [{id: t0, condition: {kind: always}, next: [a]}]
`), 0644)).To(Succeed())
		_, _, err = runner.Check("odd.yaml", nil)
		Expect(err).To(MatchError(recipe.ErrUnknownKind))
	})

	It("cancels every run still going", func() {
		first, err := runner.Start("fill.yaml", nil)
		Expect(err).NotTo(HaveOccurred())
		second, err := runner.Start("fill.yaml", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(runner.List()).To(ConsistOf(first, second))

		runner.CancelAll(ctx)
		Expect(first.Info().Status).To(Equal(workflow.CANCELLED))
		Expect(second.Info().Status).To(Equal(workflow.CANCELLED))

		_, err = runner.Cancel(ctx, first.Info().Id)
		Expect(err).NotTo(HaveOccurred())
	})
})

const instantRecipe = `
name: instant
initial: t0
transitions:
  - id: t0
    condition: {kind: always}
`

var _ = Describe("recipe run retention", func() {
	var (
		ctx    context.Context
		dir    string
		runner *Runner
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() { cancel() })

		var err error
		dir, err = os.MkdirTemp("", "pecs-retention")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		Expect(os.WriteFile(filepath.Join(dir, "instant.yaml"), []byte(instantRecipe), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "fill.yaml"), []byte(fillRecipe), 0644)).To(Succeed())

		services, err := service.NewManagerFromDefinitions([]service.Definition{{Name: "pump", InitialState: sm.IDLE}})
		Expect(err).NotTo(HaveOccurred())
		Expect(services.StartAll(ctx)).To(Succeed())
		runner = NewRunner(ctx, services, nil, "file://"+dir+"/", WithRetainedRuns(1))
	})

	completed := func(run *Run) func() workflow.Status {
		return func() workflow.Status { return run.Info().Status }
	}

	It("releases the context of a run once it has ended", func() {
		run, err := runner.Start("instant.yaml", nil)
		Expect(err).NotTo(HaveOccurred())
		Eventually(completed(run)).Should(Equal(workflow.COMPLETED))
		Eventually(run.ctx.Done()).Should(BeClosed())
		Expect(ctx.Err()).NotTo(HaveOccurred())
	})

	It("keeps only the most recent finished runs", func() {
		var last *Run
		for i := 0; i < 3; i++ {
			run, err := runner.Start("instant.yaml", nil)
			Expect(err).NotTo(HaveOccurred())
			Eventually(completed(run)).Should(Equal(workflow.COMPLETED))
			last = run
		}
		Eventually(runner.List).Should(ConsistOf(last))

		_, err := runner.Get(last.Info().Id)
		Expect(err).NotTo(HaveOccurred())
	})

	It("never forgets runs still going", func() {
		going, err := runner.Start("fill.yaml", nil)
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 2; i++ {
			run, err := runner.Start("instant.yaml", nil)
			Expect(err).NotTo(HaveOccurred())
			Eventually(completed(run)).Should(Equal(workflow.COMPLETED))
		}
		Eventually(func() int { return len(runner.List()) }).Should(Equal(2))
		Expect(runner.Get(going.Info().Id)).To(BeIdenticalTo(going))
		Expect(going.Info().Status).To(Equal(workflow.RUNNING))
	})
})

var _ = Describe("daemon configuration", func() {
	AfterEach(func() {
		viper.Reset()
	})

	It("builds machine options from the settings", func() {
		viper.Set("initialState", "IDLE")
		viper.Set("procedure.resetCurOnResetting", true)
		opts, err := machineOptions()
		Expect(err).NotTo(HaveOccurred())

		m := service.NewMachine(opts...)
		Expect(m.Start(context.Background())).To(Succeed())
		Expect(m.State()).To(Equal(sm.IDLE))
	})

	It("rejects unknown initial states", func() {
		viper.Set("initialState", "BREWING")
		_, err := machineOptions()
		Expect(err).To(HaveOccurred())
	})
})
