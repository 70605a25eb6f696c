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

package control

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/AliceO2Group/ProcessControl/core/recipe"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
)

const startServices = `
services:
  - name: pump
    initialState: IDLE
`

const startRecipe = `
name: start-pump
description: starts the pump
initial: t0
states:
  - id: starting
    operations:
      - kind: command
        service: pump
        command: START
      - kind: wait
        duration: 1ms
        optional: true
    next: [t-running]
transitions:
  - id: t0
    condition: {kind: always}
    next: [starting]
  - id: t-running
    condition: {kind: state, service: pump, state: EXECUTE}
`

func recipeCommand(services string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringToStringP("var", "e", map[string]string{}, "")
	cmd.Flags().String("services", services, "")
	return cmd
}

var _ = Describe("control", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "peactl-control")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		Expect(os.WriteFile(filepath.Join(dir, "services.yaml"), []byte(startServices), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "start.yaml"), []byte(startRecipe), 0644)).To(Succeed())
	})

	It("turns paths into document URIs", func() {
		uri, err := documentUri("consul://127.0.0.1:8500/pecs/recipes/start")
		Expect(err).NotTo(HaveOccurred())
		Expect(uri).To(Equal("consul://127.0.0.1:8500/pecs/recipes/start"))

		uri, err = documentUri(filepath.Join(dir, "start.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(uri).To(Equal("file://" + filepath.Join(dir, "start.yaml")))
	})

	It("draws recipes as trees", func() {
		r, err := recipe.Parse([]byte(startRecipe), nil)
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		drawRecipe(r, &out)
		Expect(out.String()).To(ContainSubstring("start-pump"))
		Expect(out.String()).To(ContainSubstring("when always"))
		Expect(out.String()).To(ContainSubstring("command pump START"))
		Expect(out.String()).To(ContainSubstring("wait 1ms optional"))
		Expect(out.String()).To(ContainSubstring("when pump is EXECUTE"))
		Expect(out.String()).To(ContainSubstring("end"))
	})

	It("prints the state machine table", func() {
		var out bytes.Buffer
		Expect(StateMachineTable(context.Background(), &cobra.Command{}, nil, &out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("IDLE"))
		Expect(out.String()).To(ContainSubstring("START"))
		Expect(out.String()).To(ContainSubstring("executeEnabled"))
	})

	It("requires a services document for local calls", func() {
		var out bytes.Buffer
		err := CheckRecipeLocal(context.Background(), recipeCommand(""), []string{filepath.Join(dir, "start.yaml")}, &out)
		Expect(err).To(MatchError(ContainSubstring("--services")))
	})

	It("checks recipes locally", func() {
		var out bytes.Buffer
		err := CheckRecipeLocal(context.Background(), recipeCommand(filepath.Join(dir, "services.yaml")), []string{filepath.Join(dir, "start.yaml")}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("recipe start-pump is valid"))
	})

	It("runs recipes locally", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var out bytes.Buffer
		err := RunRecipeLocal(ctx, recipeCommand(filepath.Join(dir, "services.yaml")), []string{filepath.Join(dir, "start.yaml")}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("SERVICE_STATE_CHANGED"))
		Expect(out.String()).To(ContainSubstring("STATE_ACTIVATED"))
		Expect(out.String()).To(ContainSubstring("is COMPLETED"))
	})

	It("orders failures", func() {
		Expect(sortedFailureIds(map[string]string{"b": "x", "a": "y"})).To(Equal([]string{"a", "b"}))
	})
})
