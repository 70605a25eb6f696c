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
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const brewRecipe = `
name: brew
description: heat, hold, release
vars:
  reactor: reactor
  proc: "2"
  hold: 10ms
initial: t0
states:
  - id: prepare
    operations:
      - kind: procedure
        service: "{{ reactor }}"
        procedure: "{{ proc }}"
      - kind: command
        service: "{{ reactor }}"
        command: START
    next: [t-running]
  - id: finish
    operations:
      - kind: wait
        duration: "{{ hold }}"
      - kind: command
        service: "{{ reactor }}"
        command: COMPLETE
        timeout: 1s
    next: [t-done]
transitions:
  - id: t0
    condition: {kind: always}
    next: [prepare]
  - id: t-running
    condition: {kind: state, service: "{{ reactor }}", state: EXECUTE}
    next: [finish]
  - id: t-done
    condition:
      kind: expr
      expression: states["reactor"] == "COMPLETED" && procedures["reactor"] == {{ proc }}
`

var _ = Describe("recipe documents", func() {
	It("parses a recipe with its vars", func() {
		r, err := Parse([]byte(brewRecipe), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Name).To(Equal("brew"))
		Expect(r.Initial).To(Equal("t0"))
		Expect(r.States).To(HaveLen(2))
		Expect(r.States[0].Operations[0]).To(Equal(OperationSpec{Kind: "procedure", Service: "reactor", Procedure: 2}))
		Expect(r.States[1].Operations[0].Duration).To(Equal(10 * time.Millisecond))
		Expect(r.States[1].Operations[1].Timeout).To(Equal(time.Second))
		Expect(r.Transitions[2].Condition.Expression).To(Equal(`states["reactor"] == "COMPLETED" && procedures["reactor"] == 2`))
	})

	It("lets overrides shadow the declared vars", func() {
		r, err := Parse([]byte(brewRecipe), map[string]string{"proc": "5", "reactor": "reactor-2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.States[0].Operations[0].Procedure).To(Equal(5))
		Expect(r.States[0].Operations[0].Service).To(Equal("reactor-2"))
		Expect(r.Transitions[1].Condition.Service).To(Equal("reactor-2"))
	})

	It("does not render the vars block", func() {
		rendered, err := Render([]byte("name: x\nvars:\n  a: \"{{ b }}\"\n"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(rendered)).To(ContainSubstring("{{ b }}"))
	})

	It("keeps fields embedded in text as strings", func() {
		rendered, err := Render([]byte("vars:\n  n: \"3\"\nname: \"batch-{{ n }}\"\n"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(rendered)).To(ContainSubstring("batch-3"))
		Expect(string(rendered)).NotTo(ContainSubstring("{{"))
	})

	It("evaluates fields as expressions", func() {
		rendered, err := Render([]byte("vars:\n  n: \"3\"\nname: \"{{ int(n) * 2 }}\"\n"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(rendered)).To(ContainSubstring("name: 6"))
	})

	It("fails on unknown variables", func() {
		_, err := Render([]byte("name: \"{{ missing }}\"\n"), nil)
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("rejects documents that do not match the schema",
		func(doc string) {
			_, err := Parse([]byte(doc), nil)
			Expect(err).To(MatchError(ErrSchema))
		},
		Entry("no initial transition", "name: x\ntransitions: [{id: t0, condition: {kind: always}}]\n"),
		Entry("no transitions", "name: x\ninitial: t0\ntransitions: []\n"),
		Entry("unknown field", "name: x\ninitial: t0\ncolour: red\ntransitions: [{id: t0, condition: {kind: always}}]\n"),
		Entry("bad duration", "name: x\ninitial: t0\nstates: [{id: a, operations: [{kind: wait, duration: soon}]}]\ntransitions: [{id: t0, condition: {kind: always}}]\n"),
		Entry("negative procedure", "name: x\ninitial: t0\nstates: [{id: a, operations: [{kind: procedure, procedure: -1}]}]\ntransitions: [{id: t0, condition: {kind: always}}]\n"),
		Entry("condition without kind", "name: x\ninitial: t0\ntransitions: [{id: t0, condition: {}}]\n"),
	)

	It("reports every schema violation", func() {
		err := CheckSchema([]byte("description: 3\ncolour: red\n"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("colour"))
		Expect(err.Error()).To(ContainSubstring("name"))
	})

	Describe("sources", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "pecs-recipes")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
			Expect(os.WriteFile(filepath.Join(dir, "brew.yaml"), []byte(brewRecipe), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "README"), []byte("not a recipe"), 0644)).To(Succeed())
		})

		It("loads a recipe by URI", func() {
			r, err := Load("file://"+filepath.Join(dir, "brew.yaml"), map[string]string{"proc": "3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.States[0].Operations[0].Procedure).To(Equal(3))
		})

		It("lists the recipes of a source", func() {
			uris, err := List("file://" + dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(uris).To(Equal([]string{"file://" + dir + "/brew.yaml"}))
		})

		It("fails on missing recipes", func() {
			_, err := Load("file://"+filepath.Join(dir, "rinse.yaml"), nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
