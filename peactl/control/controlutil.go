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
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/AliceO2Group/ProcessControl/core/recipe"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/AliceO2Group/ProcessControl/core/workflow"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"
)

var (
	blue   = color.New(color.FgHiBlue).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	grey   = color.New(color.FgWhite).SprintFunc()
)

func colorState(st string) string {
	s := sm.StateFromString(st)
	switch {
	case s == sm.EXECUTE:
		return green(st)
	case s == sm.IDLE || s == sm.COMPLETED:
		return blue(st)
	case s == sm.ABORTED || s == sm.ABORTING || s == sm.STOPPED || s == sm.STOPPING:
		return red(st)
	case s.IsTransitional() || s == sm.PAUSED || s == sm.HELD:
		return yellow(st)
	default:
		return grey(st)
	}
}

func colorRunStatus(st workflow.Status) string {
	switch st {
	case workflow.RUNNING:
		return green(st.String())
	case workflow.COMPLETED:
		return blue(st.String())
	case workflow.CANCELLED:
		return red(st.String())
	default:
		return yellow(st.String())
	}
}

func newTable(o io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(o)
	table.SetHeader(headers)
	table.SetBorder(false)
	fg := tablewriter.Colors{tablewriter.Bold, tablewriter.FgYellowColor}
	fgColSlice := make([]tablewriter.Colors, len(headers))
	for i := 0; i < len(headers); i++ {
		fgColSlice[i] = fg
	}
	table.SetHeaderColor(fgColSlice...)
	return table
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

func describeOperation(op recipe.OperationSpec) string {
	parts := []string{op.Kind}
	switch op.Kind {
	case "command":
		parts = append(parts, op.Service, op.Command)
	case "procedure":
		parts = append(parts, op.Service, fmt.Sprintf("%d", op.Procedure))
	case "wait":
		parts = append(parts, op.Duration.String())
	case "await":
		parts = append(parts, op.Service, op.State)
	default:
		if op.Service != "" {
			parts = append(parts, op.Service)
		}
	}
	if op.Timeout > 0 {
		parts = append(parts, grey("timeout "+op.Timeout.String()))
	}
	if op.Optional {
		parts = append(parts, grey("optional"))
	}
	return strings.Join(parts, " ")
}

func describeCondition(c recipe.ConditionSpec) string {
	switch c.Kind {
	case "state":
		return fmt.Sprintf("%s is %s", c.Service, c.State)
	case "expr":
		return c.Expression
	}
	return c.Kind
}

// drawRecipe prints a recipe as the tree of its net, unrolled from the
// initial transition. States reached again are printed once and then
// referenced.
func drawRecipe(r *recipe.Recipe, o io.Writer) {
	states := make(map[string]recipe.StateSpec, len(r.States))
	for _, s := range r.States {
		states[s.Id] = s
	}
	transitions := make(map[string]recipe.TransitionSpec, len(r.Transitions))
	for _, t := range r.Transitions {
		transitions[t.Id] = t
	}

	tree := treeprint.New()
	tree.SetValue(r.Name)
	if r.Description != "" {
		tree.SetMetaValue(grey(r.Description))
	}

	seen := make(map[string]bool)
	var addTransition func(branch treeprint.Tree, id string)
	addTransition = func(branch treeprint.Tree, id string) {
		t, ok := transitions[id]
		if !ok {
			branch.AddMetaNode(red("missing"), id)
			return
		}
		if seen["t/"+id] {
			branch.AddMetaNode(grey("see above"), id)
			return
		}
		seen["t/"+id] = true
		tb := branch.AddMetaBranch(yellow("when "+describeCondition(t.Condition)), id)
		if len(t.Next) == 0 {
			tb.AddNode(blue("end"))
		}
		for _, sid := range t.Next {
			s, ok := states[sid]
			if !ok {
				tb.AddMetaNode(red("missing"), sid)
				continue
			}
			if seen["s/"+sid] {
				tb.AddMetaNode(grey("see above"), sid)
				continue
			}
			seen["s/"+sid] = true
			sb := tb.AddMetaBranch(green("state"), sid)
			for i, op := range s.Operations {
				sb.AddMetaNode(grey(fmt.Sprintf("#%d", i)), describeOperation(op))
			}
			for _, next := range s.Next {
				addTransition(sb, next)
			}
		}
	}
	addTransition(tree, r.Initial)
	_, _ = fmt.Fprint(o, tree.String())
}

func drawStateMachineTable(o io.Writer) {
	table := newTable(o, []string{"from", "event", "guard", "to"})
	for _, row := range sm.Table() {
		guard := string(row.Guard)
		if row.Guard == sm.NoGuard {
			guard = grey("-")
		}
		table.Append([]string{colorState(row.From.String()), row.Event.String(), guard, colorState(row.To.String())})
	}
	table.Render()
}

func sortedFailureIds(failures map[string]string) []string {
	ids := make([]string, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
