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

package cmd

import (
	"github.com/AliceO2Group/ProcessControl/peactl/control"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "inspect and cancel recipe runs",
	Long:  `The run command allows you to follow the recipe runs started on the core.`,
}

var runListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "list recipe runs",
	Long:    `The run list command shows every recipe run of the core, oldest first.`,
	Run:     control.WrapCall(control.ListRuns),
	Args:    cobra.NoArgs,
}

var runShowCmd = &cobra.Command{
	Use:     "show [run id]",
	Aliases: []string{"get", "g"},
	Short:   "show recipe run information",
	Long:    `The run show command shows the status, the marking and the failed states of one recipe run.`,
	Run:     control.WrapCall(control.ShowRun),
	Args:    cobra.ExactArgs(1),
}

var runCancelCmd = &cobra.Command{
	Use:     "cancel [run id]",
	Aliases: []string{"stop", "rm"},
	Short:   "cancel a recipe run",
	Long:    `The run cancel command stops a recipe run. Services keep the state the run left them in.`,
	Run:     control.WrapCall(control.CancelRun),
	Args:    cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runListCmd)
	runCmd.AddCommand(runShowCmd)
	runCmd.AddCommand(runCancelCmd)
}
