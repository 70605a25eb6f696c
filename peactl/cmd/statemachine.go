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

// stateMachineCmd represents the statemachine command
var stateMachineCmd = &cobra.Command{
	Use:     "statemachine",
	Aliases: []string{"sm"},
	Short:   "print the service state machine",
	Long: `The statemachine command prints the transition table every service follows:
the source state, the command, the guard consulted if any and the target state.`,
	Run:  control.WrapLocalCall(control.StateMachineTable),
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(stateMachineCmd)
}
