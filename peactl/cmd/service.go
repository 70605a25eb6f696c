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
	"fmt"

	"github.com/AliceO2Group/ProcessControl/common/product"
	"github.com/AliceO2Group/ProcessControl/peactl/control"
	"github.com/spf13/cobra"
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:     "service",
	Aliases: []string{"svc", "s"},
	Short:   "inspect and command process equipment services",
	Long:    `The service command allows you to perform operations on the services of a process.`,
}

var serviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "list services",
	Long: fmt.Sprintf(`The service list command requests from %s the list of services
and their state. A glob pattern may be given to select services by name.`, product.PRETTY_SHORTNAME),
	Run:  control.WrapCall(control.ListServices),
	Args: cobra.NoArgs,
}

var serviceShowCmd = &cobra.Command{
	Use:     "show [service name]",
	Aliases: []string{"get", "g"},
	Short:   "show service information",
	Long: fmt.Sprintf(`The service show command requests from %s the state, the
procedure and the enabled commands of one service.`, product.PRETTY_SHORTNAME),
	Run:  control.WrapCall(control.ShowService),
	Args: cobra.ExactArgs(1),
}

var serviceCommandCmd = &cobra.Command{
	Use:     "command [service name] [command]",
	Aliases: []string{"cmd", "c"},
	Short:   "send a command to a service",
	Long: `The service command command delivers one lifecycle command, such as START,
HOLD or RESET, to a service. A command that is not enabled in the current
state of the service is reported as rejected.`,
	Run:  control.WrapCall(control.CommandService),
	Args: cobra.ExactArgs(2),
}

var serviceProcedureCmd = &cobra.Command{
	Use:     "procedure [service name] [requested procedure]",
	Aliases: []string{"proc", "p"},
	Short:   "show or request the procedure of a service",
	Long: `The service procedure command shows the requested and current procedure of a
service. When a procedure number is given, it is requested instead and becomes
current on the next START.`,
	Run:  control.WrapCall(control.Procedure),
	Args: cobra.RangeArgs(1, 2),
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(serviceListCmd)
	serviceCmd.AddCommand(serviceShowCmd)
	serviceCmd.AddCommand(serviceCommandCmd)
	serviceCmd.AddCommand(serviceProcedureCmd)

	serviceListCmd.Flags().StringP("filter", "f", "", "glob pattern matched against service names, such as \"pump-*\"")
}
