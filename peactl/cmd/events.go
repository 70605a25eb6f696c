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
	"github.com/AliceO2Group/ProcessControl/peactl/app"
	"github.com/AliceO2Group/ProcessControl/peactl/control"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"watch", "ev"},
	Short:   "follow service and recipe events",
	Long: fmt.Sprintf(`The events command follows the events %s publishes on Kafka:
service state changes, armed transitions, activated states and completed
recipe runs. It runs until interrupted.`, product.PRETTY_SHORTNAME),
	Run:  control.WrapStreamingCall(control.WatchEvents),
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringP("group", "g", app.NAME, "Kafka consumer group")
	eventsCmd.Flags().Duration("timeout", 0, "stop following after this long")
}
