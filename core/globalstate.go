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

	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/the"
	"github.com/spf13/viper"
)

// newGlobalState loads the services of the process and the runner for its
// recipes. Services are not started yet.
func newGlobalState(ctx context.Context, shutdown func()) (*globalState, error) {
	machineOpts, err := machineOptions()
	if err != nil {
		return nil, err
	}
	opts := []service.Option{
		service.WithEventWriter(the.EventWriter()),
		service.WithBinding(service.LogBinding{}),
		service.WithMachineOptions(machineOpts...),
	}

	services := service.NewManager()
	if uri := viper.GetString("servicesUri"); uri != "" {
		defs, err := service.LoadDefinitions(uri)
		if err != nil {
			return nil, err
		}
		services, err = service.NewManagerFromDefinitions(defs, opts...)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("no servicesUri configured, running without services")
	}

	state := &globalState{
		shutdown: shutdown,
		services: services,
		runner:   NewRunner(ctx, services, the.EventWriter(), viper.GetString("recipesUri"),
			WithRetainedRuns(viper.GetInt("runs.retained"))),
	}
	return state, nil
}

type globalState struct {
	shutdown func()

	// uses locks, so thread safe
	services *service.Manager
	runner   *Runner
}
