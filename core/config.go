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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

func setDefaults() error {
	viper.Set("component", "core")

	viper.SetDefault("listenPort", 47180)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("servicesUri", "")
	viper.SetDefault("recipesUri", "")
	viper.SetDefault("runs.retained", DefaultRetainedRuns)
	viper.SetDefault("kafkaEndpoints", []string{})
	viper.SetDefault("workingDir", "/var/lib/pecs")
	viper.SetDefault("initialState", sm.STARTING.String())
	viper.SetDefault("procedure.resetCurOnResetting", false)
	viper.SetDefault("procedure.resetReqOnResetting", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("config", "")
	return nil
}

func setFlags() error {
	pflag.Int("listenPort", viper.GetInt("listenPort"), "Port of the HTTP control server")
	pflag.String("metrics.path", viper.GetString("metrics.path"), "URI path to metrics endpoint")
	pflag.String("servicesUri", viper.GetString("servicesUri"), "URI of the service definitions document (file:// or consul://)")
	pflag.String("recipesUri", viper.GetString("recipesUri"), "URI of the directory or Consul prefix holding recipes")
	pflag.Int("runs.retained", viper.GetInt("runs.retained"), "Number of finished recipe runs kept for inspection")
	pflag.StringSlice("kafkaEndpoints", viper.GetStringSlice("kafkaEndpoints"), "Kafka brokers to publish events to, none to disable")
	pflag.String("workingDir", viper.GetString("workingDir"), "Writable working directory")
	pflag.String("initialState", viper.GetString("initialState"), "State services enter when started, unless their definition says otherwise")
	pflag.Bool("procedure.resetCurOnResetting", viper.GetBool("procedure.resetCurOnResetting"), "Clear the current procedure on RESETTING")
	pflag.Bool("procedure.resetReqOnResetting", viper.GetBool("procedure.resetReqOnResetting"), "Clear the requested procedure on RESETTING")
	pflag.Bool("verbose", viper.GetBool("verbose"), "Verbose logging")
	pflag.String("config", viper.GetString("config"), "Optional YAML file with any of the settings above")

	pflag.Parse()
	return viper.BindPFlags(pflag.CommandLine)
}

// Bind environment variables with the prefix PECS
// e.g. PECS_LISTENPORT
func bindEnvironmentVariables() {
	viper.SetEnvPrefix("PECS")
	viper.AutomaticEnv()
}

func readConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read configuration file %s: %w", path, err)
	}
	return nil
}

func checkWorkingDirRights() error {
	err := unix.Access(viper.GetString("workingDir"), unix.W_OK)
	if err != nil {
		return errors.New("No write access for core working path \"" + viper.GetString("workingDir") + "\": " + err.Error())
	}
	return nil
}

// Remove trailing '/'
func sanitizeWorkingPath() {
	viper.Set("workingDir", filepath.Clean(viper.GetString("workingDir")))
}

// machineOptions turns the service defaults of the configuration into
// options applied to every service.
func machineOptions() ([]service.MachineOption, error) {
	opts := []service.MachineOption{
		service.WithProcedureOptions(service.ProcedureOptions{
			ResetCurOnResetting: viper.GetBool("procedure.resetCurOnResetting"),
			ResetReqOnResetting: viper.GetBool("procedure.resetReqOnResetting"),
		}),
	}
	if name := viper.GetString("initialState"); name != "" {
		initial := sm.StateFromString(name)
		if initial == sm.UNDEFINED {
			return nil, fmt.Errorf("invalid initialState %q", name)
		}
		opts = append(opts, service.WithInitialState(initial))
	}
	return opts, nil
}

// NewConfig is the constructor for a new config.
func NewConfig() (err error) {
	if err = setDefaults(); err != nil {
		return
	}
	if err = setFlags(); err != nil {
		return
	}
	bindEnvironmentVariables()
	if err = readConfigFile(); err != nil {
		return
	}
	sanitizeWorkingPath()
	if err = checkWorkingDirRights(); err != nil {
		return
	}

	if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return
}
