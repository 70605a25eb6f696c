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

// Package core is the PECS daemon: it loads the services of the process,
// starts their state machines, and serves the HTTP control API through
// which commands are issued and recipes are run.
package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/AliceO2Group/ProcessControl/common/product"
	"github.com/AliceO2Group/ProcessControl/core/metrics"
	"github.com/AliceO2Group/ProcessControl/core/the"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), "core")

const shutdownTimeout = 5 * time.Second

// RunDaemon is the entry point of the daemon. It returns once the process is
// told to shut down.
func RunDaemon() error {
	if viper.GetBool("verbose") {
		log.WithField("configuration", viper.AllSettings()).Debug("core starting up")
	}
	log.WithField("level", logger.IL_Support).
		Infof("%s core (%s v%s build %s) starting up", product.PRETTY_FULLNAME, product.PRETTY_SHORTNAME, product.VERSION, product.BUILD)

	// We create a context and use its cancel func as a shutdown func to release
	// all resources.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := newGlobalState(ctx, cancel)
	if err != nil {
		return err
	}
	defer the.ClearEventWriter()

	metrics.Register()

	if err = state.services.StartAll(ctx); err != nil {
		return err
	}
	log.WithField("services", len(state.services.List())).Info("services started")

	// Set up channel to receive Unix Signals
	signals(state)

	s := NewHttpService(state.services, state.runner)
	log.WithField("level", logger.IL_Devel).
		Infof("everything initiated and listening on control port: %d", viper.GetInt("listenPort"))

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	state.runner.CancelAll(shutdownCtx)
	if err = s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("core stopped")
	return nil
}
