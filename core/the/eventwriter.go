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

// Package the holds the process-wide singletons of the daemon.
package the

import (
	"sync"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/sirupsen/logrus"
)

var (
	writer event.Writer
	mu     sync.Mutex
	log    = logger.New(logrus.StandardLogger(), "core")
)

// EventWriter returns the writer shared by every service and recipe run,
// creating it from the kafkaEndpoints setting on first use.
func EventWriter() event.Writer {
	mu.Lock()
	defer mu.Unlock()

	if writer == nil {
		writer = event.NewWriter()
	}
	return writer
}

// ClearEventWriter flushes and closes the shared writer. A later call to
// EventWriter creates a new one.
func ClearEventWriter() {
	mu.Lock()
	defer mu.Unlock()

	if writer == nil {
		return
	}
	log.Debug("closing event writer")
	writer.Close()
	writer = nil
}
