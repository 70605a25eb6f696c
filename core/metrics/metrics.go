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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "pecs"
)

var (
	ServiceCommandCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "service",
		Name:      "command_count",
		Help:      "The number of commands delivered to services, by outcome.",
	}, []string{"service", "command", "outcome"})
	ServiceState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "service",
		Name:      "state",
		Help:      "1 for the current state of each service, 0 otherwise.",
	}, []string{"service", "state"})
	RecipeRunCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "recipe",
		Name:      "run_count",
		Help:      "The number of recipe runs, by final status.",
	}, []string{"recipe", "status"})
	RecipeTransitionsFired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "recipe",
		Name:      "transitions_fired",
		Help:      "The number of recipe transitions fired.",
	}, []string{"recipe"})
	RecipeStatesActivated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "recipe",
		Name:      "states_activated",
		Help:      "The number of recipe states that entered the marking.",
	}, []string{"recipe"})
	RecipeOperationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "recipe",
		Name:      "operation_failures",
		Help:      "The number of recipe states whose operations failed, stalling their branch.",
	}, []string{"recipe", "state"})
	RecipeOperationLatency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: Namespace,
		Subsystem: "recipe",
		Name:      "operation_latency_seconds",
		Help:      "Time to run the operations of a recipe state.",
	}, []string{"recipe"})
)

var registerMetrics sync.Once

func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(ServiceCommandCount)
		prometheus.MustRegister(ServiceState)
		prometheus.MustRegister(RecipeRunCount)
		prometheus.MustRegister(RecipeTransitionsFired)
		prometheus.MustRegister(RecipeStatesActivated)
		prometheus.MustRegister(RecipeOperationFailures)
		prometheus.MustRegister(RecipeOperationLatency)
	})
}

// SetServiceState moves the state gauge of one service.
func SetServiceState(service, previous, current string) {
	if previous != "" {
		ServiceState.WithLabelValues(service, previous).Set(0)
	}
	ServiceState.WithLabelValues(service, current).Set(1)
}
