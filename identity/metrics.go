/*
 * Copyright 2024 vvLab and its licensors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License, version 3,
 * as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package identity

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keycloakauth",
		Subsystem: "identity",
		Name:      "reconciliations_total",
		Help:      "Total number of identity reconciliations by realm and result.",
	}, []string{"realm", "result"})

	groupSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keycloakauth",
		Subsystem: "identity",
		Name:      "group_sync_operations_total",
		Help:      "Total number of group joins and leaves performed by group sync.",
	}, []string{"realm", "op"})

	conversionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keycloakauth",
		Subsystem: "identity",
		Name:      "attribute_conversion_failures_total",
		Help:      "Total number of claim values no registered converter could apply.",
	}, []string{"realm"})
)

// MustRegisterMetrics registers the reconciler metrics with the provided
// registerer.
func MustRegisterMetrics(registerer prometheus.Registerer) {
	registerer.MustRegister(
		reconciliationsTotal,
		groupSyncTotal,
		conversionFailuresTotal,
	)
}
