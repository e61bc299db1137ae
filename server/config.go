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

package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/config"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/identity"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
)

// Config defines a Server's configuration settings.
type Config struct {
	Config *config.Config

	Registry   *realms.Registry
	Reconciler *identity.Reconciler
	Signer     *realms.StateSigner

	Users identity.UserStore
	Store realms.Store

	Catalog claimmap.AttributeCatalog

	Metrics prometheus.Gatherer
}
