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

package config

import (
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
)

// DefaultSuperUserName is the reserved administrator account name which is
// never renamed by field sync.
const DefaultSuperUserName = "admin"

// Config defines the runtime configuration settings.
type Config struct {
	Logger logrus.FieldLogger

	ListenAddr string

	// UpdateUsername and UpdateEmail enable field sync of the respective
	// profile field during reconciliation.
	UpdateUsername bool
	UpdateEmail    bool

	// SuperUserName is the reserved administrator account name.
	SuperUserName string

	// GuestGroupID and RegisteredGroupID are the well known system groups
	// which group sync rules must not target.
	GuestGroupID      int64
	RegisteredGroupID int64

	// EncryptionSecret is the 32 byte key used to encrypt captured claim
	// payloads at rest. Empty disables encryption.
	EncryptionSecret []byte

	// StateSigningKey signs the realm state tokens, StateExpiration bounds
	// their lifetime.
	StateSigningKey []byte
	StateExpiration time.Duration

	// RealmsConfFilepath points to the realm registration conf file. When
	// empty, realms are loaded from the store.
	RealmsConfFilepath string
	// StoreDSN is the PostgreSQL connection string of the persistent
	// store. Empty selects the in-memory store.
	StoreDSN string

	// TrustedProxyIPs and TrustedProxyNets define the sources allowed to
	// call the admin endpoints.
	TrustedProxyIPs  []*net.IP
	TrustedProxyNets []*net.IPNet

	HTTPTransport http.RoundTripper
}

// NewDefaults creates a Config with the default values filled in.
func NewDefaults() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:8778",

		SuperUserName: DefaultSuperUserName,

		GuestGroupID:      claimmap.DefaultReservedGroups.GuestGroupID,
		RegisteredGroupID: claimmap.DefaultReservedGroups.RegisteredGroupID,

		StateExpiration: 10 * time.Minute,
	}
}

// ReservedGroups returns the configured system group IDs as reserved groups
// for rule validation.
func (c *Config) ReservedGroups() claimmap.ReservedGroups {
	return claimmap.ReservedGroups{
		GuestGroupID:      c.GuestGroupID,
		RegisteredGroupID: c.RegisteredGroupID,
	}
}

// HTTPClient returns a http.Client using the configured transport.
func (c *Config) HTTPClient() *http.Client {
	if c.HTTPTransport == nil {
		return nil
	}

	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: c.HTTPTransport,
	}
}
