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

package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap/conversion"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/config"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/encryption"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/identity"
	identityManagers "github.com/vvlab-dev/ConcreteCMS-keycloak/identity/managers"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/managers"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/server"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// Manager names used during assembly.
const (
	managerNameStore      = "store"
	managerNameCatalog    = "catalog"
	managerNameConverters = "converters"
	managerNameRealms     = "realms"
	managerNameSigner     = "signer"
	managerNameReconciler = "reconciler"
	managerNameServer     = "server"
)

// Config is a typed application config which represents the user accessible
// config params.
type Config struct {
	Listen string

	RealmsConf     string
	AttributesConf string

	StoreDSN string

	EncryptionSecret string
	StateSigningKey  string
	StateExpiration  time.Duration

	UpdateUsername bool
	UpdateEmail    bool
	SuperUserName  string

	GuestGroupID      int64
	RegisteredGroupID int64

	TrustedProxy []string

	Insecure bool
}

// Bootstrap is a data structure to hold the assembled service. The resulting
// Bootstrap struct can be used to retrieve the configured managers and the
// server.
type Bootstrap interface {
	Config() *config.Config
	Managers() *managers.Managers
	Server() *server.Server
}

// Implementation of the bootstrap interface.
type bootstrap struct {
	encryptionKey *[encryption.KeySize]byte

	cfg      *config.Config
	managers *managers.Managers
	srv      *server.Server
}

// Config returns the server configuration.
func (bs *bootstrap) Config() *config.Config {
	return bs.cfg
}

// Managers returns the bootstrapped managers.
func (bs *bootstrap) Managers() *managers.Managers {
	return bs.managers
}

// Server returns the bootstrapped HTTP server.
func (bs *bootstrap) Server() *server.Server {
	return bs.srv
}

// Boot is the main entry point to bootstrap the service after validating the
// given configuration. This function should be used by consumers which want
// to embed the service as a library.
func Boot(ctx context.Context, bsConf *Config, serverConf *config.Config) (Bootstrap, error) {
	bs := &bootstrap{
		cfg: serverConf,
	}

	if err := bs.initialize(bsConf); err != nil {
		return nil, err
	}
	if err := bs.setup(ctx, bsConf); err != nil {
		return nil, err
	}

	return bs, nil
}

// initialize validates the provided parameters and adds them to the
// associated Bootstrap data.
func (bs *bootstrap) initialize(cfg *Config) error {
	logger := bs.cfg.Logger
	var err error

	if cfg.Listen != "" {
		bs.cfg.ListenAddr = cfg.Listen
	}
	if _, _, err = net.SplitHostPort(bs.cfg.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address: %v", err)
	}

	for _, trusted := range cfg.TrustedProxy {
		if ip := net.ParseIP(trusted); ip != nil {
			bs.cfg.TrustedProxyIPs = append(bs.cfg.TrustedProxyIPs, &ip)
			continue
		}
		_, ipNet, cidrErr := net.ParseCIDR(trusted)
		if cidrErr != nil {
			return fmt.Errorf("invalid trusted-proxy value %s", trusted)
		}
		bs.cfg.TrustedProxyNets = append(bs.cfg.TrustedProxyNets, ipNet)
	}

	if cfg.EncryptionSecret != "" {
		bs.encryptionKey, err = encryption.ParseKey([]byte(cfg.EncryptionSecret))
		if err != nil {
			return fmt.Errorf("invalid encryption secret: %v", err)
		}
		bs.cfg.EncryptionSecret = bs.encryptionKey[:]
	} else {
		logger.Warnln("missing encryption secret, captured claims are stored unencrypted")
	}

	if cfg.StateSigningKey != "" {
		bs.cfg.StateSigningKey = []byte(cfg.StateSigningKey)
	} else {
		logger.Warnln("missing state signing key, using random key, state tokens do not survive restarts")
		randomKey, keyErr := encryption.GenerateKey()
		if keyErr != nil {
			return keyErr
		}
		bs.cfg.StateSigningKey = randomKey[:]
	}
	if cfg.StateExpiration > 0 {
		bs.cfg.StateExpiration = cfg.StateExpiration
	}

	bs.cfg.UpdateUsername = cfg.UpdateUsername
	bs.cfg.UpdateEmail = cfg.UpdateEmail
	if cfg.SuperUserName != "" {
		bs.cfg.SuperUserName = cfg.SuperUserName
	}
	if cfg.GuestGroupID > 0 {
		bs.cfg.GuestGroupID = cfg.GuestGroupID
	}
	if cfg.RegisteredGroupID > 0 {
		bs.cfg.RegisteredGroupID = cfg.RegisteredGroupID
	}

	bs.cfg.RealmsConfFilepath = cfg.RealmsConf
	bs.cfg.StoreDSN = strings.TrimSpace(cfg.StoreDSN)

	var tlsClientConfig *tls.Config
	if cfg.Insecure {
		tlsClientConfig = utils.InsecureSkipVerifyTLSConfig
		logger.Warnln("insecure mode, TLS client connections are susceptible to man-in-the-middle attacks")
	}
	bs.cfg.HTTPTransport = utils.HTTPTransportWithTLSClientConfig(tlsClientConfig)

	return nil
}

// setup assembles the service components in dependency order.
func (bs *bootstrap) setup(ctx context.Context, cfg *Config) error {
	logger := bs.cfg.Logger
	mgrs := managers.New()

	catalog, err := LoadAttributeCatalog(cfg.AttributesConf)
	if err != nil {
		return fmt.Errorf("failed to load attributes conf: %v", err)
	}
	mgrs.Set(managerNameCatalog, catalog)

	converters := conversion.NewRegistry(logger)
	for _, converter := range []conversion.Converter{
		conversion.NewBooleanConverter(),
		conversion.NewNumberConverter(),
		conversion.NewTextConverter(),
		conversion.NewMultilineTextConverter(),
		conversion.NewAddressConverter(nil),
	} {
		if err := converters.Register(converter); err != nil {
			return err
		}
	}
	mgrs.Set(managerNameConverters, converters)

	store, err := bs.setupStore(ctx)
	if err != nil {
		return err
	}
	mgrs.Set(managerNameStore, store)

	registry, err := realms.NewRegistry(ctx, bs.cfg.RealmsConfFilepath, store, catalog, bs.cfg.ReservedGroups(), logger)
	if err != nil {
		return fmt.Errorf("failed to create realm registry: %v", err)
	}
	mgrs.Set(managerNameRealms, registry)

	signer, err := realms.NewStateSigner(bs.cfg.StateSigningKey, bs.cfg.StateExpiration)
	if err != nil {
		return fmt.Errorf("failed to create state signer: %v", err)
	}
	mgrs.Set(managerNameSigner, signer)

	// The reconciler picks up the realm registry in mgrs.Apply below.
	reconciler := identity.NewReconciler(bs.cfg, store, store, store, converters, catalog)
	mgrs.Set(managerNameReconciler, reconciler)

	metricsRegistry := prometheus.NewRegistry()
	identity.MustRegisterMetrics(metricsRegistry)

	srv, err := server.NewServer(&server.Config{
		Config: bs.cfg,

		Registry:   registry,
		Reconciler: reconciler,
		Signer:     signer,

		Users: store,
		Store: store,

		Catalog: catalog,

		Metrics: metricsRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}
	mgrs.Set(managerNameServer, srv)

	if err := mgrs.Apply(); err != nil {
		return err
	}

	bs.managers = mgrs
	bs.srv = srv

	return nil
}

// Store combines the user, attribute, group and realm stores backing the
// service. Both provided store implementations satisfy it.
type Store interface {
	identity.UserStore
	identity.AttributeStore
	identity.GroupStore
	realms.Store
}

// setupStore selects the persistent store. A configured DSN selects
// PostgreSQL, otherwise everything is kept in process memory.
func (bs *bootstrap) setupStore(ctx context.Context) (Store, error) {
	logger := bs.cfg.Logger

	if bs.cfg.StoreDSN != "" {
		store, err := identityManagers.NewPGStore(ctx, bs.cfg.StoreDSN, bs.encryptionKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect store: %v", err)
		}
		logger.Infoln("using PostgreSQL store")
		return store, nil
	}

	logger.Warnln("no store DSN configured, using in-memory store, data does not survive restarts")
	return identityManagers.NewMemoryStore(bs.encryptionKey, logger), nil
}
