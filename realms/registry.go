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

package realms

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"
	"gopkg.in/yaml.v2"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// RegistryData is the structure of the realm registration conf file.
type RegistryData struct {
	Realms []*Realm `yaml:"realms"`
}

// Registry holds the registered realms, loaded from a registration conf
// file or from a Store.
type Registry struct {
	mutex sync.RWMutex

	realms map[string]*Realm

	store    Store
	catalog  claimmap.AttributeCatalog
	reserved claimmap.ReservedGroups

	logger logrus.FieldLogger
}

// NewRegistry creates a new realm Registry with the provided parameters. A
// non-empty registration conf filepath takes precedence over the provided
// store, which may be nil.
func NewRegistry(ctx context.Context, registrationConfFilepath string, store Store, catalog claimmap.AttributeCatalog, reserved claimmap.ReservedGroups, logger logrus.FieldLogger) (*Registry, error) {
	registryData := &RegistryData{}

	if registrationConfFilepath != "" {
		logger.Debugf("parsing realm registration conf from %v", registrationConfFilepath)
		registryFile, err := ioutil.ReadFile(registrationConfFilepath)
		if err != nil {
			return nil, err
		}

		err = yaml.Unmarshal(registryFile, registryData)
		if err != nil {
			return nil, err
		}
	} else if store != nil {
		stored, err := store.All(ctx)
		if err != nil {
			return nil, err
		}
		registryData.Realms = stored
	}

	r := &Registry{
		realms: make(map[string]*Realm),

		store:    store,
		catalog:  catalog,
		reserved: reserved,

		logger: logger,
	}

	for _, realm := range registryData.Realms {
		validateErr := realm.Validate()
		fields := logrus.Fields{
			"handle":               realm.Handle,
			"realm_root_url":       realm.RealmRootURL,
			"client_id":            realm.ClientID,
			"with_client_secret":   realm.ClientSecret != "",
			"sort":                 realm.Sort,
			"registration_enabled": realm.RegistrationEnabled,
			"catch_all":            realm.IsCatchAll(),
		}

		if validateErr != nil {
			logger.WithError(validateErr).WithFields(fields).Warnln("skipped registration of invalid realm entry")
			continue
		}
		if registerErr := r.Register(realm); registerErr != nil {
			logger.WithError(registerErr).WithFields(fields).Warnln("skipped registration of invalid realm")
			continue
		}

		logger.WithFields(fields).Debugln("registered realm")
	}

	r.warnCatchAllOrder()

	return r, nil
}

// Register adds the provided validated realm to the registry. Realms without
// a handle get a generated one.
func (r *Registry) Register(realm *Realm) error {
	if realm.Handle == "" {
		realm.Handle = uuid.NewV4().String()
		r.logger.WithField("handle", realm.Handle).Debugln("realm has no handle, generated one")
	}
	if realm.RealmRootURL == "" {
		return errors.New("no realm root URL")
	}

	claimMapErrors := utils.NewErrorList()
	realm.InvalidateClaimMap()
	realm.ClaimMap(r.catalog, r.reserved, claimMapErrors)
	for _, err := range claimMapErrors.Errors() {
		r.logger.WithError(err).WithField("handle", realm.Handle).Warnln("realm claim map problem")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.realms[realm.Handle] = realm

	return nil
}

// Get returns the registered realm for the provided handle.
func (r *Registry) Get(ctx context.Context, handle string) (*Realm, bool) {
	if handle == "" {
		return nil, false
	}

	r.mutex.RLock()
	realm, ok := r.realms[handle]
	r.mutex.RUnlock()

	return realm, ok
}

// List returns all registered realms in ascending sort order. Ties are
// broken by handle so the order is stable.
func (r *Registry) List(ctx context.Context) []*Realm {
	r.mutex.RLock()
	sorted := make([]*Realm, 0, len(r.realms))
	for _, realm := range r.realms {
		sorted = append(sorted, realm)
	}
	r.mutex.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Sort != sorted[j].Sort {
			return sorted[i].Sort < sorted[j].Sort
		}
		return sorted[i].Handle < sorted[j].Handle
	})

	return sorted
}

// Select picks the realm handling the provided email from the registered
// realms.
func (r *Registry) Select(ctx context.Context, email string) (*Realm, error) {
	return Select(r.List(ctx), email)
}

// EmailRequired returns true when an email address is needed before a realm
// can be selected.
func (r *Registry) EmailRequired(ctx context.Context) bool {
	return EmailRequired(r.List(ctx))
}

// ReplaceAll validates the provided realms and replaces the full registered
// set with them, deleting realms no longer present. All validation problems
// are recorded in the provided error list and nothing is changed unless the
// whole batch is valid. The discovery snapshot of every realm is refreshed
// with the provided HTTP client as part of validation.
func (r *Registry) ReplaceAll(ctx context.Context, incoming []*Realm, client *http.Client, errorsOut *utils.ErrorList) error {
	for _, realm := range incoming {
		if err := realm.Validate(); err != nil {
			errorsOut.Add(err)
			continue
		}

		if realm.ClaimMapData != "" {
			realm.InvalidateClaimMap()
			if m := claimmap.Unserialize(realm.ClaimMapData, r.catalog, r.reserved, errorsOut); m == nil {
				continue
			}
		}

		metadata, err := oidc.FetchProviderMetadata(ctx, client, realm.RealmRootURL)
		if err != nil {
			errorsOut.Addf("realm %s: %v", realm.describe(), err)
			continue
		}
		realm.OpenIDConfiguration = metadata
	}

	if !errorsOut.Empty() {
		return errorsOut.Err()
	}

	incomingHandles := make(map[string]bool, len(incoming))
	for _, realm := range incoming {
		if realm.Handle == "" {
			realm.Handle = uuid.NewV4().String()
		}
		incomingHandles[realm.Handle] = true
	}

	r.mutex.Lock()
	removed := make([]string, 0)
	for handle := range r.realms {
		if !incomingHandles[handle] {
			removed = append(removed, handle)
			delete(r.realms, handle)
		}
	}
	for _, realm := range incoming {
		realm.InvalidateClaimMap()
		realm.ClaimMap(r.catalog, r.reserved, nil)
		r.realms[realm.Handle] = realm
	}
	r.mutex.Unlock()

	if r.store != nil {
		for _, handle := range removed {
			if err := r.store.Delete(ctx, handle); err != nil {
				return err
			}
		}
		for _, realm := range incoming {
			if err := r.store.Upsert(ctx, realm); err != nil {
				return err
			}
		}
	}

	r.warnCatchAllOrder()

	return nil
}

// CaptureClaims stores a one-shot claim capture for the realm with the
// provided handle and clears its capture flag.
func (r *Registry) CaptureClaims(ctx context.Context, handle string, payload []byte) error {
	r.mutex.Lock()
	realm, ok := r.realms[handle]
	if ok {
		realm.LastLoggedReceivedClaims = payload
		realm.LogNextReceivedClaims = false
	}
	r.mutex.Unlock()
	if !ok {
		return ErrRealmNotFound
	}

	if r.store != nil {
		return r.store.StoreCapturedClaims(ctx, handle, payload)
	}

	return nil
}

// warnCatchAllOrder surfaces violations of the convention that at most one
// realm is a catch-all and that it sorts last.
func (r *Registry) warnCatchAllOrder() {
	sorted := r.List(context.Background())

	catchAlls := 0
	for i, realm := range sorted {
		if !realm.IsCatchAll() {
			continue
		}
		catchAlls++
		if i != len(sorted)-1 {
			r.logger.WithField("handle", realm.Handle).Warnln("catch-all realm is not last, realms sorted after it are unreachable")
		}
	}
	if catchAlls > 1 {
		r.logger.Warnln("more than one catch-all realm configured")
	}
}
