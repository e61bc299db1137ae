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
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/sirupsen/logrus"

	keycloakauth "github.com/vvlab-dev/ConcreteCMS-keycloak"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap/conversion"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/config"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/managers"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
)

const registrationUsernameLimit = 1000

// Result describes what one reconciliation changed.
type Result struct {
	User User

	Created         bool
	UsernameUpdated bool
	EmailUpdated    bool

	AttributesSet []string
	GroupsJoined  []int64
	GroupsLeft    []int64

	CapturedClaims bool
}

// CompletionEvent is handed to completion listeners after a successful
// reconciliation.
type CompletionEvent struct {
	User   User
	Realm  *realms.Realm
	Claims oidc.ClaimSet
	Result *Result
}

// CompletionListener is notified after every successful reconciliation.
type CompletionListener func(ctx context.Context, event *CompletionEvent)

// Reconciler applies one post-authentication update: it resolves the local
// user for a decoded claim set, syncs profile fields with collision checks,
// syncs attributes through the converter registry and syncs group
// memberships.
type Reconciler struct {
	config *config.Config

	users      UserStore
	attributes AttributeStore
	groups     GroupStore

	converters *conversion.Registry
	catalog    claimmap.AttributeCatalog
	registry   *realms.Registry

	listeners []CompletionListener

	logger logrus.FieldLogger
}

// NewReconciler creates a new Reconciler with the provided collaborators.
// The realm registry is resolved through RegisterManagers, without it claim
// capture stays disabled.
func NewReconciler(c *config.Config, users UserStore, attributes AttributeStore, groups GroupStore, converters *conversion.Registry, catalog claimmap.AttributeCatalog) *Reconciler {
	logger := c.Logger
	if logger == nil {
		logger = logrus.New()
	}

	return &Reconciler{
		config: c,

		users:      users,
		attributes: attributes,
		groups:     groups,

		converters: converters,
		catalog:    catalog,

		logger: logger,
	}
}

// RegisterManagers registers the provided managers.
func (r *Reconciler) RegisterManagers(mgrs *managers.Managers) error {
	r.registry = mgrs.Must("realms").(*realms.Registry)

	return nil
}

// OnCompletion adds a listener notified after every successful
// reconciliation.
func (r *Reconciler) OnCompletion(listener CompletionListener) {
	r.listeners = append(r.listeners, listener)
}

// Reconcile runs one reconciliation of the provided decoded claims against
// the provided realm. The user is the already authenticated local account in
// attach mode and nil otherwise, in which case the user is resolved through
// its binding or auto-registered when the realm allows it.
func (r *Reconciler) Reconcile(ctx context.Context, realm *realms.Realm, claims oidc.ClaimSet, user User) (*Result, error) {
	result, err := r.reconcile(ctx, realm, claims, user)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	reconciliationsTotal.WithLabelValues(realm.Handle, outcome).Inc()

	if err != nil {
		return nil, err
	}

	event := &CompletionEvent{
		User:   result.User,
		Realm:  realm,
		Claims: claims,
		Result: result,
	}
	// Listeners can also recover the claims through the context.
	listenerCtx := keycloakauth.NewClaimSetContext(ctx, claims)
	for _, listener := range r.listeners {
		listener(listenerCtx, event)
	}

	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, realm *realms.Realm, claims oidc.ClaimSet, user User) (*Result, error) {
	result := &Result{}

	if realm.LogNextReceivedClaims && r.registry != nil {
		payload, err := claims.JSON()
		if err == nil {
			err = r.registry.CaptureClaims(ctx, realm.Handle, payload)
		}
		if err != nil {
			r.logger.WithError(err).WithField("handle", realm.Handle).Warnln("failed to capture received claims")
		} else {
			result.CapturedClaims = true
		}
	}

	m := realm.ClaimMap(r.catalog, r.config.ReservedGroups(), nil)

	uniqueIDClaim := m.ClaimNameForField(keycloakauth.FieldUniqueID)
	var missing []string
	if !claims.Has(uniqueIDClaim) {
		missing = append(missing, uniqueIDClaim)
	}
	if len(missing) > 0 {
		return nil, NewMissingClaimsError(missing)
	}

	// The verified email gate runs before any mutation. The claim map must
	// bind the verified email field and the claim must be present for the
	// gate to apply at all.
	if verifiedClaim := m.ClaimNameForField(keycloakauth.FieldVerifiedEmail); verifiedClaim != "" && claims.Has(verifiedClaim) {
		if verified, ok := claims.Bool(verifiedClaim); !ok || !verified {
			return nil, ErrEmailNotVerified
		}
	}

	bindingID, ok := scalarClaimString(claims[uniqueIDClaim])
	if !ok || bindingID == "" {
		return nil, NewMissingClaimsError([]string{uniqueIDClaim})
	}

	if user == nil {
		found, err := r.users.UserByBinding(ctx, bindingID)
		if err != nil {
			return nil, err
		}
		if found != nil {
			user = found
		} else {
			if !realm.RegistrationEnabled {
				return nil, ErrRegistrationDisabled
			}
			registered, err := r.register(ctx, realm, m, claims, bindingID)
			if err != nil {
				return nil, err
			}
			user = registered
			result.Created = true
		}
	} else {
		// Attach mode binds the already authenticated account.
		if err := r.users.BindUser(ctx, user, bindingID); err != nil {
			return nil, err
		}
	}
	result.User = user

	if err := r.syncFields(ctx, m, claims, user, result); err != nil {
		return nil, err
	}
	if err := r.syncAttributes(ctx, realm, m, claims, user, result); err != nil {
		return nil, err
	}
	if err := r.syncGroups(ctx, realm, m, claims, user, result); err != nil {
		return nil, err
	}

	return result, nil
}

// register creates a new local account for the provided claims. The username
// comes from the mapped username claim, falling back to the local part of
// the email, uniquified against existing accounts.
func (r *Reconciler) register(ctx context.Context, realm *realms.Realm, m *claimmap.Map, claims oidc.ClaimSet, bindingID string) (User, error) {
	email, _ := claims.String(m.ClaimNameForField(keycloakauth.FieldEmail))
	if email != "" {
		existing, err := r.users.UserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrEmailCollision
		}
	}

	username, _ := claims.String(m.ClaimNameForField(keycloakauth.FieldUsername))
	if username == "" && email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			username = email[:at]
		}
	}
	if username == "" {
		username = "user"
	}

	candidate := username
	for i := 1; ; i++ {
		existing, err := r.users.UserByUsername(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			break
		}
		if i > registrationUsernameLimit {
			return nil, fmt.Errorf("failed to find a free username for %s", username)
		}
		candidate = fmt.Sprintf("%s_%d", username, i)
	}

	user, err := r.users.CreateUser(ctx, candidate, email)
	if err != nil {
		return nil, err
	}
	if err := r.users.BindUser(ctx, user, bindingID); err != nil {
		return nil, err
	}

	if realm.RegistrationGroupID > 0 {
		if err := r.groups.Join(ctx, user, realm.RegistrationGroupID); err != nil {
			return nil, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"handle":   realm.Handle,
		"username": candidate,
		"user_id":  user.ID(),
	}).Infoln("registered new user from realm identity")

	return user, nil
}

// syncFields stages username and email updates, validates both against
// collisions and only then commits. Nothing is written when either check
// fails.
func (r *Reconciler) syncFields(ctx context.Context, m *claimmap.Map, claims oidc.ClaimSet, user User, result *Result) error {
	var stagedUsername, stagedEmail string

	if r.config.UpdateUsername {
		currentUsername := UsernameOf(user)
		username, _ := claims.String(m.ClaimNameForField(keycloakauth.FieldUsername))
		superUser := r.config.SuperUserName != "" && strings.EqualFold(currentUsername, r.config.SuperUserName)
		if username != "" && username != currentUsername && !superUser {
			other, err := r.users.UserByUsername(ctx, username)
			if err != nil {
				return err
			}
			if other != nil && other.ID() != user.ID() {
				return ErrUsernameCollision
			}
			stagedUsername = username
		}
	}

	if r.config.UpdateEmail {
		currentEmail := EmailOf(user)
		email, _ := claims.String(m.ClaimNameForField(keycloakauth.FieldEmail))
		if email != "" && email != currentEmail {
			other, err := r.users.UserByEmail(ctx, email)
			if err != nil {
				return err
			}
			if other != nil && other.ID() != user.ID() {
				return ErrEmailCollision
			}
			stagedEmail = email
		}
	}

	if stagedUsername != "" {
		if err := r.users.UpdateUsername(ctx, user, stagedUsername); err != nil {
			return err
		}
		result.UsernameUpdated = true
	}
	if stagedEmail != "" {
		if err := r.users.UpdateEmail(ctx, user, stagedEmail); err != nil {
			return err
		}
		result.EmailUpdated = true
	}

	return nil
}

// syncAttributes applies the claim to attribute mappings. A value no
// converter applies to leaves the attribute untouched, and unchanged
// converted values are not rewritten.
func (r *Reconciler) syncAttributes(ctx context.Context, realm *realms.Realm, m *claimmap.Map, claims oidc.ClaimSet, user User, result *Result) error {
	for _, mapping := range m.AttributeList() {
		value := claims[mapping.ClaimName]

		for _, handle := range mapping.Attributes {
			key, ok := r.catalog.Lookup(handle)
			if !ok {
				r.logger.WithField("attribute", handle).Debugln("claim map references unknown attribute, skipped")
				continue
			}

			converted, ok := r.converters.Convert(key, value)
			if !ok {
				conversionFailuresTotal.WithLabelValues(realm.Handle).Inc()
				continue
			}

			current, err := r.attributes.Attribute(ctx, user, handle)
			if err != nil {
				return err
			}
			if reflect.DeepEqual(current, converted) {
				continue
			}

			if err := r.attributes.SetAttribute(ctx, user, handle, converted); err != nil {
				return err
			}
			result.AttributesSet = append(result.AttributesSet, handle)
		}
	}

	return nil
}

// syncGroups applies the group sync rules against the normalized groups
// claim value. Joins and leaves are idempotent.
func (r *Reconciler) syncGroups(ctx context.Context, realm *realms.Realm, m *claimmap.Map, claims oidc.ClaimSet, user User, result *Result) error {
	g := m.Groups()
	if g.ClaimName == "" {
		return nil
	}

	remote := mapset.NewSet()
	if names, ok := claims.Strings(g.ClaimName); ok {
		for _, name := range names {
			remote.Add(name)
		}
	}

	for _, rule := range g.Rules {
		present := remote.Contains(rule.RemoteGroupName)

		member, err := r.groups.IsMember(ctx, user, rule.LocalGroupID)
		if err != nil {
			return err
		}

		if present && rule.JoinIfPresent && !member {
			if err := r.groups.Join(ctx, user, rule.LocalGroupID); err != nil {
				return err
			}
			groupSyncTotal.WithLabelValues(realm.Handle, "join").Inc()
			result.GroupsJoined = append(result.GroupsJoined, rule.LocalGroupID)
		}
		if !present && rule.LeaveIfAbsent && member {
			if err := r.groups.Leave(ctx, user, rule.LocalGroupID); err != nil {
				return err
			}
			groupSyncTotal.WithLabelValues(realm.Handle, "leave").Inc()
			result.GroupsLeft = append(result.GroupsLeft, rule.LocalGroupID)
		}
	}

	return nil
}

// scalarClaimString converts scalar claim values to their string form for
// use as binding id.
func scalarClaimString(value interface{}) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case json.Number:
		return typed.String(), true
	case bool:
		if typed {
			return "1", true
		}
		return "0", true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	}

	return "", false
}
