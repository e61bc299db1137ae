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

package identity_test

import (
	"context"
	"io/ioutil"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	keycloakauth "github.com/vvlab-dev/ConcreteCMS-keycloak"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap/conversion"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/config"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/identity"
	identityManagers "github.com/vvlab-dev/ConcreteCMS-keycloak/identity/managers"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/managers"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
)

type fixture struct {
	config     *config.Config
	store      *identityManagers.MemoryStore
	registry   *realms.Registry
	reconciler *identity.Reconciler
	realm      *realms.Realm
}

func newFixture(t *testing.T, claimMapData string, registrationEnabled bool) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.Out = ioutil.Discard

	c := config.NewDefaults()
	c.Logger = logger

	catalog := claimmap.NewStaticCatalog(
		conversion.AttributeKey{Handle: "department", TypeHandle: conversion.TypeText},
		conversion.AttributeKey{Handle: "newsletter", TypeHandle: conversion.TypeBoolean},
	)

	converters := conversion.NewRegistry(logger)
	converters.Register(conversion.NewTextConverter())
	converters.Register(conversion.NewMultilineTextConverter())
	converters.Register(conversion.NewNumberConverter())
	converters.Register(conversion.NewBooleanConverter())
	converters.Register(conversion.NewAddressConverter(nil))

	store := identityManagers.NewMemoryStore(nil, logger)

	registry, err := realms.NewRegistry(context.Background(), "", store, catalog, c.ReservedGroups(), logger)
	if err != nil {
		t.Fatal(err)
	}

	realm := &realms.Realm{
		Handle:              "test",
		RealmRootURL:        "https://idp.example.com/realms/test",
		ClientID:            "client",
		RegistrationEnabled: registrationEnabled,
		ClaimMapData:        claimMapData,
	}
	if err := realm.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(realm); err != nil {
		t.Fatal(err)
	}

	reconciler := identity.NewReconciler(c, store, store, store, converters, catalog)

	mgrs := managers.New()
	mgrs.Set("realms", registry)
	mgrs.Set("reconciler", reconciler)
	if err := mgrs.Apply(); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		config:     c,
		store:      store,
		registry:   registry,
		reconciler: reconciler,
		realm:      realm,
	}
}

func (f *fixture) boundUser(t *testing.T, username, email, bindingID string) identity.User {
	t.Helper()

	user, err := f.store.CreateUser(context.Background(), username, email)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.BindUser(context.Background(), user, bindingID); err != nil {
		t.Fatal(err)
	}

	return user
}

const groupMapData = `{"fields":{"unique_id":"sub","email":"email"},"groups":{"claim":"dept","rules":[{"remoteGroupName":"eng","localGroupID":5,"joinIfPresent":true,"leaveIfAbsent":true}]}}`

func TestReconcileJoinsGroup(t *testing.T) {
	f := newFixture(t, groupMapData, false)
	user := f.boundUser(t, "alice", "a@b.com", "abc123")

	claims := oidc.ClaimSet{"sub": "abc123", "email": "a@b.com", "dept": "eng"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.User.ID() != user.ID() {
		t.Errorf("resolved user %d, expected %d", result.User.ID(), user.ID())
	}
	member, _ := f.store.IsMember(context.Background(), user, 5)
	if !member {
		t.Error("user did not join group 5")
	}
	if len(result.GroupsJoined) != 1 || result.GroupsJoined[0] != 5 {
		t.Errorf("groups joined got %v", result.GroupsJoined)
	}
}

func TestReconcileLeavesGroupWhenClaimAbsent(t *testing.T) {
	f := newFixture(t, groupMapData, false)
	user := f.boundUser(t, "alice", "a@b.com", "abc123")
	f.store.Join(context.Background(), user, 5)

	claims := oidc.ClaimSet{"sub": "abc123", "email": "a@b.com"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}

	member, _ := f.store.IsMember(context.Background(), user, 5)
	if member {
		t.Error("user did not leave group 5")
	}
	if len(result.GroupsLeft) != 1 || result.GroupsLeft[0] != 5 {
		t.Errorf("groups left got %v", result.GroupsLeft)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email","username":"preferred_username"},"attributes":[{"claim":"dept","attribute":"department"}],"groups":{"claim":"groups","rules":[{"remoteGroupName":"eng","localGroupID":5,"joinIfPresent":true,"leaveIfAbsent":true}]}}`
	f := newFixture(t, mapData, false)
	f.config.UpdateUsername = true
	f.config.UpdateEmail = true
	f.boundUser(t, "alice", "a@b.com", "abc123")

	claims := oidc.ClaimSet{
		"sub":                "abc123",
		"email":              "a@b.com",
		"preferred_username": "alice",
		"dept":               "engineering",
		"groups":             []interface{}{"eng"},
	}

	first, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.GroupsJoined) != 1 || len(first.AttributesSet) != 1 {
		t.Fatalf("first run got %+v", first)
	}

	second, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.GroupsJoined) != 0 || len(second.GroupsLeft) != 0 {
		t.Errorf("second run changed groups: %+v", second)
	}
	if len(second.AttributesSet) != 0 {
		t.Errorf("second run rewrote attributes: %v", second.AttributesSet)
	}
	if second.UsernameUpdated || second.EmailUpdated {
		t.Errorf("second run updated fields: %+v", second)
	}
}

func TestReconcileEmailNotVerified(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email","verified_email":"email_verified"}}`
	f := newFixture(t, mapData, false)
	f.boundUser(t, "alice", "a@b.com", "abc123")

	claims := oidc.ClaimSet{"sub": "abc123", "email": "a@b.com", "email_verified": false}
	if _, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil); err != identity.ErrEmailNotVerified {
		t.Errorf("got %v, expected ErrEmailNotVerified", err)
	}

	// Without the claim the gate does not apply.
	claims = oidc.ClaimSet{"sub": "abc123", "email": "a@b.com"}
	if _, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil); err != nil {
		t.Errorf("gate applied without claim: %v", err)
	}
}

func TestReconcileEmailCollisionBlocksAllWrites(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email"},"attributes":[{"claim":"dept","attribute":"department"}]}`
	f := newFixture(t, mapData, false)
	f.config.UpdateEmail = true
	user := f.boundUser(t, "alice", "a@b.com", "abc123")
	f.boundUser(t, "bob", "taken@b.com", "other")

	claims := oidc.ClaimSet{"sub": "abc123", "email": "taken@b.com", "dept": "eng"}
	if _, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil); err != identity.ErrEmailCollision {
		t.Fatalf("got %v, expected ErrEmailCollision", err)
	}

	if value, _ := f.store.Attribute(context.Background(), user, "department"); value != nil {
		t.Error("attribute written despite collision")
	}
	if email := identity.EmailOf(user); email != "a@b.com" {
		t.Errorf("email changed to %q despite collision", email)
	}
}

func TestReconcileUsernameCollision(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email","username":"preferred_username"}}`
	f := newFixture(t, mapData, false)
	f.config.UpdateUsername = true
	f.boundUser(t, "alice", "a@b.com", "abc123")
	f.boundUser(t, "bob", "b@b.com", "other")

	claims := oidc.ClaimSet{"sub": "abc123", "email": "a@b.com", "preferred_username": "bob"}
	if _, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil); err != identity.ErrUsernameCollision {
		t.Errorf("got %v, expected ErrUsernameCollision", err)
	}
}

func TestReconcileSuperUserNotRenamed(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email","username":"preferred_username"}}`
	f := newFixture(t, mapData, false)
	f.config.UpdateUsername = true
	user := f.boundUser(t, "admin", "root@b.com", "abc123")

	claims := oidc.ClaimSet{"sub": "abc123", "email": "root@b.com", "preferred_username": "administrator"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.UsernameUpdated {
		t.Error("super user was renamed")
	}
	if username := identity.UsernameOf(user); username != "admin" {
		t.Errorf("super user username changed to %q", username)
	}
}

func TestReconcileRegistrationDisabled(t *testing.T) {
	f := newFixture(t, "", false)

	claims := oidc.ClaimSet{"sub": "unknown", "email": "new@b.com"}
	if _, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil); err != identity.ErrRegistrationDisabled {
		t.Errorf("got %v, expected ErrRegistrationDisabled", err)
	}
}

func TestReconcileAutoRegistration(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email","username":"preferred_username"}}`
	f := newFixture(t, mapData, true)
	f.realm.RegistrationGroupID = 9

	claims := oidc.ClaimSet{"sub": "new-subject", "email": "carol@b.com", "preferred_username": "carol"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Created {
		t.Fatal("user was not created")
	}
	if username := identity.UsernameOf(result.User); username != "carol" {
		t.Errorf("username got %q", username)
	}
	member, _ := f.store.IsMember(context.Background(), result.User, 9)
	if !member {
		t.Error("registered user did not join the registration group")
	}

	// The second login resolves the binding instead of creating again.
	again, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.Created {
		t.Error("second login created another user")
	}
	if again.User.ID() != result.User.ID() {
		t.Error("second login resolved a different user")
	}
}

func TestReconcileRegistrationUsernameFallbackAndUniquify(t *testing.T) {
	f := newFixture(t, "", true)
	f.boundUser(t, "carol", "other@b.com", "other")

	claims := oidc.ClaimSet{"sub": "new-subject", "email": "carol@b.com"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if username := identity.UsernameOf(result.User); username != "carol_1" {
		t.Errorf("username got %q, expected carol_1", username)
	}
}

func TestReconcileMissingRequiredClaim(t *testing.T) {
	f := newFixture(t, "", false)

	claims := oidc.ClaimSet{"email": "a@b.com"}
	_, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	reconcileErr, ok := err.(*identity.ReconcileError)
	if !ok || reconcileErr.ID != "missing_required_claims" {
		t.Errorf("got %v, expected missing required claims error", err)
	}
}

func TestReconcileClaimCaptureOnce(t *testing.T) {
	f := newFixture(t, "", false)
	f.realm.LogNextReceivedClaims = true
	f.store.Upsert(context.Background(), f.realm)
	f.boundUser(t, "alice", "a@b.com", "abc123")

	claims := oidc.ClaimSet{"sub": "abc123", "email": "a@b.com"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.CapturedClaims {
		t.Fatal("claims were not captured")
	}
	if f.realm.LogNextReceivedClaims {
		t.Error("capture flag was not cleared")
	}

	payload, err := f.store.LoadCapturedClaims(context.Background(), f.realm.Handle)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) == 0 {
		t.Fatal("no captured payload stored")
	}

	second, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.CapturedClaims {
		t.Error("second reconciliation captured again")
	}
}

func TestReconcileCompletionListener(t *testing.T) {
	f := newFixture(t, "", false)
	user := f.boundUser(t, "alice", "a@b.com", "abc123")

	var event *identity.CompletionEvent
	var ctxClaims oidc.ClaimSet
	f.reconciler.OnCompletion(func(ctx context.Context, e *identity.CompletionEvent) {
		event = e
		ctxClaims, _ = keycloakauth.FromClaimSetContext(ctx)
	})

	claims := oidc.ClaimSet{"sub": "abc123", "email": "a@b.com"}
	if _, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, nil); err != nil {
		t.Fatal(err)
	}

	if event == nil {
		t.Fatal("listener was not notified")
	}
	if event.User.ID() != user.ID() || event.Realm != f.realm {
		t.Errorf("event got %+v", event)
	}
	if ctxClaims == nil {
		t.Error("claims not recoverable from listener context")
	}
}

func TestReconcileAttachBindsUser(t *testing.T) {
	f := newFixture(t, "", false)
	user, err := f.store.CreateUser(context.Background(), "alice", "a@b.com")
	if err != nil {
		t.Fatal(err)
	}

	claims := oidc.ClaimSet{"sub": "attach-subject", "email": "a@b.com"}
	result, err := f.reconciler.Reconcile(context.Background(), f.realm, claims, user)
	if err != nil {
		t.Fatal(err)
	}
	if result.User.ID() != user.ID() {
		t.Error("attach did not keep the provided user")
	}

	bound, err := f.store.UserByBinding(context.Background(), "attach-subject")
	if err != nil {
		t.Fatal(err)
	}
	if bound == nil || bound.ID() != user.ID() {
		t.Error("attach did not bind the user")
	}
}

func TestReconcileAddressAttribute(t *testing.T) {
	mapData := `{"fields":{"unique_id":"sub","email":"email"},"attributes":[{"claim":"address","attribute":"home_address"}]}`

	logger := logrus.New()
	logger.Out = ioutil.Discard

	c := config.NewDefaults()
	c.Logger = logger

	catalog := claimmap.NewStaticCatalog(
		conversion.AttributeKey{Handle: "home_address", TypeHandle: conversion.TypeAddress},
	)
	converters := conversion.NewRegistry(logger)
	converters.Register(conversion.NewAddressConverter(nil))

	store := identityManagers.NewMemoryStore(nil, logger)
	realm := &realms.Realm{Handle: "test", RealmRootURL: "https://idp.example.com", ClientID: "client", ClaimMapData: mapData}
	if err := realm.Validate(); err != nil {
		t.Fatal(err)
	}

	reconciler := identity.NewReconciler(c, store, store, store, converters, catalog)

	user, _ := store.CreateUser(context.Background(), "alice", "a@b.com")
	store.BindUser(context.Background(), user, "abc123")

	claims := oidc.ClaimSet{
		"sub":   "abc123",
		"email": "a@b.com",
		"address": map[string]interface{}{
			"street_address": "1 Main St",
			"locality":       "Springfield",
			"country":        "US",
		},
	}
	if _, err := reconciler.Reconcile(context.Background(), realm, claims, nil); err != nil {
		t.Fatal(err)
	}

	value, err := store.Attribute(context.Background(), user, "home_address")
	if err != nil {
		t.Fatal(err)
	}
	address, ok := value.(*conversion.AddressValue)
	if !ok {
		t.Fatalf("attribute value is %T", value)
	}
	expected := &conversion.AddressValue{AddressLine1: "1 Main St", City: "Springfield", Country: "US"}
	if !reflect.DeepEqual(address, expected) {
		t.Errorf("address got %+v", address)
	}
}
