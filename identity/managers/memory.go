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

package managers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/sirupsen/logrus"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/encryption"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/identity"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
)

type memoryUser struct {
	id       int64
	username string
	email    string
}

// ID implements the identity.User interface.
func (u *memoryUser) ID() int64 {
	return u.id
}

// Username implements the identity.UserWithUsername interface.
func (u *memoryUser) Username() string {
	return u.username
}

// Email implements the identity.UserWithEmail interface.
func (u *memoryUser) Email() string {
	return u.email
}

// MemoryStore keeps users, bindings, attributes, group memberships and realm
// registrations in process memory. It backs the daemon when no store DSN is
// configured and doubles as the test fixture store.
type MemoryStore struct {
	mutex  sync.RWMutex
	nextID int64
	users  map[int64]*memoryUser
	realms map[string]*realms.Realm

	bindings   cmap.ConcurrentMap
	attributes cmap.ConcurrentMap
	groups     cmap.ConcurrentMap
	captures   cmap.ConcurrentMap

	key *[encryption.KeySize]byte

	logger logrus.FieldLogger
}

// NewMemoryStore creates a new empty MemoryStore. A non-nil key encrypts
// captured claim payloads at rest.
func NewMemoryStore(key *[encryption.KeySize]byte, logger logrus.FieldLogger) *MemoryStore {
	if logger == nil {
		logger = logrus.New()
	}

	return &MemoryStore{
		users:  make(map[int64]*memoryUser),
		realms: make(map[string]*realms.Realm),

		bindings:   cmap.New(),
		attributes: cmap.New(),
		groups:     cmap.New(),
		captures:   cmap.New(),

		key: key,

		logger: logger,
	}
}

// UserByID implements the identity.UserLookup interface.
func (s *MemoryStore) UserByID(ctx context.Context, id int64) (identity.User, error) {
	s.mutex.RLock()
	user := s.users[id]
	s.mutex.RUnlock()
	if user == nil {
		return nil, nil
	}

	return user, nil
}

// UserByBinding implements the identity.UserLookup interface.
func (s *MemoryStore) UserByBinding(ctx context.Context, bindingID string) (identity.User, error) {
	value, ok := s.bindings.Get(bindingID)
	if !ok {
		return nil, nil
	}

	s.mutex.RLock()
	user := s.users[value.(int64)]
	s.mutex.RUnlock()
	if user == nil {
		return nil, nil
	}

	return user, nil
}

// UserByEmail implements the identity.UserLookup interface.
func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (identity.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.email, email) {
			return user, nil
		}
	}

	return nil, nil
}

// UserByUsername implements the identity.UserLookup interface.
func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (identity.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.username, username) {
			return user, nil
		}
	}

	return nil, nil
}

// CreateUser implements the identity.UserStore interface.
func (s *MemoryStore) CreateUser(ctx context.Context, username string, email string) (identity.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	user := &memoryUser{
		id:       s.nextID,
		username: username,
		email:    email,
	}
	s.users[user.id] = user

	return user, nil
}

// BindUser implements the identity.UserStore interface.
func (s *MemoryStore) BindUser(ctx context.Context, user identity.User, bindingID string) error {
	s.removeBindingsOf(user.ID())
	s.bindings.Set(bindingID, user.ID())

	return nil
}

// UnbindUser implements the identity.UserStore interface.
func (s *MemoryStore) UnbindUser(ctx context.Context, user identity.User) error {
	s.removeBindingsOf(user.ID())

	return nil
}

func (s *MemoryStore) removeBindingsOf(userID int64) {
	for tuple := range s.bindings.IterBuffered() {
		if tuple.Val.(int64) == userID {
			s.bindings.Remove(tuple.Key)
		}
	}
}

// UpdateUsername implements the identity.UserStore interface.
func (s *MemoryStore) UpdateUsername(ctx context.Context, user identity.User, username string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored, ok := s.users[user.ID()]
	if !ok {
		return fmt.Errorf("no user with id %d", user.ID())
	}
	stored.username = username

	return nil
}

// UpdateEmail implements the identity.UserStore interface.
func (s *MemoryStore) UpdateEmail(ctx context.Context, user identity.User, email string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored, ok := s.users[user.ID()]
	if !ok {
		return fmt.Errorf("no user with id %d", user.ID())
	}
	stored.email = email

	return nil
}

func attributeKey(userID int64, handle string) string {
	return fmt.Sprintf("%d:%s", userID, handle)
}

// Attribute implements the identity.AttributeStore interface.
func (s *MemoryStore) Attribute(ctx context.Context, user identity.User, handle string) (interface{}, error) {
	value, _ := s.attributes.Get(attributeKey(user.ID(), handle))
	return value, nil
}

// SetAttribute implements the identity.AttributeStore interface.
func (s *MemoryStore) SetAttribute(ctx context.Context, user identity.User, handle string, value interface{}) error {
	s.attributes.Set(attributeKey(user.ID(), handle), value)
	return nil
}

func membershipKey(userID int64, groupID int64) string {
	return fmt.Sprintf("%d:%d", userID, groupID)
}

// IsMember implements the identity.GroupStore interface.
func (s *MemoryStore) IsMember(ctx context.Context, user identity.User, groupID int64) (bool, error) {
	return s.groups.Has(membershipKey(user.ID(), groupID)), nil
}

// Join implements the identity.GroupStore interface.
func (s *MemoryStore) Join(ctx context.Context, user identity.User, groupID int64) error {
	s.groups.Set(membershipKey(user.ID(), groupID), true)
	return nil
}

// Leave implements the identity.GroupStore interface.
func (s *MemoryStore) Leave(ctx context.Context, user identity.User, groupID int64) error {
	s.groups.Remove(membershipKey(user.ID(), groupID))
	return nil
}

// All implements the realms.Store interface.
func (s *MemoryStore) All(ctx context.Context) ([]*realms.Realm, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	all := make([]*realms.Realm, 0, len(s.realms))
	for _, realm := range s.realms {
		all = append(all, realm)
	}

	return all, nil
}

// Upsert implements the realms.Store interface.
func (s *MemoryStore) Upsert(ctx context.Context, realm *realms.Realm) error {
	if realm.Handle == "" {
		return fmt.Errorf("realm has no handle")
	}

	s.mutex.Lock()
	s.realms[realm.Handle] = realm
	s.mutex.Unlock()

	return nil
}

// Delete implements the realms.Store interface.
func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	s.mutex.Lock()
	delete(s.realms, handle)
	s.mutex.Unlock()
	s.captures.Remove(handle)

	return nil
}

// StoreCapturedClaims implements the realms.Store interface. The payload is
// encrypted when the store has a key.
func (s *MemoryStore) StoreCapturedClaims(ctx context.Context, handle string, payload []byte) error {
	if s.key != nil {
		encrypted, err := encryption.Encrypt(payload, s.key)
		if err != nil {
			return err
		}
		payload = encrypted
	}

	s.captures.Set(handle, payload)

	s.mutex.Lock()
	if realm, ok := s.realms[handle]; ok {
		realm.LogNextReceivedClaims = false
	}
	s.mutex.Unlock()

	return nil
}

// LoadCapturedClaims implements the realms.Store interface.
func (s *MemoryStore) LoadCapturedClaims(ctx context.Context, handle string) ([]byte, error) {
	value, ok := s.captures.Get(handle)
	if !ok {
		return nil, nil
	}

	payload := value.([]byte)
	if s.key != nil {
		return encryption.Decrypt(payload, s.key)
	}

	return payload, nil
}
