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
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/encryption"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/identity"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id       BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	email    TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (LOWER(username));

CREATE TABLE IF NOT EXISTS user_bindings (
	binding_id TEXT PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS user_bindings_user_idx ON user_bindings (user_id);

CREATE TABLE IF NOT EXISTS user_attributes (
	user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	handle  TEXT NOT NULL,
	value   JSONB NOT NULL,
	PRIMARY KEY (user_id, handle)
);

CREATE TABLE IF NOT EXISTS group_members (
	user_id  BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	group_id BIGINT NOT NULL,
	PRIMARY KEY (user_id, group_id)
);

CREATE TABLE IF NOT EXISTS realms (
	handle          TEXT PRIMARY KEY,
	config          JSONB NOT NULL,
	captured_claims BYTEA
);
`

type pgUser struct {
	id       int64
	username string
	email    string
}

// ID implements the identity.User interface.
func (u *pgUser) ID() int64 {
	return u.id
}

// Username implements the identity.UserWithUsername interface.
func (u *pgUser) Username() string {
	return u.username
}

// Email implements the identity.UserWithEmail interface.
func (u *pgUser) Email() string {
	return u.email
}

// PGStore persists users, bindings, attributes, group memberships and realm
// registrations in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool

	key *[encryption.KeySize]byte

	logger logrus.FieldLogger
}

// NewPGStore connects to the provided DSN and bootstraps the schema. A
// non-nil key encrypts captured claim payloads at rest.
func NewPGStore(ctx context.Context, dsn string, key *[encryption.KeySize]byte, logger logrus.FieldLogger) (*PGStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PGStore{
		pool: pool,

		key: key,

		logger: logger,
	}, nil
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) userByQuery(ctx context.Context, query string, args ...interface{}) (identity.User, error) {
	user := &pgUser{}
	err := s.pool.QueryRow(ctx, query, args...).Scan(&user.id, &user.username, &user.email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UserByID implements the identity.UserLookup interface.
func (s *PGStore) UserByID(ctx context.Context, id int64) (identity.User, error) {
	return s.userByQuery(ctx, `
		SELECT id, username, email FROM users WHERE id = $1`, id)
}

// UserByBinding implements the identity.UserLookup interface.
func (s *PGStore) UserByBinding(ctx context.Context, bindingID string) (identity.User, error) {
	return s.userByQuery(ctx, `
		SELECT u.id, u.username, u.email FROM users u
		JOIN user_bindings b ON b.user_id = u.id
		WHERE b.binding_id = $1`, bindingID)
}

// UserByEmail implements the identity.UserLookup interface.
func (s *PGStore) UserByEmail(ctx context.Context, email string) (identity.User, error) {
	return s.userByQuery(ctx, `
		SELECT id, username, email FROM users
		WHERE LOWER(email) = LOWER($1) LIMIT 1`, email)
}

// UserByUsername implements the identity.UserLookup interface.
func (s *PGStore) UserByUsername(ctx context.Context, username string) (identity.User, error) {
	return s.userByQuery(ctx, `
		SELECT id, username, email FROM users
		WHERE LOWER(username) = LOWER($1)`, username)
}

// CreateUser implements the identity.UserStore interface.
func (s *PGStore) CreateUser(ctx context.Context, username string, email string) (identity.User, error) {
	user := &pgUser{
		username: username,
		email:    email,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email) VALUES ($1, $2)
		RETURNING id`, username, email).Scan(&user.id)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// BindUser implements the identity.UserStore interface.
func (s *PGStore) BindUser(ctx context.Context, user identity.User, bindingID string) error {
	if err := s.UnbindUser(ctx, user); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_bindings (binding_id, user_id) VALUES ($1, $2)
		ON CONFLICT (binding_id) DO UPDATE SET user_id = EXCLUDED.user_id`,
		bindingID, user.ID())
	return err
}

// UnbindUser implements the identity.UserStore interface.
func (s *PGStore) UnbindUser(ctx context.Context, user identity.User) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_bindings WHERE user_id = $1`, user.ID())
	return err
}

// UpdateUsername implements the identity.UserStore interface.
func (s *PGStore) UpdateUsername(ctx context.Context, user identity.User, username string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET username = $2 WHERE id = $1`, user.ID(), username)
	return err
}

// UpdateEmail implements the identity.UserStore interface.
func (s *PGStore) UpdateEmail(ctx context.Context, user identity.User, email string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET email = $2 WHERE id = $1`, user.ID(), email)
	return err
}

// Attribute implements the identity.AttributeStore interface.
func (s *PGStore) Attribute(ctx context.Context, user identity.User, handle string) (interface{}, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM user_attributes
		WHERE user_id = $1 AND handle = $2`, user.ID(), handle).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}

	return value, nil
}

// SetAttribute implements the identity.AttributeStore interface.
func (s *PGStore) SetAttribute(ctx context.Context, user identity.User, handle string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_attributes (user_id, handle, value) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, handle) DO UPDATE SET value = EXCLUDED.value`,
		user.ID(), handle, raw)
	return err
}

// IsMember implements the identity.GroupStore interface.
func (s *PGStore) IsMember(ctx context.Context, user identity.User, groupID int64) (bool, error) {
	var member bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_members WHERE user_id = $1 AND group_id = $2
		)`, user.ID(), groupID).Scan(&member)
	return member, err
}

// Join implements the identity.GroupStore interface.
func (s *PGStore) Join(ctx context.Context, user identity.User, groupID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO group_members (user_id, group_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, user.ID(), groupID)
	return err
}

// Leave implements the identity.GroupStore interface.
func (s *PGStore) Leave(ctx context.Context, user identity.User, groupID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM group_members WHERE user_id = $1 AND group_id = $2`,
		user.ID(), groupID)
	return err
}

// All implements the realms.Store interface.
func (s *PGStore) All(ctx context.Context) ([]*realms.Realm, error) {
	rows, err := s.pool.Query(ctx, `SELECT config FROM realms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	all := make([]*realms.Realm, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		realm := &realms.Realm{}
		if err := json.Unmarshal(raw, realm); err != nil {
			s.logger.WithError(err).Warnln("skipped undecodable realm row")
			continue
		}
		all = append(all, realm)
	}

	return all, rows.Err()
}

// Upsert implements the realms.Store interface.
func (s *PGStore) Upsert(ctx context.Context, realm *realms.Realm) error {
	raw, err := json.Marshal(realm)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO realms (handle, config) VALUES ($1, $2)
		ON CONFLICT (handle) DO UPDATE SET config = EXCLUDED.config`,
		realm.Handle, raw)
	return err
}

// Delete implements the realms.Store interface.
func (s *PGStore) Delete(ctx context.Context, handle string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM realms WHERE handle = $1`, handle)
	return err
}

// StoreCapturedClaims implements the realms.Store interface. The payload is
// encrypted when the store has a key.
func (s *PGStore) StoreCapturedClaims(ctx context.Context, handle string, payload []byte) error {
	if s.key != nil {
		encrypted, err := encryption.Encrypt(payload, s.key)
		if err != nil {
			return err
		}
		payload = encrypted
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE realms SET
			captured_claims = $2,
			config = jsonb_set(config, '{logNextReceivedClaims}', 'false')
		WHERE handle = $1`, handle, payload)
	return err
}

// LoadCapturedClaims implements the realms.Store interface.
func (s *PGStore) LoadCapturedClaims(ctx context.Context, handle string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT captured_claims FROM realms WHERE handle = $1`, handle).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	if s.key != nil {
		return encryption.Decrypt(payload, s.key)
	}

	return payload, nil
}
