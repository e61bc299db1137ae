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
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	uuid "github.com/satori/go.uuid"
)

// State token modes. Login is a normal authentication, attach binds the
// remote identity to the already authenticated local account.
const (
	ModeLogin  = "login"
	ModeAttach = "attach"
)

const defaultStateExpiration = 10 * time.Minute

// StateClaims are the claims of the signed state token carried across the
// OAuth2 redirect round-trip.
type StateClaims struct {
	RealmHandle string `json:"realm"`
	Mode        string `json:"mode"`
	jwt.StandardClaims
}

// Valid implements the jwt.Claims interface.
func (c *StateClaims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.RealmHandle == "" {
		return errors.New("state token has no realm")
	}
	switch c.Mode {
	case ModeLogin, ModeAttach:
	default:
		return fmt.Errorf("state token has unknown mode %s", c.Mode)
	}

	return nil
}

// StateSigner creates and verifies the signed state tokens which carry the
// selected realm handle and mode across the redirect round-trip.
type StateSigner struct {
	key        []byte
	expiration time.Duration
}

// NewStateSigner creates a new StateSigner with the provided signing key. A
// zero expiration uses the default of ten minutes.
func NewStateSigner(key []byte, expiration time.Duration) (*StateSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("state signing key is empty")
	}
	if expiration <= 0 {
		expiration = defaultStateExpiration
	}

	return &StateSigner{
		key:        key,
		expiration: expiration,
	}, nil
}

// Sign creates a signed state token for the provided realm handle and mode.
func (s *StateSigner) Sign(realmHandle string, mode string) (string, error) {
	if realmHandle == "" {
		return "", errors.New("no realm handle")
	}
	if mode == "" {
		mode = ModeLogin
	}

	now := time.Now()
	claims := &StateClaims{
		RealmHandle: realmHandle,
		Mode:        mode,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewV4().String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.expiration).Unix(),
		},
	}
	if err := claims.Valid(); err != nil {
		return "", err
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify parses and verifies the provided state token and returns its
// claims. Tampered, expired and malformed tokens are rejected.
func (s *StateSigner) Verify(token string) (*StateClaims, error) {
	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected state token signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}

	return claims, nil
}
