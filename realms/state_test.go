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
	"strings"
	"testing"
	"time"
)

func TestStateTokenRoundTrip(t *testing.T) {
	signer, err := NewStateSigner([]byte("test-signing-key"), 0)
	if err != nil {
		t.Fatal(err)
	}

	token, err := signer.Sign("realm-1", ModeAttach)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.RealmHandle != "realm-1" {
		t.Errorf("realm handle got %q", claims.RealmHandle)
	}
	if claims.Mode != ModeAttach {
		t.Errorf("mode got %q", claims.Mode)
	}
	if claims.Id == "" {
		t.Error("state token has no id")
	}
}

func TestStateTokenDefaultsToLoginMode(t *testing.T) {
	signer, _ := NewStateSigner([]byte("test-signing-key"), 0)

	token, err := signer.Sign("realm-1", "")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Mode != ModeLogin {
		t.Errorf("mode got %q, expected login", claims.Mode)
	}
}

func TestStateTokenTamperRejected(t *testing.T) {
	signer, _ := NewStateSigner([]byte("test-signing-key"), 0)

	token, err := signer.Sign("realm-1", ModeLogin)
	if err != nil {
		t.Fatal(err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := signer.Verify(tampered); err == nil {
		t.Error("tampered token verified")
	}

	other, _ := NewStateSigner([]byte("other-key"), 0)
	if _, err := other.Verify(token); err == nil {
		t.Error("token verified with wrong key")
	}
}

func TestStateTokenExpiry(t *testing.T) {
	signer, _ := NewStateSigner([]byte("test-signing-key"), -1)
	signer.expiration = -time.Minute

	token, err := signer.Sign("realm-1", ModeLogin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := signer.Verify(token); err == nil {
		t.Error("expired token verified")
	}
}

func TestStateTokenUnknownMode(t *testing.T) {
	signer, _ := NewStateSigner([]byte("test-signing-key"), 0)

	if _, err := signer.Sign("realm-1", "detach"); err == nil || !strings.Contains(err.Error(), "mode") {
		t.Errorf("unknown mode got %v", err)
	}
	if _, err := signer.Sign("", ModeLogin); err == nil {
		t.Error("empty realm handle signed")
	}
}
