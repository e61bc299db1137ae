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

package encryption

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestGenerateNonce(t *testing.T) {
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	if len(nonce) != NonceSize {
		t.Fatalf("nonce has wrong size: got %v want %v", len(nonce), NonceSize)
	}
}

func TestGenerateKey(t *testing.T) {
	secretKey, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	if len(secretKey) != KeySize {
		t.Fatalf("secret key has wrong size: got %v want %v", len(secretKey), KeySize)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	msg := []byte(`{"sub":"user-1","email":"hello@example.com"}`)
	encrypted, err := Encrypt(msg, key)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(encrypted, []byte("hello@example.com")) {
		t.Fatal("ciphertext contains plaintext")
	}

	decrypted, err := Decrypt(encrypted, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted, msg) {
		t.Fatalf("decrypted text does not match, got %s", decrypted)
	}
}

func TestDecryptRejectsTamper(t *testing.T) {
	key, _ := GenerateKey()

	encrypted, err := Encrypt([]byte("payload"), key)
	if err != nil {
		t.Fatal(err)
	}

	encrypted[len(encrypted)-1] ^= 0xff
	if _, err := Decrypt(encrypted, key); err == nil {
		t.Fatal("tampered ciphertext decrypted")
	}

	if _, err := Decrypt([]byte("short"), key); err == nil {
		t.Fatal("short ciphertext decrypted")
	}
}

func TestParseKey(t *testing.T) {
	key, _ := GenerateKey()

	parsed, err := ParseKey(key[:])
	if err != nil {
		t.Fatal(err)
	}
	if *parsed != *key {
		t.Fatal("raw key bytes did not parse to the same key")
	}

	parsed, err = ParseKey([]byte(hex.EncodeToString(key[:])))
	if err != nil {
		t.Fatal(err)
	}
	if *parsed != *key {
		t.Fatal("hex key did not parse to the same key")
	}

	if _, err := ParseKey([]byte("too-short")); err == nil {
		t.Fatal("short key parsed")
	}
}
