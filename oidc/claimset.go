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

package oidc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dgrijalva/jwt-go"
)

// ClaimSet is a decoded claim mapping as received from an ID Token or the
// UserInfo endpoint. Numeric claim values are kept as json.Number so that
// integer and floating point claims remain distinguishable.
type ClaimSet map[string]interface{}

// DecodeClaimSet decodes JSON claim data from the provided reader into a
// ClaimSet, preserving JSON numbers.
func DecodeClaimSet(r io.Reader) (ClaimSet, error) {
	claims := make(ClaimSet)

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// DecodeClaimSetJSON decodes the provided raw JSON claim data into a ClaimSet.
func DecodeClaimSetJSON(data []byte) (ClaimSet, error) {
	return DecodeClaimSet(bytes.NewReader(data))
}

// DecodeIDTokenClaims decodes the claims of the provided raw ID Token without
// validating its signature. Signature validation is the token issuer
// exchange's concern and has happened before the token reaches this module.
func DecodeIDTokenClaims(rawIDToken string) (ClaimSet, error) {
	parser := &jwt.Parser{
		UseJSONNumber: true,
	}

	claims := make(jwt.MapClaims)
	if _, _, err := parser.ParseUnverified(rawIDToken, claims); err != nil {
		return nil, fmt.Errorf("failed to decode ID Token: %v", err)
	}

	return ClaimSet(claims), nil
}

// Has returns true when the named claim is present, whatever its value.
func (cs ClaimSet) Has(name string) bool {
	_, ok := cs[name]
	return ok
}

// Get returns the named claim value.
func (cs ClaimSet) Get(name string) (interface{}, bool) {
	value, ok := cs[name]
	return value, ok
}

// String returns the named claim as string. It returns false when the claim
// is absent or not a string.
func (cs ClaimSet) String(name string) (string, bool) {
	value, ok := cs[name].(string)
	return value, ok
}

// Bool returns the named claim as bool. It returns false when the claim is
// absent or not a bool.
func (cs ClaimSet) Bool(name string) (bool, bool) {
	value, ok := cs[name].(bool)
	return value, ok
}

// Strings returns the named claim as a list of strings. Scalar string claims
// are returned as a single element list. Non-string list members are skipped.
func (cs ClaimSet) Strings(name string) ([]string, bool) {
	value, ok := cs[name]
	if !ok {
		return nil, false
	}

	switch typed := value.(type) {
	case string:
		return []string{typed}, true
	case []interface{}:
		values := make([]string, 0, len(typed))
		for _, member := range typed {
			if s, good := member.(string); good {
				values = append(values, s)
			}
		}
		return values, true
	}

	return nil, false
}

// Sub returns the named claim as a nested ClaimSet. It returns false when the
// claim is absent or not an object.
func (cs ClaimSet) Sub(name string) (ClaimSet, bool) {
	value, ok := cs[name].(map[string]interface{})
	if !ok {
		return nil, false
	}

	return ClaimSet(value), true
}

// Names returns the names of all claims in the set, sorted.
func (cs ClaimSet) Names() []string {
	names := make([]string, 0, len(cs))
	for name := range cs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// JSON encodes the claim set as compact JSON.
func (cs ClaimSet) JSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(cs))
}
