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
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestDecodeClaimSetKeepsNumbers(t *testing.T) {
	claims, err := DecodeClaimSetJSON([]byte(`{"sub":"abc","age":42,"score":1.5,"email_verified":true}`))
	if err != nil {
		t.Fatal(err)
	}

	number, ok := claims["age"].(json.Number)
	if !ok {
		t.Fatalf("age claim is %T, expected json.Number", claims["age"])
	}
	if _, err := number.Int64(); err != nil {
		t.Errorf("age claim does not parse as integer: %v", err)
	}

	if verified, ok := claims.Bool(EmailVerifiedClaim); !ok || !verified {
		t.Errorf("email_verified claim got (%v, %v), expected (true, true)", verified, ok)
	}
	if sub, ok := claims.String(SubjectIdentifierClaim); !ok || sub != "abc" {
		t.Errorf("sub claim got (%v, %v)", sub, ok)
	}
}

func TestDecodeIDTokenClaims(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user-1","email":"hello@example.com","exp":1700000000}`))
	raw := header + "." + payload + ".signature-is-not-checked"

	claims, err := DecodeIDTokenClaims(raw)
	if err != nil {
		t.Fatal(err)
	}

	if sub, _ := claims.String(SubjectIdentifierClaim); sub != "user-1" {
		t.Errorf("sub claim got %v", sub)
	}
	if email, _ := claims.String(EmailClaim); email != "hello@example.com" {
		t.Errorf("email claim got %v", email)
	}
	if _, ok := claims[ExpirationClaim].(json.Number); !ok {
		t.Errorf("exp claim is %T, expected json.Number", claims[ExpirationClaim])
	}
}

func TestDecodeIDTokenClaimsGarbage(t *testing.T) {
	if _, err := DecodeIDTokenClaims("not-a-token"); err == nil {
		t.Error("decode of garbage token did not fail")
	}
}

func TestClaimSetStrings(t *testing.T) {
	claims := ClaimSet{
		"groups": []interface{}{"admins", "staff", 7},
		"single": "alone",
		"number": json.Number("1"),
	}

	groups, ok := claims.Strings("groups")
	if !ok || len(groups) != 2 || groups[0] != "admins" || groups[1] != "staff" {
		t.Errorf("groups claim got (%v, %v)", groups, ok)
	}

	single, ok := claims.Strings("single")
	if !ok || len(single) != 1 || single[0] != "alone" {
		t.Errorf("single claim got (%v, %v)", single, ok)
	}

	if _, ok := claims.Strings("number"); ok {
		t.Error("number claim unexpectedly converted to strings")
	}
	if _, ok := claims.Strings("missing"); ok {
		t.Error("missing claim unexpectedly converted to strings")
	}
}

func TestProviderMetadataEndpoint(t *testing.T) {
	metadata := &ProviderMetadata{
		Issuer:        "https://idp.example.com/realms/main",
		TokenEndpoint: "https://idp.example.com/realms/main/token",
	}

	uri, err := metadata.Endpoint(TokenEndpointKey)
	if err != nil {
		t.Fatal(err)
	}
	if uri.Host != "idp.example.com" {
		t.Errorf("token endpoint host got %v", uri.Host)
	}

	if _, err := metadata.Endpoint(EndSessionEndpointKey); err == nil {
		t.Error("missing end_session_endpoint did not fail")
	}
	if metadata.HasEndpoint(EndSessionEndpointKey) {
		t.Error("HasEndpoint true for missing end_session_endpoint")
	}
}

func TestValidateRootURL(t *testing.T) {
	uri, err := ValidateRootURL("https://idp.example.com/realms/main/")
	if err != nil {
		t.Fatal(err)
	}
	if uri.String() != "https://idp.example.com/realms/main" {
		t.Errorf("trailing slash not stripped: %v", uri)
	}

	for _, bad := range []string{"", "idp.example.com", "ftp://idp.example.com", "https://"} {
		if _, err := ValidateRootURL(bad); err == nil {
			t.Errorf("URL %q unexpectedly validated", bad)
		}
	}
}
