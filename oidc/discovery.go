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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// WellKnownPath is the well known openid-configuration path as specified at
// https://openid.net/specs/openid-connect-discovery-1_0.html
const WellKnownPath = "/.well-known/openid-configuration"

// Endpoint keys resolvable from a ProviderMetadata snapshot.
const (
	AuthorizationEndpointKey = "authorization_endpoint"
	TokenEndpointKey         = "token_endpoint"
	UserInfoEndpointKey      = "userinfo_endpoint"
	EndSessionEndpointKey    = "end_session_endpoint"
	JwksURIKey               = "jwks_uri"
)

// ProviderMetadata is a snapshot of the OpenID Connect 1.0 discovery provider
// meta data as specified at
// https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
	JwksURI               string `json:"jwks_uri,omitempty"`

	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported []string `json:"response_types_supported,omitempty"`
	SubjectTypesSupported  []string `json:"subject_types_supported,omitempty"`
	ClaimsSupported        []string `json:"claims_supported,omitempty"`
}

// Endpoint resolves the endpoint registered in the snapshot under the
// provided key. An empty or unknown key is an error which names the key so
// callers can attribute it to their configuration.
func (pm *ProviderMetadata) Endpoint(key string) (*url.URL, error) {
	var value string
	switch key {
	case AuthorizationEndpointKey:
		value = pm.AuthorizationEndpoint
	case TokenEndpointKey:
		value = pm.TokenEndpoint
	case UserInfoEndpointKey:
		value = pm.UserInfoEndpoint
	case EndSessionEndpointKey:
		value = pm.EndSessionEndpoint
	case JwksURIKey:
		value = pm.JwksURI
	default:
		return nil, fmt.Errorf("unknown endpoint key %s", key)
	}

	if value == "" {
		return nil, fmt.Errorf("openid-configuration has no %s", key)
	}

	uri, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", key, err)
	}

	return uri, nil
}

// HasEndpoint returns true when the snapshot registers a non-empty endpoint
// under the provided key.
func (pm *ProviderMetadata) HasEndpoint(key string) bool {
	_, err := pm.Endpoint(key)
	return err == nil
}

// ValidateRootURL parses and validates an issuer root URL. It requires an
// absolute http or https URL with a host and returns the URL with any
// trailing slash removed.
func ValidateRootURL(rootURL string) (*url.URL, error) {
	uri, err := url.Parse(strings.TrimRight(rootURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if uri.Scheme != "https" && uri.Scheme != "http" {
		return nil, fmt.Errorf("URL must be http or https")
	}
	if uri.Host == "" {
		return nil, fmt.Errorf("URL must have a host")
	}

	return uri, nil
}

// FetchProviderMetadata fetches and decodes the openid-configuration document
// below the provided issuer root URL. The provided client is used for the
// request, falling back to the default client when nil.
func FetchProviderMetadata(ctx context.Context, client *http.Client, rootURL string) (*ProviderMetadata, error) {
	uri, err := ValidateRootURL(rootURL)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = utils.DefaultHTTPClient
	}

	request, err := http.NewRequest(http.MethodGet, uri.String()+WellKnownPath, nil)
	if err != nil {
		return nil, err
	}
	request = request.WithContext(ctx)
	request.Header.Set("User-Agent", utils.DefaultHTTPUserAgent)

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch openid-configuration: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch openid-configuration: unexpected response status %d", response.StatusCode)
	}

	metadata := &ProviderMetadata{}
	if err := json.NewDecoder(response.Body).Decode(metadata); err != nil {
		return nil, fmt.Errorf("failed to decode openid-configuration: %v", err)
	}
	if metadata.Issuer == "" {
		return nil, fmt.Errorf("openid-configuration has no issuer")
	}

	return metadata, nil
}
