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
	"fmt"
	"regexp"
	"strings"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// Realm is one configured identity provider with its credentials, claim map
// and selection settings.
type Realm struct {
	// Handle is the stable opaque identifier of the realm, generated on
	// first registration and kept across edits.
	Handle string `yaml:"handle" json:"handle,omitempty"`
	// Name is the administrator facing display name.
	Name string `yaml:"name" json:"name,omitempty"`
	// Sort orders realms for selection, ascending.
	Sort int `yaml:"sort" json:"sort"`

	// RealmRootURL is the issuer base URL, without trailing slash.
	RealmRootURL string `yaml:"realm_root_url" json:"realmRootUrl"`
	// OpenIDConfiguration is the frozen discovery snapshot fetched from
	// below RealmRootURL.
	OpenIDConfiguration *oidc.ProviderMetadata `yaml:"openid_configuration,omitempty" json:"openIDConfiguration,omitempty"`

	ClientID     string `yaml:"client_id" json:"clientID"`
	ClientSecret string `yaml:"client_secret" json:"clientSecret,omitempty"`

	// RegistrationEnabled allows auto creation of local users for
	// identities of this realm.
	RegistrationEnabled bool `yaml:"registration_enabled" json:"registrationEnabled"`
	// RegistrationGroupID is the local group newly registered users join.
	// Values below one mean none.
	RegistrationGroupID int64 `yaml:"registration_group_id" json:"registrationGroupID,omitempty"`

	// EmailRegexes decide whether an email address belongs to this realm.
	// An empty list makes the realm a catch-all.
	EmailRegexes []string `yaml:"email_regexes" json:"emailRegexes,omitempty"`

	// LogoutOnLogout triggers an OIDC end session redirect on local logout.
	LogoutOnLogout bool `yaml:"logout_on_logout" json:"logoutOnLogout"`

	// ClaimMapData is the serialized claim map JSON. Absent or invalid data
	// falls back to the default map.
	ClaimMapData string `yaml:"claim_map,omitempty" json:"claimMap,omitempty"`

	// LogNextReceivedClaims is the one-shot diagnostics capture flag,
	// LastLoggedReceivedClaims its last captured raw claim payload.
	LogNextReceivedClaims    bool   `yaml:"log_next_received_claims,omitempty" json:"logNextReceivedClaims,omitempty"`
	LastLoggedReceivedClaims []byte `yaml:"-" json:"lastLoggedReceivedClaims,omitempty"`

	emailRegexps []*regexp.Regexp
	claimMap     *claimmap.Map
}

// Validate normalizes and checks the realm registration. Credentials are
// trimmed, the root URL is canonicalized and the email regexes compiled. A
// malformed regex is an error naming the offending pattern and the realm.
func (r *Realm) Validate() error {
	uri, err := oidc.ValidateRootURL(r.RealmRootURL)
	if err != nil {
		return fmt.Errorf("realm %s root URL: %v", r.describe(), err)
	}
	r.RealmRootURL = uri.String()

	r.ClientID = strings.TrimSpace(r.ClientID)
	r.ClientSecret = strings.TrimSpace(r.ClientSecret)
	if r.ClientID == "" {
		return fmt.Errorf("realm %s has no client_id", r.describe())
	}

	if r.RegistrationGroupID <= 0 {
		r.RegistrationGroupID = 0
	}

	r.emailRegexps = nil
	for _, pattern := range r.EmailRegexes {
		compiled, compileErr := compileEmailRegex(pattern)
		if compileErr != nil {
			return fmt.Errorf("realm %s has invalid email pattern %s: %v", r.describe(), pattern, compileErr)
		}
		r.emailRegexps = append(r.emailRegexps, compiled)
	}

	return nil
}

func compileEmailRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// IsCatchAll returns true when the realm has no email patterns and thus
// matches any email.
func (r *Realm) IsCatchAll() bool {
	return len(r.EmailRegexes) == 0
}

// MatchesEmail evaluates the realm's email patterns against the provided
// email, case-insensitively and in order. A malformed pattern is an error.
func (r *Realm) MatchesEmail(email string) (bool, error) {
	if r.IsCatchAll() {
		return true, nil
	}

	regexps := r.emailRegexps
	if len(regexps) != len(r.EmailRegexes) {
		regexps = regexps[:0]
		for _, pattern := range r.EmailRegexes {
			compiled, err := compileEmailRegex(pattern)
			if err != nil {
				return false, fmt.Errorf("realm %s has invalid email pattern %s: %v", r.describe(), pattern, err)
			}
			regexps = append(regexps, compiled)
		}
		r.emailRegexps = regexps
	}

	for _, compiled := range regexps {
		if compiled.MatchString(email) {
			return true, nil
		}
	}

	return false, nil
}

// ClaimMap returns the realm's resolved claim map. Missing or corrupt claim
// map data falls back to the default map, recording the problems in the
// provided error list when not nil.
func (r *Realm) ClaimMap(catalog claimmap.AttributeCatalog, reserved claimmap.ReservedGroups, errors *utils.ErrorList) *claimmap.Map {
	if r.claimMap != nil {
		return r.claimMap
	}

	if r.ClaimMapData != "" {
		if m := claimmap.Unserialize(r.ClaimMapData, catalog, reserved, errors); m != nil {
			r.claimMap = m
			return m
		}
	}

	r.claimMap = claimmap.DefaultMap()
	return r.claimMap
}

// InvalidateClaimMap drops the cached resolved claim map so the next
// ClaimMap call re-reads ClaimMapData.
func (r *Realm) InvalidateClaimMap() {
	r.claimMap = nil
}

// EndSessionEndpoint returns the end session endpoint of the realm's
// discovery snapshot when the realm participates in logout. The second
// return value is false when logout does not apply to this realm.
func (r *Realm) EndSessionEndpoint() (string, bool) {
	if !r.LogoutOnLogout || r.OpenIDConfiguration == nil {
		return "", false
	}
	if !r.OpenIDConfiguration.HasEndpoint(oidc.EndSessionEndpointKey) {
		return "", false
	}

	return r.OpenIDConfiguration.EndSessionEndpoint, true
}

func (r *Realm) describe() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Handle != "" {
		return r.Handle
	}

	return r.RealmRootURL
}
