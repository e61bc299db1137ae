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

package conversion

import (
	"regexp"
	"strings"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
)

var lineBreakRegexp = regexp.MustCompile(`\r\n|\r|\n`)

// AddressValue is the typed value produced for address attributes.
type AddressValue struct {
	AddressLine1  string `json:"address1,omitempty"`
	AddressLine2  string `json:"address2,omitempty"`
	AddressLine3  string `json:"address3,omitempty"`
	City          string `json:"city,omitempty"`
	StateProvince string `json:"state_province,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`
}

// AddressConverter converts OIDC address claim objects to address attribute
// values. Localized country and state names are resolved to their codes using
// the locales of the provided Localizer, unresolved names are kept verbatim.
type AddressConverter struct {
	localizer Localizer
}

// NewAddressConverter creates a new AddressConverter with the provided
// Localizer. A nil Localizer falls back to English only resolution.
func NewAddressConverter(localizer Localizer) *AddressConverter {
	if localizer == nil {
		localizer = DefaultLocalizer
	}

	return &AddressConverter{
		localizer: localizer,
	}
}

// SupportedTypes implements the Converter interface.
func (c *AddressConverter) SupportedTypes() []string {
	return []string{TypeAddress}
}

// Convert implements the Converter interface.
func (c *AddressConverter) Convert(key AttributeKey, value interface{}) (interface{}, bool) {
	var members map[string]interface{}
	switch typed := value.(type) {
	case map[string]interface{}:
		members = typed
	case oidc.ClaimSet:
		members = typed
	default:
		return nil, false
	}

	member := func(name string) string {
		s, _ := stringFromScalar(members[name])
		return strings.TrimSpace(s)
	}

	address := &AddressValue{
		City:       member(oidc.AddressLocalityMember),
		PostalCode: member(oidc.AddressPostalCodeMember),
	}

	streetLines := lineBreakRegexp.Split(member(oidc.AddressStreetAddressMember), -1)
	if len(streetLines) > 0 {
		address.AddressLine1 = strings.TrimSpace(streetLines[0])
	}
	if len(streetLines) > 1 {
		address.AddressLine2 = strings.TrimSpace(streetLines[1])
	}
	if len(streetLines) > 2 {
		address.AddressLine3 = strings.TrimSpace(streetLines[2])
	}

	region := member(oidc.AddressRegionMember)
	country := member(oidc.AddressCountryMember)

	// A bare country with no street, city, state or postal code carries no
	// usable address information.
	if address.AddressLine1 == "" && address.City == "" && region == "" && address.PostalCode == "" {
		return nil, false
	}

	countryCode, resolved := resolveCountryCode(c.localizer, country)
	if resolved {
		address.Country = countryCode
	} else {
		address.Country = country
	}

	if stateCode, ok := resolveStateProvince(address.Country, region); ok {
		address.StateProvince = stateCode
	} else {
		address.StateProvince = region
	}

	return address, true
}
