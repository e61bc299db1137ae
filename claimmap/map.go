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

package claimmap

import (
	"encoding/json"
	"sort"

	mapset "github.com/deckarep/golang-set"

	keycloakauth "github.com/vvlab-dev/ConcreteCMS-keycloak"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// Map is the per realm claim mapping configuration. It binds logical profile
// fields to claim names, claims to local attribute handles and carries the
// group sync block.
type Map struct {
	fields     map[string]string
	claimOrder []string
	attributes map[string][]string
	groups     Groups
}

// AttributeMapping pairs one claim name with the attribute handles populated
// from its value.
type AttributeMapping struct {
	ClaimName  string
	Attributes []string
}

// NewMap creates a new empty Map.
func NewMap() *Map {
	return &Map{
		fields:     make(map[string]string),
		attributes: make(map[string][]string),
	}
}

// DefaultMap creates a Map wiring the standard OIDC subject and email claims
// to the unique ID and email fields. It is the fallback whenever a realm has
// no or corrupt claim map data.
func DefaultMap() *Map {
	m := NewMap()
	m.MapField(keycloakauth.FieldUniqueID, oidc.SubjectIdentifierClaim)
	m.MapField(keycloakauth.FieldEmail, oidc.EmailClaim)

	return m
}

// MapField binds the provided logical field to the provided claim name. An
// empty claim name unmaps the field.
func (m *Map) MapField(field string, claimName string) {
	if claimName == "" {
		delete(m.fields, field)
		return
	}

	m.fields[field] = claimName
}

// ClaimNameForField returns the claim name bound to the provided field, or
// the empty string when the field is unmapped.
func (m *Map) ClaimNameForField(field string) string {
	return m.fields[field]
}

// Fields returns a copy of the current field to claim name bindings.
func (m *Map) Fields() map[string]string {
	fields := make(map[string]string, len(m.fields))
	for field, claimName := range m.fields {
		fields[field] = claimName
	}

	return fields
}

// SetAttributesForClaim replaces the full attribute handle set populated from
// the provided claim. An empty set removes the claim from the mapping.
func (m *Map) SetAttributesForClaim(claimName string, handles []string) {
	if len(handles) == 0 {
		if _, ok := m.attributes[claimName]; ok {
			delete(m.attributes, claimName)
			for i, claim := range m.claimOrder {
				if claim == claimName {
					m.claimOrder = append(m.claimOrder[:i], m.claimOrder[i+1:]...)
					break
				}
			}
		}
		return
	}

	if _, ok := m.attributes[claimName]; !ok {
		m.claimOrder = append(m.claimOrder, claimName)
	}
	m.attributes[claimName] = append([]string{}, handles...)
}

// AddAttributeForClaim adds the provided attribute handle to the set
// populated from the provided claim. Adding a handle already in the set is a
// no-op, so the last write per handle and claim wins.
func (m *Map) AddAttributeForClaim(claimName string, handle string) {
	handles, ok := m.attributes[claimName]
	if !ok {
		m.claimOrder = append(m.claimOrder, claimName)
		m.attributes[claimName] = []string{handle}
		return
	}

	for _, existing := range handles {
		if existing == handle {
			return
		}
	}
	m.attributes[claimName] = append(handles, handle)
}

// AttributeList returns the claim to attribute mappings in claim insertion
// order. The result reflects the current state, not a snapshot.
func (m *Map) AttributeList() []AttributeMapping {
	list := make([]AttributeMapping, 0, len(m.claimOrder))
	for _, claimName := range m.claimOrder {
		list = append(list, AttributeMapping{
			ClaimName:  claimName,
			Attributes: append([]string{}, m.attributes[claimName]...),
		})
	}

	return list
}

// Groups returns the group sync block.
func (m *Map) Groups() *Groups {
	return &m.groups
}

// SetGroups replaces the group sync block.
func (m *Map) SetGroups(groups Groups) {
	m.groups = groups
}

// JSON shape round-tripped through the admin configuration surface.
type mapJSON struct {
	Fields     map[string]string   `json:"fields,omitempty"`
	Attributes []attributePairJSON `json:"attributes,omitempty"`
	Groups     *Groups             `json:"groups,omitempty"`
}

type attributePairJSON struct {
	Claim     string `json:"claim"`
	Attribute string `json:"attribute"`
}

// Serialize encodes the map as canonical JSON. Empty sections are omitted
// entirely, an empty map serializes to {}.
func (m *Map) Serialize() (string, error) {
	encoded := &mapJSON{}

	if len(m.fields) > 0 {
		encoded.Fields = m.Fields()
	}
	for _, mapping := range m.AttributeList() {
		for _, handle := range mapping.Attributes {
			encoded.Attributes = append(encoded.Attributes, attributePairJSON{
				Claim:     mapping.ClaimName,
				Attribute: handle,
			})
		}
	}
	if !m.groups.Empty() {
		groups := m.groups
		encoded.Groups = &groups
	}

	data, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Unserialize decodes claim map data, validating it against the provided
// attribute catalog and reserved groups. Problems with individual entries are
// recorded in the provided error list and the entry is skipped. The result is
// nil when there is no data at all, when it does not decode, or when the
// unique ID or email field ends up unmapped. Callers fall back to DefaultMap
// in that case.
func Unserialize(data interface{}, catalog AttributeCatalog, reserved ReservedGroups, errors *utils.ErrorList) *Map {
	var raw []byte
	switch typed := data.(type) {
	case nil:
		errors.Addf("no claim map data")
		return nil
	case string:
		if typed == "" {
			errors.Addf("no claim map data")
			return nil
		}
		raw = []byte(typed)
	case []byte:
		if len(typed) == 0 {
			errors.Addf("no claim map data")
			return nil
		}
		raw = typed
	case map[string]interface{}:
		encoded, err := json.Marshal(typed)
		if err != nil {
			errors.Addf("claim map data does not encode: %v", err)
			return nil
		}
		raw = encoded
	default:
		errors.Addf("claim map data has unsupported type %T", data)
		return nil
	}

	decoded := &mapJSON{}
	if err := json.Unmarshal(raw, decoded); err != nil {
		errors.Addf("claim map data does not decode: %v", err)
		return nil
	}

	m := NewMap()

	fieldNames := make([]string, 0, len(decoded.Fields))
	for field := range decoded.Fields {
		fieldNames = append(fieldNames, field)
	}
	sort.Strings(fieldNames)
	for _, field := range fieldNames {
		if !keycloakauth.IsKnownField(field) {
			errors.Addf("claim map contains unknown field %s", field)
			continue
		}
		m.MapField(field, decoded.Fields[field])
	}

	seenHandles := mapset.NewSet()
	for _, pair := range decoded.Attributes {
		// The admin form submits blank rows, incomplete pairs are dropped
		// without note.
		if pair.Claim == "" || pair.Attribute == "" {
			continue
		}
		if catalog != nil {
			if _, ok := catalog.Lookup(pair.Attribute); !ok {
				errors.Addf("claim map maps claim %s to unknown attribute %s", pair.Claim, pair.Attribute)
				continue
			}
		}
		if !seenHandles.Add(pair.Attribute) {
			errors.Addf("claim map maps attribute %s more than once", pair.Attribute)
			continue
		}
		m.AddAttributeForClaim(pair.Claim, pair.Attribute)
	}

	if decoded.Groups != nil {
		groups := Groups{
			ClaimName: decoded.Groups.ClaimName,
		}
		for _, rule := range decoded.Groups.Rules {
			if err := rule.Validate(reserved); err != nil {
				errors.Add(err)
				continue
			}
			groups.Rules = append(groups.Rules, rule)
		}
		m.SetGroups(groups)
	}

	missing := false
	if m.ClaimNameForField(keycloakauth.FieldUniqueID) == "" {
		errors.Addf("claim map has no claim for the %s field", keycloakauth.DescribeField(keycloakauth.FieldUniqueID))
		missing = true
	}
	if m.ClaimNameForField(keycloakauth.FieldEmail) == "" {
		errors.Addf("claim map has no claim for the %s field", keycloakauth.DescribeField(keycloakauth.FieldEmail))
		missing = true
	}
	if missing {
		return nil
	}

	return m
}
