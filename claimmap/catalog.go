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
	"sort"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap/conversion"
)

// AttributeCatalog looks up locally defined profile attributes by handle.
// Claim maps validate their attribute mappings against it.
type AttributeCatalog interface {
	// Lookup returns the attribute key for the provided handle and false
	// when no such attribute is defined.
	Lookup(handle string) (conversion.AttributeKey, bool)
}

// StaticCatalog is an AttributeCatalog over a fixed attribute set. It doubles
// as the test fixture catalog.
type StaticCatalog map[string]conversion.AttributeKey

// NewStaticCatalog creates a StaticCatalog from the provided attribute keys,
// indexed by handle.
func NewStaticCatalog(keys ...conversion.AttributeKey) StaticCatalog {
	catalog := make(StaticCatalog, len(keys))
	for _, key := range keys {
		catalog[key.Handle] = key
	}

	return catalog
}

// Lookup implements the AttributeCatalog interface.
func (c StaticCatalog) Lookup(handle string) (conversion.AttributeKey, bool) {
	key, ok := c[handle]
	return key, ok
}

// Handles returns all attribute handles of the catalog, sorted.
func (c StaticCatalog) Handles() []string {
	handles := make([]string, 0, len(c))
	for handle := range c {
		handles = append(handles, handle)
	}
	sort.Strings(handles)

	return handles
}
