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

package keycloakauth

import (
	"context"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
)

// key is an unexported type for keys defined in this package.
// This prevents collisions with keys defined in other packages.
type key int

// claimSetKey is the key for a decoded oidc.ClaimSet in Contexts. It is
// unexported; clients use keycloakauth.NewClaimSetContext and
// keycloakauth.FromClaimSetContext instead of using this key directly.
var claimSetKey key

// NewClaimSetContext returns a new Context that carries the provided decoded
// claim set.
func NewClaimSetContext(ctx context.Context, claims oidc.ClaimSet) context.Context {
	return context.WithValue(ctx, claimSetKey, claims)
}

// FromClaimSetContext returns the decoded claim set stored in ctx, if any.
func FromClaimSetContext(ctx context.Context) (oidc.ClaimSet, bool) {
	claims, ok := ctx.Value(claimSetKey).(oidc.ClaimSet)
	return claims, ok
}
