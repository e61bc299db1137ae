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
	"context"
)

// Store persists realm registrations.
type Store interface {
	// All returns all persisted realms.
	All(ctx context.Context) ([]*Realm, error)
	// Upsert creates or replaces the realm identified by its handle.
	Upsert(ctx context.Context, realm *Realm) error
	// Delete removes the realm with the provided handle. Deleting an
	// unknown handle is not an error.
	Delete(ctx context.Context, handle string) error
	// StoreCapturedClaims persists a one-shot claim capture for the realm
	// with the provided handle and clears its capture flag.
	StoreCapturedClaims(ctx context.Context, handle string, payload []byte) error
	// LoadCapturedClaims returns the last captured claim payload of the
	// realm with the provided handle, or nil when none was captured.
	LoadCapturedClaims(ctx context.Context, handle string) ([]byte, error)
}
