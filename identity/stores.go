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

package identity

import (
	"context"
)

// UserLookup finds local users. Lookups return nil without error when no
// user matches.
type UserLookup interface {
	// UserByID returns the user with the provided local id.
	UserByID(ctx context.Context, id int64) (User, error)
	// UserByBinding returns the user bound to the provided remote subject.
	UserByBinding(ctx context.Context, bindingID string) (User, error)
	// UserByEmail returns the user with the provided email address,
	// compared case-insensitively.
	UserByEmail(ctx context.Context, email string) (User, error)
	// UserByUsername returns the user with the provided username, compared
	// case-insensitively.
	UserByUsername(ctx context.Context, username string) (User, error)
}

// UserStore creates and updates local users.
type UserStore interface {
	UserLookup

	// CreateUser creates a new local user with the provided username and
	// email address.
	CreateUser(ctx context.Context, username string, email string) (User, error)
	// BindUser binds the provided user to the provided remote subject.
	// Rebinding replaces an earlier binding of the same user.
	BindUser(ctx context.Context, user User, bindingID string) error
	// UnbindUser removes the binding of the provided user, if any.
	UnbindUser(ctx context.Context, user User) error
	// UpdateUsername renames the provided user.
	UpdateUsername(ctx context.Context, user User, username string) error
	// UpdateEmail changes the provided user's email address.
	UpdateEmail(ctx context.Context, user User, email string) error
}

// AttributeStore persists local profile attribute values.
type AttributeStore interface {
	// Attribute returns the current value of the provided attribute handle
	// for the provided user, nil when unset.
	Attribute(ctx context.Context, user User, handle string) (interface{}, error)
	// SetAttribute sets the value of the provided attribute handle for the
	// provided user.
	SetAttribute(ctx context.Context, user User, handle string, value interface{}) error
}

// GroupStore maintains local group memberships.
type GroupStore interface {
	IsMember(ctx context.Context, user User, groupID int64) (bool, error)
	Join(ctx context.Context, user User, groupID int64) error
	Leave(ctx context.Context, user User, groupID int64) error
}
