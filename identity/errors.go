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
	"fmt"
	"strings"
)

// ReconcileError is a reconciliation error with id and description. User
// facing errors carry descriptions suitable for the login and attach UI.
type ReconcileError struct {
	ID         string
	Desc       string
	UserFacing bool
}

// Error implements the error interface.
func (err *ReconcileError) Error() string {
	return err.ID
}

// Description implements the utils.ErrorWithDescription interface.
func (err *ReconcileError) Description() string {
	return err.Desc
}

// IsUserFacing implements the utils.UserFacingError interface.
func (err *ReconcileError) IsUserFacing() bool {
	return err.UserFacing
}

// Reconciliation errors.
var (
	ErrEmailNotVerified = &ReconcileError{
		ID:         "email_not_verified",
		Desc:       "please verify your email before logging in",
		UserFacing: true,
	}
	ErrEmailCollision = &ReconcileError{
		ID:         "email_collision",
		Desc:       "another user already exists with this email",
		UserFacing: true,
	}
	ErrUsernameCollision = &ReconcileError{
		ID:         "username_collision",
		Desc:       "another user already exists with this username",
		UserFacing: true,
	}
	ErrRegistrationDisabled = &ReconcileError{
		ID:         "registration_disabled",
		Desc:       "no local account is associated with this identity",
		UserFacing: true,
	}
)

// NewMissingClaimsError creates the fatal error for claims required by the
// claim map but absent from the received claim set.
func NewMissingClaimsError(claimNames []string) *ReconcileError {
	return &ReconcileError{
		ID:   "missing_required_claims",
		Desc: fmt.Sprintf("required claims missing: %s", strings.Join(claimNames, ", ")),
	}
}
