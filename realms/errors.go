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

// RealmError is a realm selection or configuration error with id and
// description. User facing errors carry descriptions suitable for the
// login and attach UI.
type RealmError struct {
	ID         string
	Desc       string
	UserFacing bool
}

// Error implements the error interface.
func (err *RealmError) Error() string {
	return err.ID
}

// Description implements the utils.ErrorWithDescription interface.
func (err *RealmError) Description() string {
	return err.Desc
}

// IsUserFacing implements the utils.UserFacingError interface.
func (err *RealmError) IsUserFacing() bool {
	return err.UserFacing
}

// Selection errors.
var (
	ErrNoRealmConfigured = &RealmError{
		ID:   "no_realm_configured",
		Desc: "no realm configured",
	}
	ErrNoRealmForEmail = &RealmError{
		ID:         "no_realm_for_email",
		Desc:       "no realm can handle this email",
		UserFacing: true,
	}
	ErrEmailRequired = &RealmError{
		ID:         "email_required",
		Desc:       "an email address is required to select a realm",
		UserFacing: true,
	}
	ErrRealmNotFound = &RealmError{
		ID:   "realm_not_found",
		Desc: "no realm with this handle",
	}
)
