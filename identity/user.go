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

// User defines a most simple local user account with a locally unique
// numeric id.
type User interface {
	ID() int64
}

// UserWithUsername is a User with a username.
type UserWithUsername interface {
	User
	Username() string
}

// UserWithEmail is a User with an email address.
type UserWithEmail interface {
	User
	Email() string
}

// UserWithProfile is a User with username and email.
type UserWithProfile interface {
	User
	Username() string
	Email() string
}

// UsernameOf returns the username of the provided user when it has one.
func UsernameOf(user User) string {
	if withUsername, ok := user.(UserWithUsername); ok {
		return withUsername.Username()
	}

	return ""
}

// EmailOf returns the email address of the provided user when it has one.
func EmailOf(user User) string {
	if withEmail, ok := user.(UserWithEmail); ok {
		return withEmail.Email()
	}

	return ""
}
