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

// Logical profile fields which can be mapped to claims by a claim map.
const (
	FieldUniqueID      = "unique_id"
	FieldUsername      = "username"
	FieldEmail         = "email"
	FieldVerifiedEmail = "verified_email"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldFullName      = "full_name"
	FieldLocation      = "location"
	FieldDescription   = "description"
	FieldImageURL      = "image_url"
	FieldProfileURL    = "profile_url"
	FieldWebsites      = "websites"
)

// knownFields lists all mappable fields in a stable order.
var knownFields = []string{
	FieldUniqueID,
	FieldUsername,
	FieldEmail,
	FieldVerifiedEmail,
	FieldFirstName,
	FieldLastName,
	FieldFullName,
	FieldLocation,
	FieldDescription,
	FieldImageURL,
	FieldProfileURL,
	FieldWebsites,
}

// KnownFields returns the names of all logical fields which a claim map
// may bind to a claim.
func KnownFields() []string {
	fields := make([]string, len(knownFields))
	copy(fields, knownFields)

	return fields
}

// IsKnownField returns true if the provided name is a mappable logical field.
func IsKnownField(field string) bool {
	for _, known := range knownFields {
		if known == field {
			return true
		}
	}

	return false
}

// DescribeField returns a human readable description for the provided
// logical field. Unknown fields are returned as is.
func DescribeField(field string) string {
	switch field {
	case FieldUniqueID:
		return "Unique ID"
	case FieldUsername:
		return "Username"
	case FieldEmail:
		return "Email"
	case FieldVerifiedEmail:
		return "Email Verified"
	case FieldFirstName:
		return "First Name"
	case FieldLastName:
		return "Last Name"
	case FieldFullName:
		return "Full Name"
	case FieldLocation:
		return "Location"
	case FieldDescription:
		return "Description"
	case FieldImageURL:
		return "Image URL"
	case FieldProfileURL:
		return "Profile URL"
	case FieldWebsites:
		return "Websites"
	}

	return field
}
