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

// Select picks the realm handling the provided email from the provided
// realms, which must already be in ascending sort order. A realm without
// email patterns is a catch-all and selected as soon as it is reached,
// whatever its position. A malformed pattern aborts selection with an error
// naming the pattern and its realm. When no email is provided the first
// realm is used when it is a catch-all, otherwise the caller has to obtain
// an email first.
func Select(sorted []*Realm, email string) (*Realm, error) {
	if len(sorted) == 0 {
		return nil, ErrNoRealmConfigured
	}

	if email == "" {
		if sorted[0].IsCatchAll() {
			return sorted[0], nil
		}
		return nil, ErrEmailRequired
	}

	for _, realm := range sorted {
		matches, err := realm.MatchesEmail(email)
		if err != nil {
			return nil, err
		}
		if matches {
			return realm, nil
		}
	}

	return nil, ErrNoRealmForEmail
}

// EmailRequired returns true when an email address is needed before a realm
// can be selected, which is the case whenever the first realm has email
// patterns configured.
func EmailRequired(sorted []*Realm) bool {
	if len(sorted) == 0 {
		return false
	}

	return !sorted[0].IsCatchAll()
}
