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

package server

import (
	"encoding/json"
)

// RealmSelectRequest is the form payload of the realm selection endpoint.
type RealmSelectRequest struct {
	Email string `schema:"email"`
	Mode  string `schema:"mode"`
}

// RealmSelectResponse carries the selected realm and the signed state token
// for the authorization redirect.
type RealmSelectResponse struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`

	AuthorizationEndpoint string `json:"authorization_endpoint"`
	ClientID              string `json:"client_id"`

	State string `json:"state"`
}

// RealmProbeResponse tells the login form whether an email address must be
// collected before a realm can be selected.
type RealmProbeResponse struct {
	EmailRequired bool `json:"email_required"`
}

// ReconcileRequest is the JSON payload of the reconciliation endpoint. The
// claims member carries the already validated token claims. The user id is
// the authenticated local account in attach mode and ignored otherwise.
type ReconcileRequest struct {
	State  string          `json:"state"`
	Claims json.RawMessage `json:"claims"`
	UserID int64           `json:"user_id,omitempty"`
}

// ReconcileResponse reports what a reconciliation changed.
type ReconcileResponse struct {
	UserID int64 `json:"user_id"`

	Created         bool `json:"created"`
	UsernameUpdated bool `json:"username_updated"`
	EmailUpdated    bool `json:"email_updated"`

	AttributesSet []string `json:"attributes_set,omitempty"`
	GroupsJoined  []int64  `json:"groups_joined,omitempty"`
	GroupsLeft    []int64  `json:"groups_left,omitempty"`
}

// EndSessionParams are the query parameters appended to the provider's end
// session endpoint on logout.
type EndSessionParams struct {
	IDTokenHint           string `url:"id_token_hint,omitempty"`
	PostLogoutRedirectURI string `url:"post_logout_redirect_uri,omitempty"`
}

// ClaimMapCheckResponse reports the validation result of a submitted claim
// map.
type ClaimMapCheckResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// ErrorsResponse aggregates the validation messages of a refused realm
// replace batch.
type ErrorsResponse struct {
	Errors []string `json:"errors"`
}
