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
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/identity"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/realms"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// HealthCheckHandler a http handler return 200 OK when server health is fine.
func (s *Server) HealthCheckHandler(rw http.ResponseWriter, req *http.Request) {
	rw.WriteHeader(http.StatusOK)
}

// RealmSelectHandler picks the realm for the submitted email address and
// returns it together with a signed state token for the authorization
// redirect.
func (s *Server) RealmSelectHandler(rw http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	request := &RealmSelectRequest{}
	if err := s.formDecoder.Decode(request, req.Form); err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	switch request.Mode {
	case "":
		request.Mode = realms.ModeLogin
	case realms.ModeLogin, realms.ModeAttach:
	default:
		s.writeError(rw, http.StatusBadRequest, "invalid_request", "unknown mode")
		return
	}

	realm, err := s.config.Registry.Select(req.Context(), request.Email)
	if err != nil {
		if utils.IsUserFacing(err) {
			s.writeError(rw, http.StatusBadRequest, err.Error(), err.(utils.ErrorWithDescription).Description())
		} else {
			s.logger.WithError(utils.DescribeError(err)).Errorln("realm selection failed")
			s.writeError(rw, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	if realm.OpenIDConfiguration == nil {
		s.logger.WithField("handle", realm.Handle).Errorln("selected realm has no discovery snapshot")
		s.writeError(rw, http.StatusInternalServerError, "server_error", "realm has no discovery snapshot")
		return
	}
	authorizationEndpoint, err := realm.OpenIDConfiguration.Endpoint(oidc.AuthorizationEndpointKey)
	if err != nil {
		s.logger.WithError(err).WithField("handle", realm.Handle).Errorln("selected realm misses endpoint")
		s.writeError(rw, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	state, err := s.config.Signer.Sign(realm.Handle, request.Mode)
	if err != nil {
		s.logger.WithError(err).Errorln("failed to sign state token")
		s.writeError(rw, http.StatusInternalServerError, "server_error", "")
		return
	}

	response := &RealmSelectResponse{
		Handle: realm.Handle,
		Name:   realm.Name,

		AuthorizationEndpoint: authorizationEndpoint.String(),
		ClientID:              realm.ClientID,

		State: state,
	}
	if err := utils.WriteJSON(rw, http.StatusOK, response, ""); err != nil {
		s.logger.WithError(err).Errorln("failed to write realm select response")
	}
}

// RealmProbeHandler tells the login form whether an email address is needed
// before a realm can be selected.
func (s *Server) RealmProbeHandler(rw http.ResponseWriter, req *http.Request) {
	response := &RealmProbeResponse{
		EmailRequired: s.config.Registry.EmailRequired(req.Context()),
	}
	if err := utils.WriteJSON(rw, http.StatusOK, response, ""); err != nil {
		s.logger.WithError(err).Errorln("failed to write realm probe response")
	}
}

// ReconcileHandler verifies the state token, decodes the claim payload and
// runs one reconciliation against the realm recovered from the state.
func (s *Server) ReconcileHandler(rw http.ResponseWriter, req *http.Request) {
	request := &ReconcileRequest{}
	if err := json.NewDecoder(req.Body).Decode(request); err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	state, err := s.config.Signer.Verify(request.State)
	if err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_state", err.Error())
		return
	}
	realm, ok := s.config.Registry.Get(req.Context(), state.RealmHandle)
	if !ok {
		s.writeError(rw, http.StatusBadRequest, "invalid_state", "state names an unknown realm")
		return
	}

	claims, err := oidc.DecodeClaimSetJSON(request.Claims)
	if err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var user identity.User
	if state.Mode == realms.ModeAttach {
		if request.UserID <= 0 {
			s.writeError(rw, http.StatusBadRequest, "invalid_request", "attach requires a user id")
			return
		}
		user, err = s.config.Users.UserByID(req.Context(), request.UserID)
		if err != nil {
			s.logger.WithError(err).Errorln("user lookup failed")
			s.writeError(rw, http.StatusInternalServerError, "server_error", "")
			return
		}
		if user == nil {
			s.writeError(rw, http.StatusBadRequest, "invalid_request", "unknown user")
			return
		}
	}

	result, err := s.config.Reconciler.Reconcile(req.Context(), realm, claims, user)
	if err != nil {
		s.writeReconcileError(rw, err)
		return
	}

	response := &ReconcileResponse{
		UserID: result.User.ID(),

		Created:         result.Created,
		UsernameUpdated: result.UsernameUpdated,
		EmailUpdated:    result.EmailUpdated,

		AttributesSet: result.AttributesSet,
		GroupsJoined:  result.GroupsJoined,
		GroupsLeft:    result.GroupsLeft,
	}
	if err := utils.WriteJSON(rw, http.StatusOK, response, ""); err != nil {
		s.logger.WithError(err).Errorln("failed to write reconcile response")
	}
}

// LogoutHandler redirects to the realm's end session endpoint when the realm
// participates in logout, and responds with no content otherwise.
func (s *Server) LogoutHandler(rw http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	// Logout is a browser navigation target, errors render as plain pages.
	realm, ok := s.config.Registry.Get(req.Context(), query.Get("handle"))
	if !ok {
		utils.WriteErrorPage(rw, http.StatusNotFound, "", "unknown realm")
		return
	}

	endpoint, ok := realm.EndSessionEndpoint()
	if !ok {
		rw.WriteHeader(http.StatusNoContent)
		return
	}
	uri, err := url.Parse(endpoint)
	if err != nil {
		s.logger.WithError(err).WithField("handle", realm.Handle).Errorln("invalid end session endpoint")
		utils.WriteErrorPage(rw, http.StatusInternalServerError, "", "")
		return
	}

	params := &EndSessionParams{
		IDTokenHint:           query.Get("id_token_hint"),
		PostLogoutRedirectURI: query.Get("post_logout_redirect_uri"),
	}
	if err := utils.WriteRedirect(rw, http.StatusFound, uri, params, false); err != nil {
		s.logger.WithError(err).Errorln("failed to write logout redirect")
	}
}

// AdminRealmsGetHandler returns all registered realms.
func (s *Server) AdminRealmsGetHandler(rw http.ResponseWriter, req *http.Request) {
	if err := utils.WriteJSON(rw, http.StatusOK, s.config.Registry.List(req.Context()), ""); err != nil {
		s.logger.WithError(err).Errorln("failed to write realms response")
	}
}

// AdminRealmsPutHandler replaces the full realm configuration. The batch is
// refused as a whole when any submitted realm is invalid, reporting all
// validation messages at once.
func (s *Server) AdminRealmsPutHandler(rw http.ResponseWriter, req *http.Request) {
	var incoming []*realms.Realm
	if err := json.NewDecoder(req.Body).Decode(&incoming); err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	validationErrors := utils.NewErrorList()
	err := s.config.Registry.ReplaceAll(req.Context(), incoming, s.config.Config.HTTPClient(), validationErrors)
	if err != nil {
		if !validationErrors.Empty() {
			writeErr := utils.WriteJSON(rw, http.StatusBadRequest, &ErrorsResponse{
				Errors: validationErrors.Strings(),
			}, "")
			if writeErr != nil {
				s.logger.WithError(writeErr).Errorln("failed to write realms errors response")
			}
			return
		}
		s.logger.WithError(err).Errorln("realm replace failed")
		s.writeError(rw, http.StatusInternalServerError, "server_error", "")
		return
	}

	if err := utils.WriteJSON(rw, http.StatusOK, s.config.Registry.List(req.Context()), ""); err != nil {
		s.logger.WithError(err).Errorln("failed to write realms response")
	}
}

// AdminCapturedClaimsHandler returns the last captured claim payload of the
// realm.
func (s *Server) AdminCapturedClaimsHandler(rw http.ResponseWriter, req *http.Request) {
	handle := mux.Vars(req)["handle"]
	if _, ok := s.config.Registry.Get(req.Context(), handle); !ok {
		s.writeError(rw, http.StatusNotFound, "not_found", "unknown realm")
		return
	}

	if s.config.Store == nil {
		s.writeError(rw, http.StatusNotFound, "not_found", "no captured claims")
		return
	}
	payload, err := s.config.Store.LoadCapturedClaims(req.Context(), handle)
	if err != nil {
		s.logger.WithError(err).WithField("handle", handle).Errorln("failed to load captured claims")
		s.writeError(rw, http.StatusInternalServerError, "server_error", "")
		return
	}
	if payload == nil {
		s.writeError(rw, http.StatusNotFound, "not_found", "no captured claims")
		return
	}

	rw.Header().Set("Content-Type", "application/json; encoding-utf-8")
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write(payload); err != nil {
		s.logger.WithError(err).Errorln("failed to write captured claims response")
	}
}

// AdminClaimMapCheckHandler validates the submitted claim map JSON against
// the attribute catalog and reports all problems.
func (s *Server) AdminClaimMapCheckHandler(rw http.ResponseWriter, req *http.Request) {
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		s.writeError(rw, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	problems := utils.NewErrorList()
	m := claimmap.Unserialize(body, s.config.Catalog, s.config.Config.ReservedGroups(), problems)

	response := &ClaimMapCheckResponse{
		Valid:    m != nil,
		Problems: problems.Strings(),
	}
	if err := utils.WriteJSON(rw, http.StatusOK, response, ""); err != nil {
		s.logger.WithError(err).Errorln("failed to write claim map check response")
	}
}
