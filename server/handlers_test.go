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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
)

func TestHealthCheckHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	req, err := http.NewRequest("GET", "/health-check", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
}

func selectRealm(t *testing.T, router http.Handler, email string, mode string) *RealmSelectResponse {
	t.Helper()

	form := url.Values{}
	form.Set("email", email)
	if mode != "" {
		form.Set("mode", mode)
	}
	req := httptest.NewRequest("POST", "/auth/v1/realm/select", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("realm select returned status %v: %s", rr.Code, rr.Body.String())
	}

	response := &RealmSelectResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), response); err != nil {
		t.Fatal(err)
	}

	return response
}

func TestRealmSelectHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	response := selectRealm(t, router, "alice@example.com", "")
	if response.Handle != "corp" {
		t.Errorf("selected realm %q, expected corp", response.Handle)
	}
	if response.AuthorizationEndpoint != "https://idp.example.com/realms/corp/auth" {
		t.Errorf("authorization endpoint got %q", response.AuthorizationEndpoint)
	}
	if response.State == "" {
		t.Error("response has no state token")
	}
}

func TestRealmSelectHandlerNoMatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	form := url.Values{}
	form.Set("email", "alice@other.org")
	req := httptest.NewRequest("POST", "/auth/v1/realm/select", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %v, expected %v", rr.Code, http.StatusBadRequest)
	}

	response := &oidc.OAuth2Error{}
	if err := json.Unmarshal(rr.Body.Bytes(), response); err != nil {
		t.Fatal(err)
	}
	if response.Description() == "" {
		t.Error("no realm error has no user facing description")
	}
}

func TestRealmProbeHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	req := httptest.NewRequest("GET", "/auth/v1/realm/probe", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v", rr.Code)
	}

	response := &RealmProbeResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), response); err != nil {
		t.Fatal(err)
	}
	// The only realm has email patterns, so an email is required.
	if !response.EmailRequired {
		t.Error("email should be required")
	}
}

func TestReconcileHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, store := newTestServer(ctx, t)
	defer httpServer.Close()

	user, err := store.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.BindUser(ctx, user, "subject-1"); err != nil {
		t.Fatal(err)
	}

	selected := selectRealm(t, router, "alice@example.com", "")

	body, _ := json.Marshal(&ReconcileRequest{
		State:  selected.State,
		Claims: json.RawMessage(`{"sub":"subject-1","email":"alice@example.com"}`),
	})
	req := httptest.NewRequest("POST", "/auth/v1/reconcile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v: %s", rr.Code, rr.Body.String())
	}

	response := &ReconcileResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), response); err != nil {
		t.Fatal(err)
	}
	if response.UserID != user.ID() {
		t.Errorf("reconciled user %d, expected %d", response.UserID, user.ID())
	}
	if response.Created {
		t.Error("existing user reported as created")
	}
}

func TestReconcileHandlerTamperedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	body, _ := json.Marshal(&ReconcileRequest{
		State:  "not-a-valid-token",
		Claims: json.RawMessage(`{"sub":"subject-1"}`),
	})
	req := httptest.NewRequest("POST", "/auth/v1/reconcile", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %v, expected %v", rr.Code, http.StatusBadRequest)
	}

	response := &oidc.OAuth2Error{}
	if err := json.Unmarshal(rr.Body.Bytes(), response); err != nil {
		t.Fatal(err)
	}
	if !oidc.IsErrorWithID(response, "invalid_state") {
		t.Errorf("error payload got %v, expected invalid_state", response)
	}
}

func TestLogoutHandlerRedirect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	req := httptest.NewRequest("GET", "/auth/v1/logout?handle=corp&id_token_hint=token123&post_logout_redirect_uri=https%3A%2F%2Fcms.example.com%2F", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("got status %v, expected %v", rr.Code, http.StatusFound)
	}

	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if location.Path != "/realms/corp/logout" {
		t.Errorf("redirect path got %q", location.Path)
	}
	query := location.Query()
	if query.Get("id_token_hint") != "token123" {
		t.Errorf("id_token_hint got %q", query.Get("id_token_hint"))
	}
	if query.Get("post_logout_redirect_uri") != "https://cms.example.com/" {
		t.Errorf("post_logout_redirect_uri got %q", query.Get("post_logout_redirect_uri"))
	}
}

func TestLogoutHandlerUnknownRealm(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	req := httptest.NewRequest("GET", "/auth/v1/logout?handle=nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got status %v, expected %v", rr.Code, http.StatusNotFound)
	}
	// Browsers land here directly, so the error is a plain page.
	if body := rr.Body.String(); !strings.Contains(body, "404 Not Found - unknown realm") {
		t.Errorf("error page body got %q", body)
	}
}

func TestAdminRealmsGetHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	req := httptest.NewRequest("GET", "/auth/v1/admin/realms", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v: %s", rr.Code, rr.Body.String())
	}

	var listed []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0]["handle"] != "corp" {
		t.Errorf("realms response got %v", listed)
	}
}

func TestAdminRejectsUntrustedSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	req := httptest.NewRequest("GET", "/auth/v1/admin/realms", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("got status %v, expected %v", rr.Code, http.StatusForbidden)
	}
}

func TestAdminClaimMapCheckHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, _ := newTestServer(ctx, t)
	defer httpServer.Close()

	check := func(body string) *ClaimMapCheckResponse {
		req := httptest.NewRequest("POST", "/auth/v1/admin/claimmap/check", strings.NewReader(body))
		req.RemoteAddr = "127.0.0.1:54321"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("got status %v: %s", rr.Code, rr.Body.String())
		}
		response := &ClaimMapCheckResponse{}
		if err := json.Unmarshal(rr.Body.Bytes(), response); err != nil {
			t.Fatal(err)
		}
		return response
	}

	valid := check(`{"fields":{"unique_id":"sub","email":"email"}}`)
	if !valid.Valid || len(valid.Problems) != 0 {
		t.Errorf("valid map reported %+v", valid)
	}

	// Missing email mapping makes the map unusable, the unknown field is a
	// recorded problem.
	invalid := check(`{"fields":{"unique_id":"sub","shoe_size":"shoe"}}`)
	if invalid.Valid {
		t.Error("invalid map reported as valid")
	}
	if len(invalid.Problems) == 0 {
		t.Error("invalid map reported no problems")
	}
}

func TestAdminCapturedClaimsHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer, _, router, store := newTestServer(ctx, t)
	defer httpServer.Close()

	req := httptest.NewRequest("GET", "/auth/v1/admin/realms/corp/captured-claims", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got status %v before capture, expected %v", rr.Code, http.StatusNotFound)
	}

	payload := []byte(`{"sub":"subject-1"}`)
	if err := store.StoreCapturedClaims(ctx, "corp", payload); err != nil {
		t.Fatal(err)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v after capture: %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(bytes.TrimSpace(rr.Body.Bytes()), payload) {
		t.Errorf("captured payload got %s", rr.Body.String())
	}
}
