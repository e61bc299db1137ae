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
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/oidc"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

// Server is our HTTP server implementation.
type Server struct {
	config *Config

	listenAddr string
	logger     logrus.FieldLogger

	formDecoder *schema.Decoder
	limiter     *rate.Limiter
	cors        *cors.Cors
}

// NewServer constructs a server from the provided parameters.
func NewServer(c *Config) (*Server, error) {
	formDecoder := schema.NewDecoder()
	formDecoder.IgnoreUnknownKeys(true)

	s := &Server{
		config: c,

		listenAddr: c.Config.ListenAddr,
		logger:     c.Config.Logger,

		formDecoder: formDecoder,
		limiter:     rate.NewLimiter(rate.Limit(100), 200),
		cors:        cors.AllowAll(),
	}

	return s, nil
}

// AddRoutes registers the servers routes on the provided router.
func (s *Server) AddRoutes(ctx context.Context, router *mux.Router) {
	router.HandleFunc("/health-check", s.HealthCheckHandler)
	if s.config.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.config.Metrics, promhttp.HandlerOpts{}))
	}

	v1 := router.PathPrefix("/auth/v1").Subrouter()
	v1.Handle("/realm/select", s.rateLimited(http.HandlerFunc(s.RealmSelectHandler))).Methods(http.MethodPost)
	v1.HandleFunc("/realm/probe", s.RealmProbeHandler).Methods(http.MethodGet)
	v1.Handle("/reconcile", s.rateLimited(http.HandlerFunc(s.ReconcileHandler))).Methods(http.MethodPost)
	v1.HandleFunc("/logout", s.LogoutHandler).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(s.trustedSourceMiddleware, s.cors.Handler)
	admin.HandleFunc("/realms", s.AdminRealmsGetHandler).Methods(http.MethodGet)
	admin.HandleFunc("/realms", s.AdminRealmsPutHandler).Methods(http.MethodPut)
	admin.HandleFunc("/realms/{handle}/captured-claims", s.AdminCapturedClaimsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/claimmap/check", s.AdminClaimMapCheckHandler).Methods(http.MethodPost)
}

// Serve starts the HTTP listener and blocks until the provided context is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	router := mux.NewRouter()
	s.AddRoutes(ctx, router)

	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("listenAddr", s.listenAddr).Infoln("ready to handle requests")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Infoln("shutting down")

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(rw, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
			return
		}
		next.ServeHTTP(rw, req)
	})
}

func (s *Server) trustedSourceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		c := s.config.Config
		trusted, err := utils.IsRequestFromTrustedSource(req, c.TrustedProxyIPs, c.TrustedProxyNets)
		if err != nil || !trusted {
			s.logger.WithField("remoteAddr", req.RemoteAddr).Warnln("rejected untrusted admin request")
			s.writeError(rw, http.StatusForbidden, "access_denied", "request is not from a trusted source")
			return
		}
		next.ServeHTTP(rw, req)
	})
}

func (s *Server) writeError(rw http.ResponseWriter, code int, id string, description string) {
	writeErr := utils.WriteJSON(rw, code, oidc.NewOAuth2Error(id, description), "")
	if writeErr != nil {
		s.logger.WithError(writeErr).Errorln("failed to write error response")
	}
}

// writeReconcileError maps an error to its JSON error payload. User facing
// errors keep their description, everything else is reported opaquely.
func (s *Server) writeReconcileError(rw http.ResponseWriter, err error) {
	if utils.IsUserFacing(err) {
		described := err.(utils.ErrorWithDescription)
		s.writeError(rw, http.StatusForbidden, err.Error(), described.Description())
		return
	}

	s.logger.WithFields(utils.ErrorAsFields(err)).Errorln("reconciliation failed")
	s.writeError(rw, http.StatusInternalServerError, "server_error", "")
}
