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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/bootstrap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/config"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/encryption"
)

const defaultListenAddr = "127.0.0.1:8778"

func commandServe() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve [...args]",
		Short: "Start server and listen for requests",
		Run: func(cmd *cobra.Command, args []string) {
			if err := serve(cmd, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("listen", defaultListenAddr, "TCP listen address")
	serveCmd.Flags().String("realms-conf", "", "Path to realms registration conf file, overrides the store")
	serveCmd.Flags().String("attributes-conf", "", "Path to attributes conf file declaring mappable profile attributes")
	serveCmd.Flags().String("store-dsn", "", "PostgreSQL connection string, empty selects the in-memory store")
	serveCmd.Flags().String("secret", "", fmt.Sprintf("Encryption secret for captured claims (%d bytes or their hex encoding)", encryption.KeySize))
	serveCmd.Flags().String("state-key", "", "State token signing key")
	serveCmd.Flags().Uint64("state-expiration", 0, "State token lifetime in seconds")
	serveCmd.Flags().Bool("update-username", false, "Sync the local username from the mapped claim on login")
	serveCmd.Flags().Bool("update-email", false, "Sync the local email from the mapped claim on login")
	serveCmd.Flags().String("super-user", config.DefaultSuperUserName, "Local account name which is never renamed")
	serveCmd.Flags().Int64("guest-group-id", 0, "Local guest group id reserved from group sync rules")
	serveCmd.Flags().Int64("registered-group-id", 0, "Local registered users group id reserved from group sync rules")
	serveCmd.Flags().StringArray("trusted-proxy", nil, "Trusted proxy IP or CIDR allowed to call the admin endpoints, can be used multiple times")
	serveCmd.Flags().Bool("insecure", false, "Disable TLS certificate and hostname validation")
	serveCmd.Flags().Bool("log-timestamp", true, "Prefix each log line with timestamp")
	serveCmd.Flags().String("log-level", "info", "Log level (one of panic, fatal, error, warn, info or debug)")

	return serveCmd
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logTimestamp, _ := cmd.Flags().GetBool("log-timestamp")
	logLevel, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(!logTimestamp, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}
	logger.Infoln("serve start")

	bsConf := &bootstrap.Config{}
	bsConf.Listen, _ = cmd.Flags().GetString("listen")
	bsConf.RealmsConf, _ = cmd.Flags().GetString("realms-conf")
	bsConf.AttributesConf, _ = cmd.Flags().GetString("attributes-conf")
	bsConf.StoreDSN, _ = cmd.Flags().GetString("store-dsn")
	bsConf.EncryptionSecret, _ = cmd.Flags().GetString("secret")
	bsConf.StateSigningKey, _ = cmd.Flags().GetString("state-key")
	bsConf.UpdateUsername, _ = cmd.Flags().GetBool("update-username")
	bsConf.UpdateEmail, _ = cmd.Flags().GetBool("update-email")
	bsConf.SuperUserName, _ = cmd.Flags().GetString("super-user")
	bsConf.GuestGroupID, _ = cmd.Flags().GetInt64("guest-group-id")
	bsConf.RegisteredGroupID, _ = cmd.Flags().GetInt64("registered-group-id")
	bsConf.TrustedProxy, _ = cmd.Flags().GetStringArray("trusted-proxy")
	bsConf.Insecure, _ = cmd.Flags().GetBool("insecure")
	if stateExpiration, _ := cmd.Flags().GetUint64("state-expiration"); stateExpiration > 0 {
		bsConf.StateExpiration = time.Duration(stateExpiration) * time.Second
	}

	cfg := config.NewDefaults()
	cfg.Logger = logger

	bs, err := bootstrap.Boot(ctx, bsConf, cfg)
	if err != nil {
		return err
	}

	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		logger.WithField("signal", sig).Infoln("received signal, shutting down")
		cancel()
	}()

	logger.Infoln("serve started")
	return bs.Server().Serve(ctx)
}
