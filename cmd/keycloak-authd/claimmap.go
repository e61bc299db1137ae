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
	"fmt"
	"io/ioutil"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/bootstrap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/utils"
)

func commandClaimMap() *cobra.Command {
	claimMapCmd := &cobra.Command{
		Use:   "claimmap",
		Short: "Claim map utilities",
	}
	claimMapCmd.AddCommand(commandClaimMapCheck())

	return claimMapCmd
}

func commandClaimMapCheck() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check <claim-map-file>",
		Short: "Validate a claim map file (JSON or YAML)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := claimMapCheck(cmd, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}
	checkCmd.Flags().String("attributes-conf", "", "Path to attributes conf file declaring mappable profile attributes")
	checkCmd.Flags().Int64("guest-group-id", claimmap.DefaultReservedGroups.GuestGroupID, "Local guest group id reserved from group sync rules")
	checkCmd.Flags().Int64("registered-group-id", claimmap.DefaultReservedGroups.RegisteredGroupID, "Local registered users group id reserved from group sync rules")

	return checkCmd
}

func claimMapCheck(cmd *cobra.Command, args []string) error {
	data, err := ioutil.ReadFile(args[0])
	if err != nil {
		return err
	}
	// Claim maps are stored as JSON, but conf files may be written in YAML.
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse claim map file: %v", err)
	}

	attributesConf, _ := cmd.Flags().GetString("attributes-conf")
	catalog, err := bootstrap.LoadAttributeCatalog(attributesConf)
	if err != nil {
		return fmt.Errorf("failed to load attributes conf: %v", err)
	}

	reserved := claimmap.ReservedGroups{}
	reserved.GuestGroupID, _ = cmd.Flags().GetInt64("guest-group-id")
	reserved.RegisteredGroupID, _ = cmd.Flags().GetInt64("registered-group-id")

	problems := utils.NewErrorList()
	m := claimmap.Unserialize(jsonData, catalog, reserved, problems)
	for _, problem := range problems.Strings() {
		fmt.Fprintf(os.Stderr, "problem: %s\n", problem)
	}
	if m == nil {
		return fmt.Errorf("claim map is not usable")
	}

	serialized, err := m.Serialize()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "claim map is valid:\n%s\n", serialized)

	return nil
}
