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

package claimmap

import (
	"fmt"
)

// ReservedGroups carries the well known system group IDs which group sync
// rules must not target.
type ReservedGroups struct {
	GuestGroupID      int64
	RegisteredGroupID int64
}

// DefaultReservedGroups are the conventional system group IDs.
var DefaultReservedGroups = ReservedGroups{
	GuestGroupID:      1,
	RegisteredGroupID: 2,
}

// Rule maps one remote group name from the groups claim to a local group
// with independent join and leave behavior.
type Rule struct {
	RemoteGroupName string `json:"remoteGroupName"`
	LocalGroupID    int64  `json:"localGroupID"`
	JoinIfPresent   bool   `json:"joinIfPresent"`
	LeaveIfAbsent   bool   `json:"leaveIfAbsent"`
}

// Validate checks the rule for use with the provided reserved groups.
func (r *Rule) Validate(reserved ReservedGroups) error {
	if r.RemoteGroupName == "" {
		return fmt.Errorf("group rule has no remote group name")
	}
	if r.LocalGroupID <= 0 {
		return fmt.Errorf("group rule for %s has no valid local group", r.RemoteGroupName)
	}
	if r.LocalGroupID == reserved.GuestGroupID || r.LocalGroupID == reserved.RegisteredGroupID {
		return fmt.Errorf("group rule for %s may not target the guest or registered system group", r.RemoteGroupName)
	}
	if !r.JoinIfPresent && !r.LeaveIfAbsent {
		return fmt.Errorf("group rule for %s neither joins nor leaves", r.RemoteGroupName)
	}

	return nil
}

// Groups is the group sync block of a claim map. One claim carries the
// remote group names which the rules are compared against.
type Groups struct {
	ClaimName string `json:"claim,omitempty"`
	Rules     []Rule `json:"rules,omitempty"`
}

// Empty returns true when no claim and no rules are configured.
func (g *Groups) Empty() bool {
	return g.ClaimName == "" && len(g.Rules) == 0
}
