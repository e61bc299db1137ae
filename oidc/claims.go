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

package oidc

// Standard claims as used in JSON Web Tokens.
const (
	IssuerIdentifierClaim  = "iss"
	SubjectIdentifierClaim = "sub"
	AudienceClaim          = "aud"
	ExpirationClaim        = "exp"
	IssuedAtClaim          = "iat"
)

// Claims of the OIDC profile and email scopes as defined at
// https://openid.net/specs/openid-connect-core-1_0.html#StandardClaims
const (
	NameClaim              = "name"
	GivenNameClaim         = "given_name"
	FamilyNameClaim        = "family_name"
	MiddleNameClaim        = "middle_name"
	NicknameClaim          = "nickname"
	PreferredUsernameClaim = "preferred_username"
	ProfileClaim           = "profile"
	PictureClaim           = "picture"
	WebsiteClaim           = "website"
	EmailClaim             = "email"
	EmailVerifiedClaim     = "email_verified"
	ZoneinfoClaim          = "zoneinfo"
	LocaleClaim            = "locale"
	AddressClaim           = "address"
)

// Members of the address claim as defined at
// https://openid.net/specs/openid-connect-core-1_0.html#AddressClaim
const (
	AddressFormattedMember     = "formatted"
	AddressStreetAddressMember = "street_address"
	AddressLocalityMember      = "locality"
	AddressRegionMember        = "region"
	AddressPostalCodeMember    = "postal_code"
	AddressCountryMember       = "country"
)

// Claims commonly added by Keycloak mappers.
const (
	RealmAccessClaim = "realm_access"
	GroupsClaim      = "groups"
)
