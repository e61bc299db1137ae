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

package conversion

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Localizer provides the locales used to resolve localized country and
// state names. It is consumed only by the address converter.
type Localizer interface {
	CurrentLocale() string
	AvailableLocales() []string
	BaseLocale() string
}

// StaticLocalizer is a Localizer with fixed values.
type StaticLocalizer struct {
	Current   string
	Available []string
	Base      string
}

// CurrentLocale implements the Localizer interface.
func (l *StaticLocalizer) CurrentLocale() string {
	return l.Current
}

// AvailableLocales implements the Localizer interface.
func (l *StaticLocalizer) AvailableLocales() []string {
	return l.Available
}

// BaseLocale implements the Localizer interface.
func (l *StaticLocalizer) BaseLocale() string {
	return l.Base
}

// DefaultLocalizer resolves names using English only.
var DefaultLocalizer Localizer = &StaticLocalizer{
	Current: "en",
	Base:    "en",
}

var countryNamesCache = struct {
	sync.Mutex
	byLocale map[string]map[string]string
}{
	byLocale: make(map[string]map[string]string),
}

// countryNamesForLocale builds a mapping of lower cased localized country
// display name to ISO 3166-1 alpha-2 code for the provided locale. Results
// are cached per locale.
func countryNamesForLocale(locale string) map[string]string {
	countryNamesCache.Lock()
	defer countryNamesCache.Unlock()

	if names, ok := countryNamesCache.byLocale[locale]; ok {
		return names
	}

	names := make(map[string]string)
	countryNamesCache.byLocale[locale] = names

	tag, err := language.Parse(locale)
	if err != nil {
		return names
	}
	namer := display.Regions(tag)
	if namer == nil {
		return names
	}

	for c1 := 'A'; c1 <= 'Z'; c1++ {
		for c2 := 'A'; c2 <= 'Z'; c2++ {
			region, regionErr := language.ParseRegion(string([]rune{c1, c2}))
			if regionErr != nil || !region.IsCountry() {
				continue
			}
			name := namer.Name(region)
			if name == "" || name == region.String() {
				continue
			}
			names[strings.ToLower(name)] = region.String()
		}
	}

	return names
}

// candidateLocales returns the locales to try for name resolution, in order.
// The current locale first, then all available locales, then the base locale.
func candidateLocales(localizer Localizer) []string {
	if localizer == nil {
		localizer = DefaultLocalizer
	}

	seen := make(map[string]bool)
	locales := make([]string, 0, 4)
	add := func(locale string) {
		if locale == "" || seen[locale] {
			return
		}
		seen[locale] = true
		locales = append(locales, locale)
	}

	add(localizer.CurrentLocale())
	for _, locale := range localizer.AvailableLocales() {
		add(locale)
	}
	add(localizer.BaseLocale())

	return locales
}

// resolveCountryCode resolves a country claim value to an ISO 3166-1 alpha-2
// code. Two letter values matching a known code are used as is, other values
// are matched case-insensitively against the localized country names of each
// candidate locale in turn.
func resolveCountryCode(localizer Localizer, country string) (string, bool) {
	trimmed := strings.TrimSpace(country)
	if trimmed == "" {
		return "", false
	}

	if len(trimmed) == 2 {
		if region, err := language.ParseRegion(strings.ToUpper(trimmed)); err == nil && region.IsCountry() {
			return region.String(), true
		}
	}

	lower := strings.ToLower(trimmed)
	for _, locale := range candidateLocales(localizer) {
		if code, ok := countryNamesForLocale(locale)[lower]; ok {
			return code, true
		}
	}

	return "", false
}

// Subdivision names per country for which state codes are resolvable. The
// CLDR data behind x/text carries no subdivision display names, so the
// relevant tables are kept here.
var subdivisionsByCountry = map[string]map[string]string{
	"US": {
		"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
		"california": "CA", "colorado": "CO", "connecticut": "CT",
		"delaware": "DE", "district of columbia": "DC", "florida": "FL",
		"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
		"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
		"louisiana": "LA", "maine": "ME", "maryland": "MD",
		"massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
		"mississippi": "MS", "missouri": "MO", "montana": "MT",
		"nebraska": "NE", "nevada": "NV", "new hampshire": "NH",
		"new jersey": "NJ", "new mexico": "NM", "new york": "NY",
		"north carolina": "NC", "north dakota": "ND", "ohio": "OH",
		"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
		"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
		"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
		"virginia": "VA", "washington": "WA", "west virginia": "WV",
		"wisconsin": "WI", "wyoming": "WY",
	},
	"CA": {
		"alberta": "AB", "british columbia": "BC", "manitoba": "MB",
		"new brunswick": "NB", "newfoundland and labrador": "NL",
		"northwest territories": "NT", "nova scotia": "NS", "nunavut": "NU",
		"ontario": "ON", "prince edward island": "PE", "quebec": "QC",
		"saskatchewan": "SK", "yukon": "YT",
	},
}

// resolveStateProvince resolves a state or province name to its short code,
// scoped to the provided country code. Values which already look like a code
// of the country are kept, unresolvable names are reported as not resolved.
func resolveStateProvince(countryCode string, stateProvince string) (string, bool) {
	trimmed := strings.TrimSpace(stateProvince)
	if trimmed == "" {
		return "", false
	}

	subdivisions, ok := subdivisionsByCountry[countryCode]
	if !ok {
		return "", false
	}

	upper := strings.ToUpper(trimmed)
	for _, code := range subdivisions {
		if code == upper {
			return code, true
		}
	}

	if code, found := subdivisions[strings.ToLower(trimmed)]; found {
		return code, true
	}

	return "", false
}
