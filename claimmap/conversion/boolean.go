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
	"encoding/json"
	"strings"
)

var booleanTrueWords = map[string]bool{
	"true": true,
	"t":    true,
	"yes":  true,
	"y":    true,
	"on":   true,
	"1":    true,
	"-1":   true,
}

var booleanFalseWords = map[string]bool{
	"false": true,
	"f":     true,
	"no":    true,
	"n":     true,
	"off":   true,
	"0":     true,
}

// BooleanConverter converts claim values to boolean attribute values. Only
// unambiguous values convert, everything else leaves the attribute untouched.
// Not applicable is not the same as false.
type BooleanConverter struct{}

// NewBooleanConverter creates a new BooleanConverter.
func NewBooleanConverter() *BooleanConverter {
	return &BooleanConverter{}
}

// SupportedTypes implements the Converter interface.
func (c *BooleanConverter) SupportedTypes() []string {
	return []string{TypeBoolean}
}

// Convert implements the Converter interface.
func (c *BooleanConverter) Convert(key AttributeKey, value interface{}) (interface{}, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true

	case string:
		word := strings.ToLower(strings.TrimSpace(typed))
		if booleanTrueWords[word] {
			return true, true
		}
		if booleanFalseWords[word] {
			return false, true
		}
		return nil, false

	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return booleanFromInt(i)
		}
		if f, err := typed.Float64(); err == nil {
			return booleanFromFloat(f)
		}
		return nil, false

	case int:
		return booleanFromInt(int64(typed))
	case int64:
		return booleanFromInt(typed)
	case float64:
		return booleanFromFloat(typed)
	}

	return nil, false
}

func booleanFromInt(i int64) (interface{}, bool) {
	switch i {
	case 0:
		return false, true
	case 1, -1:
		return true, true
	}

	return nil, false
}

func booleanFromFloat(f float64) (interface{}, bool) {
	switch f {
	case 0:
		return false, true
	case 1, -1:
		return true, true
	}

	return nil, false
}
