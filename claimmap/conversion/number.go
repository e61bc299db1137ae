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
	"regexp"
	"strconv"
	"strings"
)

var integerStringRegexp = regexp.MustCompile(`^[+-]?\d+$`)

// NumberConverter converts claim values to numeric attribute values. Integer
// shaped input converts to int64, other numeric input to float64.
type NumberConverter struct{}

// NewNumberConverter creates a new NumberConverter.
func NewNumberConverter() *NumberConverter {
	return &NumberConverter{}
}

// SupportedTypes implements the Converter interface.
func (c *NumberConverter) SupportedTypes() []string {
	return []string{TypeNumber}
}

// Convert implements the Converter interface.
func (c *NumberConverter) Convert(key AttributeKey, value interface{}) (interface{}, bool) {
	switch typed := value.(type) {
	case bool:
		if typed {
			return int64(1), true
		}
		return int64(0), true

	case string:
		return numberFromString(strings.TrimSpace(typed))

	case json.Number:
		return numberFromString(typed.String())

	case int:
		return int64(typed), true
	case int64:
		return typed, true
	case float64:
		return typed, true
	}

	return nil, false
}

func numberFromString(s string) (interface{}, bool) {
	if integerStringRegexp.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}

	return nil, false
}
