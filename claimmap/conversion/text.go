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
	"html"
	"strconv"
	"strings"
)

// stringFromScalar converts scalar claim values to their string form. Bools
// become "1" and "0".
func stringFromScalar(value interface{}) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case bool:
		if typed {
			return "1", true
		}
		return "0", true
	case json.Number:
		return typed.String(), true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	}

	return "", false
}

// TextConverter converts scalar claim values to single line text attribute
// values. Values containing line breaks are not applicable, those belong to
// the multiline converter.
type TextConverter struct{}

// NewTextConverter creates a new TextConverter.
func NewTextConverter() *TextConverter {
	return &TextConverter{}
}

// SupportedTypes implements the Converter interface.
func (c *TextConverter) SupportedTypes() []string {
	return []string{TypeText}
}

// Convert implements the Converter interface.
func (c *TextConverter) Convert(key AttributeKey, value interface{}) (interface{}, bool) {
	s, ok := stringFromScalar(value)
	if !ok {
		return nil, false
	}

	if strings.ContainsAny(s, "\r\n") {
		return nil, false
	}

	return s, true
}

// MultilineTextConverter converts scalar claim values to multiline text
// attribute values. For attributes configured as rich text the value is
// escaped and line breaks become break tags.
type MultilineTextConverter struct{}

// NewMultilineTextConverter creates a new MultilineTextConverter.
func NewMultilineTextConverter() *MultilineTextConverter {
	return &MultilineTextConverter{}
}

// SupportedTypes implements the Converter interface.
func (c *MultilineTextConverter) SupportedTypes() []string {
	return []string{TypeTextarea}
}

// Convert implements the Converter interface.
func (c *MultilineTextConverter) Convert(key AttributeKey, value interface{}) (interface{}, bool) {
	s, ok := stringFromScalar(value)
	if !ok {
		return nil, false
	}

	if key.RichText {
		s = html.EscapeString(s)
		s = strings.NewReplacer("\r\n", "<br/>", "\r", "<br/>", "\n", "<br/>").Replace(s)
	}

	return s, true
}
