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
	"fmt"

	"github.com/sirupsen/logrus"
)

// Attribute type handles supported by the built in converters.
const (
	TypeText     = "text"
	TypeTextarea = "textarea"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeAddress  = "address"
)

// AttributeKey identifies a local profile attribute together with its
// declared attribute type.
type AttributeKey struct {
	// Handle is the unique attribute handle, e.g. "department".
	Handle string
	// TypeHandle is the attribute type handle, e.g. "text" or "boolean".
	TypeHandle string
	// Name is the attribute display name shown to administrators.
	Name string
	// RichText marks textarea attributes configured for rich text input.
	RichText bool
}

// Converter converts raw claim values of unknown runtime shape into typed
// attribute values for the attribute types it supports. Converters must be
// pure functions of their input.
type Converter interface {
	// SupportedTypes returns the attribute type handles this converter can
	// produce values for.
	SupportedTypes() []string
	// Convert turns the provided raw claim value into a typed value for the
	// provided attribute key. The second return value is false when the
	// converter does not apply to the value, which leaves the attribute
	// untouched.
	Convert(key AttributeKey, value interface{}) (interface{}, bool)
}

// Registry holds the registered converters per attribute type handle in
// registration order. It is filled once at startup and read only afterwards.
type Registry struct {
	logger logrus.FieldLogger

	converters map[string][]Converter
}

// NewRegistry creates a new empty converter Registry with the provided
// logger.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{
		logger: logger,

		converters: make(map[string][]Converter),
	}
}

// Register adds the provided converter for all attribute types it supports.
// Converters are tried in registration order.
func (r *Registry) Register(converter Converter) error {
	types := converter.SupportedTypes()
	if len(types) == 0 {
		return fmt.Errorf("converter supports no attribute types")
	}

	for _, typeHandle := range types {
		r.converters[typeHandle] = append(r.converters[typeHandle], converter)
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"converter": fmt.Sprintf("%T", converter),
			"types":     types,
		}).Debugln("registered attribute converter")
	}

	return nil
}

// ConvertersFor returns the converters registered for the provided attribute
// type handle in registration order.
func (r *Registry) ConvertersFor(typeHandle string) []Converter {
	return r.converters[typeHandle]
}

// Convert tries all converters registered for the attribute key's type in
// registration order and returns the first successful conversion. The second
// return value is false when no converter applied.
func (r *Registry) Convert(key AttributeKey, value interface{}) (interface{}, bool) {
	for _, converter := range r.converters[key.TypeHandle] {
		if converted, ok := converter.Convert(key, value); ok {
			return converted, true
		}
	}

	return nil, false
}
