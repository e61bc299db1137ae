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

package utils

import (
	"fmt"
	"strings"
)

// ErrorList collects validation problems so callers can report all of them at
// once instead of stopping at the first. A nil *ErrorList is valid and
// silently discards everything added to it.
type ErrorList struct {
	errors []error
}

// NewErrorList creates a new empty ErrorList.
func NewErrorList() *ErrorList {
	return &ErrorList{}
}

// Add records the provided error. Nil errors are ignored.
func (el *ErrorList) Add(err error) {
	if el == nil || err == nil {
		return
	}

	el.errors = append(el.errors, err)
}

// Addf records a new error built from the provided format and arguments.
func (el *ErrorList) Addf(format string, args ...interface{}) {
	el.Add(fmt.Errorf(format, args...))
}

// Errors returns all recorded errors in the order they were added.
func (el *ErrorList) Errors() []error {
	if el == nil {
		return nil
	}

	return el.errors
}

// Strings returns the messages of all recorded errors.
func (el *ErrorList) Strings() []string {
	if el == nil || len(el.errors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(el.errors))
	for _, err := range el.errors {
		messages = append(messages, err.Error())
	}

	return messages
}

// Empty returns true when no errors have been recorded.
func (el *ErrorList) Empty() bool {
	return el == nil || len(el.errors) == 0
}

// Err returns nil when the list is empty and otherwise an error which joins
// all recorded messages.
func (el *ErrorList) Err() error {
	if el.Empty() {
		return nil
	}

	return fmt.Errorf("%s", strings.Join(el.Strings(), "; "))
}
