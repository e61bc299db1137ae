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
	"testing"
)

func TestBooleanConverter(t *testing.T) {
	converter := NewBooleanConverter()
	key := AttributeKey{Handle: "flag", TypeHandle: TypeBoolean}

	tests := []struct {
		value      interface{}
		expected   bool
		applicable bool
	}{
		{true, true, true},
		{false, false, true},
		{int64(1), true, true},
		{int64(-1), true, true},
		{int64(0), false, true},
		{int64(2), false, false},
		{float64(1), true, true},
		{float64(0), false, true},
		{float64(0.5), false, false},
		{json.Number("1"), true, true},
		{json.Number("2"), false, false},
		{json.Number("0.0"), false, true},
		{"YES", true, true},
		{" on ", true, true},
		{"no", false, true},
		{"OFF", false, true},
		{"t", true, true},
		{"-1", true, true},
		{"maybe", false, false},
		{[]interface{}{"true"}, false, false},
		{nil, false, false},
	}

	for _, test := range tests {
		converted, ok := converter.Convert(key, test.value)
		if ok != test.applicable {
			t.Errorf("value %#v applicable got %v, expected %v", test.value, ok, test.applicable)
			continue
		}
		if ok && converted.(bool) != test.expected {
			t.Errorf("value %#v converted to %v, expected %v", test.value, converted, test.expected)
		}
	}
}

func TestNumberConverter(t *testing.T) {
	converter := NewNumberConverter()
	key := AttributeKey{Handle: "level", TypeHandle: TypeNumber}

	tests := []struct {
		value      interface{}
		expected   interface{}
		applicable bool
	}{
		{"42", int64(42), true},
		{"+7", int64(7), true},
		{"-13", int64(-13), true},
		{"4.2", float64(4.2), true},
		{"1e3", float64(1000), true},
		{"abc", nil, false},
		{"", nil, false},
		{true, int64(1), true},
		{false, int64(0), true},
		{json.Number("42"), int64(42), true},
		{json.Number("4.2"), float64(4.2), true},
		{int64(9), int64(9), true},
		{float64(2.5), float64(2.5), true},
		{map[string]interface{}{}, nil, false},
	}

	for _, test := range tests {
		converted, ok := converter.Convert(key, test.value)
		if ok != test.applicable {
			t.Errorf("value %#v applicable got %v, expected %v", test.value, ok, test.applicable)
			continue
		}
		if ok && converted != test.expected {
			t.Errorf("value %#v converted to %#v, expected %#v", test.value, converted, test.expected)
		}
	}
}

func TestTextConverterRejectsLineBreaks(t *testing.T) {
	converter := NewTextConverter()
	key := AttributeKey{Handle: "title", TypeHandle: TypeText}

	if converted, ok := converter.Convert(key, "hello"); !ok || converted != "hello" {
		t.Errorf("plain string got (%v, %v)", converted, ok)
	}
	if converted, ok := converter.Convert(key, true); !ok || converted != "1" {
		t.Errorf("bool got (%v, %v)", converted, ok)
	}
	if converted, ok := converter.Convert(key, json.Number("42")); !ok || converted != "42" {
		t.Errorf("number got (%v, %v)", converted, ok)
	}
	if _, ok := converter.Convert(key, "line one\nline two"); ok {
		t.Error("string with line feed was accepted")
	}
	if _, ok := converter.Convert(key, "line one\rline two"); ok {
		t.Error("string with carriage return was accepted")
	}
	if _, ok := converter.Convert(key, []interface{}{"hello"}); ok {
		t.Error("list was accepted")
	}
}

func TestMultilineTextConverter(t *testing.T) {
	converter := NewMultilineTextConverter()
	key := AttributeKey{Handle: "bio", TypeHandle: TypeTextarea}

	converted, ok := converter.Convert(key, "line one\nline two")
	if !ok || converted != "line one\nline two" {
		t.Errorf("multiline string got (%v, %v)", converted, ok)
	}

	richKey := AttributeKey{Handle: "bio", TypeHandle: TypeTextarea, RichText: true}
	converted, ok = converter.Convert(richKey, "a <b>\nb")
	if !ok || converted != "a &lt;b&gt;<br/>b" {
		t.Errorf("rich text got (%v, %v)", converted, ok)
	}
}

func TestRegistryFirstSuccessWins(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.Register(NewTextConverter()); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(NewBooleanConverter()); err != nil {
		t.Fatal(err)
	}

	if len(registry.ConvertersFor(TypeText)) != 1 {
		t.Fatalf("unexpected text converter count %d", len(registry.ConvertersFor(TypeText)))
	}

	converted, ok := registry.Convert(AttributeKey{Handle: "flag", TypeHandle: TypeBoolean}, "yes")
	if !ok || converted != true {
		t.Errorf("boolean conversion got (%v, %v)", converted, ok)
	}

	if _, ok := registry.Convert(AttributeKey{Handle: "other", TypeHandle: "unknown"}, "yes"); ok {
		t.Error("conversion for unregistered type succeeded")
	}
}
