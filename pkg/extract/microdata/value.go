// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// ValueType is a property value type.
type ValueType uint8

const (
	// TextValue is a plain text value.
	TextValue ValueType = iota
	// URLValue is an absolute URL (when it could be made absolute).
	URLValue
	// ItemValue is a nested item.
	ItemValue
)

func (t ValueType) String() string {
	switch t {
	case TextValue:
		return "text"
	case URLValue:
		return "url"
	case ItemValue:
		return "item"
	}
	return fmt.Sprintf("ValueType(%d)", t)
}

// Value is a property value. Text is set for [TextValue] and [URLValue],
// Item is set for [ItemValue].
type Value struct {
	Type ValueType
	Text string
	Item *Item
}

// Text returns a [TextValue].
func Text(s string) Value {
	return Value{Type: TextValue, Text: s}
}

// URL returns a [URLValue].
func URL(s string) Value {
	return Value{Type: URLValue, Text: s}
}

// NestedItem returns an [ItemValue].
func NestedItem(item *Item) Value {
	return Value{Type: ItemValue, Item: item}
}

// IsItem returns true when the value is a nested item.
func (v Value) IsItem() bool {
	return v.Type == ItemValue
}

func (v Value) String() string {
	if v.Type == ItemValue {
		if v.Item == nil {
			return ""
		}
		return fmt.Sprintf("item%v", v.Item.Types)
	}
	return v.Text
}

// Time parses the value as a date. Most formats found in the
// "datetime" and "content" attributes are supported.
func (v Value) Time() (time.Time, error) {
	if v.Type == ItemValue {
		return time.Time{}, fmt.Errorf("cannot convert %s value to time", v.Type)
	}
	return dateparse.ParseAny(v.Text)
}

// MarshalJSON implements [json.Marshaler]. Scalar values are
// encoded as strings, nested items as objects.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Type == ItemValue {
		return marshalJSON(v.Item)
	}
	return marshalJSON(v.Text)
}

// jsonld returns the value as a JSON-LD compatible value.
func (v Value) jsonld() any {
	if v.Type == ItemValue {
		if v.Item == nil {
			return nil
		}
		return v.Item.JSONLD()
	}
	return v.Text
}
