// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"iter"
	"net/url"
	"slices"
	"strings"
)

// Item is a microdata item: the properties found under an "itemscope" element.
type Item struct {
	Types []string
	ID    string

	names      []string
	properties map[string][]Value
}

// NewItem builds an [Item] from an "itemscope" element.
// Its properties are collected from the element's descendants. The walk
// stops at elements carrying "itemscope", since they hold their own item.
// It implements [ItemBuilderFunc].
func NewItem(el Element, pageURL string) *Item {
	item := &Item{
		Types:      []string{},
		names:      []string{},
		properties: map[string][]Value{},
	}
	if el == nil {
		return item
	}

	if s, ok := el.Attr("itemtype"); ok {
		item.Types = strings.Fields(s)
	}
	if s, ok := el.Attr("itemid"); ok {
		item.ID = s
	}

	x := &PropertyExtractor{
		PageURL: pageURL,
		Builder: ItemBuilderFunc(NewItem),
	}
	if c, ok := el.(Container); ok {
		item.readChildren(x, c)
	}

	return item
}

func (item *Item) readChildren(x *PropertyExtractor, c Container) {
	for child := range c.Children() {
		_, hasScope := child.Attr("itemscope")
		if _, hasProp := child.Attr("itemprop"); hasProp {
			props, _ := x.Extract(child)
			for name, v := range props.All() {
				item.Add(name, v)
			}
		}

		if hasScope {
			continue
		}
		if cc, ok := child.(Container); ok {
			item.readChildren(x, cc)
		}
	}
}

// Add appends a value to a property.
func (item *Item) Add(name string, v Value) {
	if _, ok := item.properties[name]; !ok {
		item.names = append(item.names, name)
	}
	item.properties[name] = append(item.properties[name], v)
}

// Names returns the item's property names, in document order.
func (item *Item) Names() []string {
	return slices.Clone(item.names)
}

// Values returns all the values of a property.
func (item *Item) Values(name string) []Value {
	return item.properties[name]
}

// Value returns the first value of a property.
func (item *Item) Value(name string) (Value, bool) {
	if v := item.properties[name]; len(v) > 0 {
		return v[0], true
	}
	return Value{}, false
}

// Properties returns an iterator over the item's properties and their values.
func (item *Item) Properties() iter.Seq2[string, []Value] {
	return func(yield func(string, []Value) bool) {
		for _, name := range item.names {
			if !yield(name, item.properties[name]) {
				return
			}
		}
	}
}

// HasType returns true when the item declares the given type.
func (item *Item) HasType(t string) bool {
	return slices.Contains(item.Types, t)
}

// MarshalJSON implements [json.Marshaler].
func (item *Item) MarshalJSON() ([]byte, error) {
	keys := []string{}
	if len(item.Types) > 0 {
		keys = append(keys, "type")
	}
	if item.ID != "" {
		keys = append(keys, "id")
	}
	keys = append(keys, "properties")

	return marshalOrdered(keys, func(k string) any {
		switch k {
		case "type":
			return item.Types
		case "id":
			return item.ID
		}
		return orderedValues{item}
	})
}

type orderedValues struct {
	item *Item
}

func (o orderedValues) MarshalJSON() ([]byte, error) {
	return marshalOrdered(o.item.names, func(name string) any {
		return o.item.properties[name]
	})
}

// JSONLD returns the item as a JSON-LD like map. A single type URL is
// split into "@context" and "@type", a property with only one value is
// stored as a scalar, and nested items are converted as well.
func (item *Item) JSONLD() map[string]any {
	res := map[string]any{}

	switch len(item.Types) {
	case 0:
	case 1:
		res["@type"] = item.Types[0]
		if u, err := url.Parse(item.Types[0]); err == nil && u.Scheme != "" && u.Host != "" {
			res["@context"] = u.Scheme + "://" + u.Host
			res["@type"] = strings.Trim(u.Path, "/")
		}
	default:
		types := make([]any, len(item.Types))
		for i, t := range item.Types {
			types[i] = t
		}
		res["@type"] = types
	}

	if item.ID != "" {
		res["@id"] = item.ID
	}

	for name, values := range item.Properties() {
		list := make([]any, len(values))
		for i, v := range values {
			x := v.jsonld()
			if sub, ok := x.(map[string]any); ok && sub["@context"] == res["@context"] {
				delete(sub, "@context")
			}
			list[i] = x
		}

		if len(list) == 1 {
			res[name] = list[0]
		} else {
			res[name] = list
		}
	}

	return res
}
