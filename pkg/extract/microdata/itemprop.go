// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"bytes"
	"encoding/json"
	"iter"
	"net/url"
	"slices"
	"strings"
)

// tagAttributes maps the elements whose value is not their text content
// to the attribute holding it.
var tagAttributes = map[string]string{
	"a":      "href",
	"area":   "href",
	"audio":  "src",
	"embed":  "src",
	"iframe": "src",
	"img":    "src",
	"link":   "href",
	"meta":   "content",
	"object": "data",
	"source": "src",
	"time":   "datetime",
	"track":  "src",
	"video":  "src",
}

// productAttributes lists product properties and their candidate attributes.
// They take precedence over tagAttributes.
var productAttributes = map[string][]string{
	"priceCurrency": {"content"},
	"availability":  {"href", "content"},
	"price":         {"content"},
}

var urlAttributes = []string{"data", "href", "src"}

// ItemBuilder builds the nested [Item] of an element carrying an "itemscope" attribute.
type ItemBuilder interface {
	BuildItem(el Element, pageURL string) *Item
}

// ItemBuilderFunc is a function implementing [ItemBuilder].
type ItemBuilderFunc func(el Element, pageURL string) *Item

// BuildItem implements [ItemBuilder].
func (f ItemBuilderFunc) BuildItem(el Element, pageURL string) *Item {
	return f(el, pageURL)
}

// PropertyNames returns the property names declared by the element's
// "itemprop" attribute, in declaration order.
func PropertyNames(el Element) []string {
	s, ok := el.Attr("itemprop")
	if !ok {
		return []string{}
	}
	return strings.Fields(s)
}

// ResolveAttributes returns the attribute(s) holding the value of a property,
// in lookup order. A nil result means the value is the element's text content.
func ResolveAttributes(tagName, propertyName string) []string {
	if attrs, ok := productAttributes[propertyName]; ok {
		return attrs
	}
	if attr, ok := tagAttributes[strings.ToLower(tagName)]; ok {
		return []string{attr}
	}
	return nil
}

// MakeAbsoluteURL resolves a URL against a page URL.
// It never fails: when raw is already absolute, or when either URL
// cannot be parsed, raw is returned as is.
func MakeAbsoluteURL(raw, pageURL string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() {
		return raw
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return raw
	}

	return base.ResolveReference(u).String()
}

// PropertyExtractor extracts the properties of an "itemprop" element.
type PropertyExtractor struct {
	// PageURL is used to build absolute URLs.
	PageURL string
	// Builder builds nested items. When nil, [NewItem] is used.
	Builder ItemBuilder
}

// ParseItemprop returns the properties of an "itemprop" element.
func ParseItemprop(el Element, pageURL string) (*Properties, error) {
	return (&PropertyExtractor{PageURL: pageURL}).Extract(el)
}

// Extract returns every property declared by an element.
// An element without "itemprop" returns an empty [Properties].
func (x *PropertyExtractor) Extract(el Element) (*Properties, error) {
	if el == nil {
		return nil, ErrInvalidElement
	}

	res := NewProperties()
	for _, name := range PropertyNames(el) {
		res.Set(name, x.Property(el, name))
	}
	return res, nil
}

// Property returns a property value. When the element opens a new item scope,
// the value is a nested item, regardless of the element's tag.
func (x *PropertyExtractor) Property(el Element, name string) Value {
	if _, ok := el.Attr("itemscope"); ok {
		return NestedItem(x.builder().BuildItem(el, x.PageURL))
	}
	return x.Value(el, name)
}

// Value returns a property scalar value.
func (x *PropertyExtractor) Value(el Element, name string) Value {
	attrs := ResolveAttributes(el.TagName(), name)

	// The first present attribute wins, even when empty.
	for _, attr := range attrs {
		v, ok := el.Attr(attr)
		if !ok {
			continue
		}
		if slices.Contains(urlAttributes, attr) {
			return URL(MakeAbsoluteURL(v, x.PageURL))
		}
		return Text(v)
	}

	return Text(el.Text())
}

func (x *PropertyExtractor) builder() ItemBuilder {
	if x.Builder == nil {
		return ItemBuilderFunc(NewItem)
	}
	return x.Builder
}

// Properties is an ordered property name to [Value] mapping.
// A name keeps the position of its first insertion.
type Properties struct {
	names  []string
	values map[string]Value
}

// NewProperties returns an empty [Properties].
func NewProperties() *Properties {
	return &Properties{
		names:  []string{},
		values: map[string]Value{},
	}
}

// Set sets a property value.
func (p *Properties) Set(name string, v Value) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = v
}

// Get returns a property value.
func (p *Properties) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns the property names, in order.
func (p *Properties) Names() []string {
	return slices.Clone(p.names)
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	return len(p.names)
}

// All returns an iterator over the properties, in order.
func (p *Properties) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, name := range p.names {
			if !yield(name, p.values[name]) {
				return
			}
		}
	}
}

// MarshalJSON implements [json.Marshaler]. Properties keep their order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	return marshalOrdered(p.names, func(name string) any {
		return p.values[name]
	})
}

func marshalOrdered(keys []string, get func(string) any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalJSON(k)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte(':')

		if b, err = marshalJSON(get(k)); err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalJSON is [json.Marshal] without HTML escaping.
func marshalJSON(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
