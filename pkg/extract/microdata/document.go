// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"encoding/json"
	"io"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	topLevelXPath    = "//*[@itemscope and not(@itemprop)]"
	topLevelSelector = "[itemscope]:not([itemprop])"
)

// Document contains the top-level items of a page
// and its JSON-LD blocks.
type Document struct {
	PageURL string
	Items   []*Item
	JSONLD  []any
}

// Parse parses an HTML document and returns its [Document].
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return ParseNode(root, pageURL), nil
}

// ParseNode returns the [Document] of an [html.Node] tree.
// JSON-LD blocks that can't be decoded are ignored.
func ParseNode(root *html.Node, pageURL string) *Document {
	doc := &Document{
		PageURL: pageURL,
		Items:   []*Item{},
		JSONLD:  []any{},
	}
	if root == nil {
		return doc
	}

	nodes, _ := htmlquery.QueryAll(root, topLevelXPath)
	for _, n := range nodes {
		doc.Items = append(doc.Items, NewItem(NodeElement(n), pageURL))
	}

	for n := range iterNodes(root) {
		if n.DataAtom != atom.Script || n.FirstChild == nil {
			continue
		}
		if !isJSONLD(n) {
			continue
		}
		v, err := decodeJSONLD([]byte(n.FirstChild.Data))
		if err != nil {
			continue
		}
		switch t := v.(type) {
		case []any:
			for _, x := range t {
				if x, ok := x.(map[string]any); ok {
					doc.JSONLD = append(doc.JSONLD, x)
				}
			}
		case map[string]any:
			doc.JSONLD = append(doc.JSONLD, t)
		}
	}

	return doc
}

// ParseSelection returns the [Document] of a [goquery.Selection].
// Only microdata items are collected.
func ParseSelection(sel *goquery.Selection, pageURL string) *Document {
	doc := &Document{
		PageURL: pageURL,
		Items:   []*Item{},
		JSONLD:  []any{},
	}
	if sel == nil {
		return doc
	}

	sel.Find(topLevelSelector).Each(func(_ int, s *goquery.Selection) {
		doc.Items = append(doc.Items, NewItem(SelectionElement(s), pageURL))
	})
	return doc
}

// ItemsOfType returns the top-level items with the given type.
func (doc *Document) ItemsOfType(t string) []*Item {
	res := []*Item{}
	for _, item := range doc.Items {
		if item.HasType(t) {
			res = append(res, item)
		}
	}
	return res
}

// Raw returns the JSON-LD view of every item, followed by the JSON-LD blocks.
func (doc *Document) Raw() []any {
	res := []any{}
	for _, item := range doc.Items {
		res = append(res, item.JSONLD())
	}
	return append(res, doc.JSONLD...)
}

// Tree returns a queryable [Tree] of the document's raw data.
func (doc *Document) Tree() *Tree {
	return NewTree(doc.Raw())
}

// MarshalJSON implements [json.Marshaler].
func (doc *Document) MarshalJSON() ([]byte, error) {
	return marshalJSON(struct {
		Items []*Item `json:"items"`
	}{doc.Items})
}

func isJSONLD(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "type" {
			return strings.EqualFold(strings.TrimSpace(a.Val), "application/ld+json")
		}
	}
	return false
}

func decodeJSONLD(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return decodeJSONLDValues(v), nil
}

// decodeJSONLDValues unescapes HTML entities found in string values.
func decodeJSONLDValues(val any) any {
	switch t := val.(type) {
	case map[string]any:
		for k, v := range t {
			t[k] = decodeJSONLDValues(v)
		}
	case []any:
		for i, x := range t {
			t[i] = decodeJSONLDValues(x)
		}
	case string:
		return html.UnescapeString(t)
	}
	return val
}

func iterNodes(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		walkNodes(n, yield)
	}
}

func walkNodes(n *html.Node, yield func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !yield(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkNodes(c, yield) {
			return false
		}
	}
	return true
}
