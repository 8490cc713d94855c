// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Element is a read-only view of a markup element.
type Element interface {
	// Attr returns an attribute value and whether the attribute is present.
	Attr(name string) (string, bool)
	// TagName returns the element's tag name.
	TagName() string
	// Text returns the element's text content, without leading and trailing spaces.
	Text() string
}

// Container is an [Element] with child elements.
type Container interface {
	Element
	Children() iter.Seq[Element]
}

type nodeElement struct {
	node *html.Node
}

// NodeElement returns an [Element] for an [html.Node].
// It returns nil when the node is nil.
func NodeElement(node *html.Node) Element {
	if node == nil {
		return nil
	}
	return nodeElement{node}
}

func (e nodeElement) Attr(name string) (string, bool) {
	if !dom.HasAttribute(e.node, name) {
		return "", false
	}
	return dom.GetAttribute(e.node, name), true
}

func (e nodeElement) TagName() string {
	return dom.TagName(e.node)
}

func (e nodeElement) Text() string {
	return strings.TrimSpace(dom.TextContent(e.node))
}

func (e nodeElement) Children() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for _, c := range dom.Children(e.node) {
			if !yield(nodeElement{c}) {
				return
			}
		}
	}
}

type selectionElement struct {
	sel *goquery.Selection
}

// SelectionElement returns an [Element] for the first node of
// a [goquery.Selection]. It returns nil for an empty selection.
func SelectionElement(sel *goquery.Selection) Element {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return selectionElement{sel.First()}
}

func (e selectionElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e selectionElement) TagName() string {
	return goquery.NodeName(e.sel)
}

func (e selectionElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e selectionElement) Children() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		children := e.sel.Children()
		for i := range children.Length() {
			if !yield(selectionElement{children.Eq(i)}) {
				return
			}
		}
	}
}
