// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"iter"
	"maps"
	"slices"
)

// Tree contains a list of [Node] and provides query methods.
type Tree struct {
	Nodes []*Node
}

// NodeType is a node type.
type NodeType uint8

const (
	// ItemNode is a node with children.
	ItemNode NodeType = iota
	// PropertyNode is a node with scalar data.
	PropertyNode
)

// Node is an element of the node hierarchy.
type Node struct {
	Type     NodeType `json:"type"`
	Name     string   `json:"name,omitempty"`
	Path     string   `json:"path"`
	Data     any      `json:"data,omitempty"`
	Parent   *Node    `json:"-"`
	Children []*Node  `json:"children,omitempty"`

	raw any
}

// NewTree builds a [Tree] out of JSON-LD like values,
// as returned by [Document.Raw].
func NewTree(raw []any) *Tree {
	t := &Tree{Nodes: make([]*Node, 0, len(raw))}
	for _, x := range raw {
		root := &Node{raw: x}
		// A root @graph holds the real values.
		if m, ok := x.(map[string]any); ok {
			if g, ok := m["@graph"]; ok {
				x = g
			}
		}
		root.fill(x)
		t.Nodes = append(t.Nodes, root)
	}
	return t
}

// fill sets the node's content from a decoded JSON value.
// The first string "@type" of an object names the root path.
func (node *Node) fill(val any) {
	switch v := val.(type) {
	case map[string]any:
		if typ, ok := v["@type"].(string); ok && node.Path == "" {
			node.Path = typ
		}
		for _, k := range slices.Sorted(maps.Keys(v)) {
			node.addChild(k, node.Path+"."+k, v[k])
		}
	case []any:
		for _, x := range v {
			node.addChild("", node.Path, x)
		}
	case float64:
		node.Type = PropertyNode
		if i := int(v); float64(i) == v {
			node.Data = i
		} else {
			node.Data = v
		}
	default:
		node.Type = PropertyNode
		node.Data = v
	}
}

func (node *Node) addChild(name, path string, val any) {
	c := &Node{Name: name, Path: path, Parent: node}
	c.fill(val)
	node.Children = append(node.Children, c)
}

// walk yields the node and its descendants, parents first.
// It returns false when yield asked to stop.
func (node *Node) walk(yield func(*Node) bool) bool {
	if !yield(node) {
		return false
	}
	for _, c := range node.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// Raw returns the initial values.
func (t *Tree) Raw() []any {
	res := make([]any, len(t.Nodes))
	for i, n := range t.Nodes {
		res[i] = n.raw
	}
	return res
}

// All iterates over every node of the tree, parents first.
// A nil filter keeps every node.
func (t *Tree) All(filter func(*Node) bool) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		visit := func(n *Node) bool {
			if filter != nil && !filter(n) {
				return true
			}
			return yield(n)
		}
		for _, root := range t.Nodes {
			if !root.walk(visit) {
				return
			}
		}
	}
}

// Properties iterates over the scalar nodes.
func (t *Tree) Properties() iter.Seq[*Node] {
	return t.All(func(n *Node) bool { return n.Type == PropertyNode })
}

// Lookup returns the data of every scalar node at path.
func (t *Tree) Lookup(path string) []any {
	res := []any{}
	for n := range t.All(func(n *Node) bool {
		return n.Type == PropertyNode && n.Path == path
	}) {
		res = append(res, n.Data)
	}
	return res
}
