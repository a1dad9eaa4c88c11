// Copyright 2025 The Archetype Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ast declares the types used to represent the syntax trees of
// archetype scripts.
//
// A script is a directed tree of uniformly shaped nodes. Instead of one
// concrete type per element, every element is a Node carrying a closed
// Kind tag, a raw attribute map, an ordered child list, and an optional
// literal value; traversal and semantic dispatch switch on the tag.
package ast

import (
	"path"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/expr"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// A Node represents a single script element.
//
// Attrs holds the raw string form of the element's attributes; keys are
// validated against the node kind's allowed set by the loader, and typed
// access goes through [Node.Attr]. The parent reference is non-owning and
// set by [Node.Add]; ownership follows the child list.
type Node struct {
	Kind     Kind
	Attrs    map[string]string
	Children []*Node
	Value    value.Value
	Pos      token.Pos

	// Expr is the compiled condition of a Condition node, set by the
	// loader so that textually identical conditions share one object.
	Expr *expr.Expr

	// Target is the linked script of an Invoke or InvokeDir node, filled
	// in lazily by the loader when the invocation is first reached.
	Target *Script

	parent *Node
}

// NewNode creates a node of the given kind.
func NewNode(kind Kind, pos token.Pos) *Node {
	return &Node{Kind: kind, Pos: pos}
}

// Parent returns the parent of n, or nil for a root node.
func (n *Node) Parent() *Node { return n.parent }

// Add appends children to n and sets their parent reference.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// SetAttr records the raw string form of an attribute.
func (n *Node) SetAttr(key, raw string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = raw
	return n
}

// Has reports whether the attribute key is present on n.
func (n *Node) Has(key string) bool {
	_, ok := n.Attrs[key]
	return ok
}

// Raw returns the raw string form of an attribute and whether it is
// present.
func (n *Node) Raw(key string) (string, bool) {
	s, ok := n.Attrs[key]
	return s, ok
}

// Attr returns the typed value of an attribute. The declared type comes
// from the per-kind attribute table: an input-boolean's "default" is
// stored as a string but surfaces here as a BOOLEAN value. Absent
// attributes yield the null value.
func (n *Node) Attr(key string) (value.Value, error) {
	raw, ok := n.Attrs[key]
	if !ok {
		return value.Null, nil
	}
	decl, ok := attrTable[n.Kind][key]
	if !ok {
		return value.Null, errors.Newf(errors.ParseError, n.Pos,
			"attribute %q is not declared for %s", key, n.Kind)
	}
	v, err := value.Parse(decl.kind, raw)
	if err != nil {
		return value.Null, errors.Wrapf(err, errors.ValueParseError, n.Pos,
			"attribute %q of %s", key, n.Kind)
	}
	return v, nil
}

// BoolAttr returns the boolean value of an attribute, or false when the
// attribute is absent. Malformed payloads read as false as well; the
// loader has already rejected them by the time a walk observes the node.
func (n *Node) BoolAttr(key string) bool {
	v, err := n.Attr(key)
	if err != nil || v.IsNull() {
		return false
	}
	b, err := v.AsBool()
	return err == nil && b
}

// Name returns the "name" attribute of n, or "".
func (n *Node) Name() string { return n.Attrs["name"] }

// A Script is a loaded script file: a distinguished root node together
// with its path identity and the table of methods it declares.
type Script struct {
	// Root is the script node; its children are the top-level elements.
	Root *Node

	// Path is the canonical path of the script within its namespace.
	Path string

	// Methods maps method names to their method nodes. Populated by the
	// loader; a method body is walked at each call site.
	Methods map[string]*Node
}

// Dir returns the directory of the script within its namespace. Relative
// invocation and output source paths resolve against it.
func (s *Script) Dir() string {
	return path.Dir(s.Path)
}

// Method returns the named method, or an UnknownMethod error naming the
// script.
func (s *Script) Method(name string, pos token.Pos) (*Node, error) {
	m, ok := s.Methods[name]
	if !ok {
		return nil, errors.Newf(errors.UnknownMethod, pos,
			"method %q is not declared in %s", name, s.Path)
	}
	return m, nil
}
