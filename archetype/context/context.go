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

// Package context implements the hierarchical, typed key/value store the
// engine accumulates user input decisions into.
//
// Scopes form a tree. A scope has a visibility (GLOBAL scopes are
// transparent to name resolution from their parent and from every ancestor
// reached through an unbroken chain of GLOBAL scopes; a GLOBAL scope below
// a LOCAL or UNSET scope is not lifted past that scope; LOCAL scopes are
// reachable only through their parent; UNSET scopes are intermediates)
// and at most one bound value tagged with its provenance. PRESET and
// EXTERNAL bindings are read-only for the remainder of a run.
package context

import (
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// Visibility controls whether a scope is reachable from outside its
// parent.
type Visibility uint8

const (
	// Unset marks intermediate scopes; they inherit no special
	// reachability.
	Unset Visibility = iota
	// Global scopes shadow their position: they are reachable by their
	// own id from their parent, and from any ancestor above it as long as
	// every scope in between is also GLOBAL. A LOCAL or UNSET scope in
	// between stops the lift.
	Global
	// Local scopes are reachable only through their parent.
	Local
)

func (v Visibility) String() string {
	switch v {
	case Global:
		return "GLOBAL"
	case Local:
		return "LOCAL"
	}
	return "UNSET"
}

// ValueKind records how a value entered the context.
type ValueKind uint8

const (
	KindUser ValueKind = iota
	KindPreset
	KindExternal
	KindDefault
	KindVariable
)

func (k ValueKind) String() string {
	switch k {
	case KindPreset:
		return "PRESET"
	case KindExternal:
		return "EXTERNAL"
	case KindDefault:
		return "DEFAULT"
	case KindVariable:
		return "VARIABLE"
	}
	return "USER"
}

// ReadOnly reports whether a binding of this kind refuses later writes.
func (k ValueKind) ReadOnly() bool {
	return k == KindPreset || k == KindExternal
}

type binding struct {
	val  value.Value
	kind ValueKind
}

// A Scope is a node in the context tree.
type Scope struct {
	id         string
	visibility Visibility
	parent     *Scope
	children   []*Scope // insertion order
	index      map[string]*Scope
	binding    *binding
}

// A Context owns the tree of scopes created during a run.
type Context struct {
	root *Scope
}

// New creates an empty context.
func New() *Context {
	return &Context{root: &Scope{index: make(map[string]*Scope)}}
}

// Root returns the root scope.
func (c *Context) Root() *Scope { return c.root }

// Id returns the scope's path segment; "" for the root.
func (s *Scope) Id() string { return s.id }

// Visibility returns the scope's declared visibility.
func (s *Scope) Visibility() Visibility { return s.visibility }

// Parent returns the parent scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Path returns the absolute dotted path of the scope; "" for the root.
func (s *Scope) Path() string {
	if s.parent == nil {
		return ""
	}
	if p := s.parent.Path(); p != "" {
		return p + "." + s.id
	}
	return s.id
}

// Value returns the scope's bound value and its provenance.
func (s *Scope) Value() (value.Value, ValueKind, bool) {
	if s.binding == nil {
		return value.Null, KindUser, false
	}
	return s.binding.val, s.binding.kind, true
}

func (s *Scope) child(id string) *Scope {
	return s.index[id]
}

func (s *Scope) addChild(id string, vis Visibility) *Scope {
	c := &Scope{id: id, visibility: vis, parent: s, index: make(map[string]*Scope)}
	s.children = append(s.children, c)
	s.index[id] = c
	return c
}

// GetOrCreate walks or creates the scopes addressed by p, relative to s.
// Intermediates are created with Unset visibility. When the final scope
// already exists with a declared visibility, the requested visibility
// must be equal or Unset; anything else is a VisibilityConflict. An Unset
// scope adopts the requested visibility.
func (s *Scope) GetOrCreate(p Path, vis Visibility) (*Scope, error) {
	cur := s
	segs := p.segments
	for i, seg := range segs {
		next := cur.child(seg)
		if next == nil {
			v := Unset
			if i == len(segs)-1 {
				v = vis
			}
			next = cur.addChild(seg, v)
		} else if i == len(segs)-1 && vis != Unset {
			if next.visibility == Unset {
				next.visibility = vis
			} else if next.visibility != vis {
				return nil, errors.NewPathf(errors.VisibilityConflict, token.NoPos,
					next.Path(), "scope is %s, requested %s",
					next.visibility, vis)
			}
		}
		cur = next
	}
	return cur, nil
}

// PutValue binds a value at the path addressed by p, creating scopes as
// needed. Rebinding over a read-only provenance fails with ReadOnly
// unless the value is equal, in which case the write is a no-op; an
// equal-value write over a USER or VARIABLE binding is a no-op too, and
// differing writes are last-writer-wins.
func (s *Scope) PutValue(p Path, v value.Value, kind ValueKind) (value.Value, error) {
	target, err := s.GetOrCreate(p, Unset)
	if err != nil {
		return value.Null, err
	}
	return target.Bind(v, kind)
}

// Bind binds a value directly at s with the same semantics as PutValue.
func (s *Scope) Bind(v value.Value, kind ValueKind) (value.Value, error) {
	if b := s.binding; b != nil {
		if value.Equal(b.val, v) {
			return b.val, nil
		}
		if b.kind.ReadOnly() {
			return value.Null, errors.NewPathf(errors.ReadOnly, token.NoPos,
				s.Path(), "value was bound as %s", b.kind)
		}
	}
	s.binding = &binding{val: v, kind: kind}
	return v, nil
}

// Lookup resolves p from s. A relative path ('~' prefix) considers only s
// and its descendants. Otherwise resolution walks from s up to the root
// and, at each ancestor, treats GLOBAL children (and GLOBAL scopes nested
// directly inside them) as directly reachable by their own id; GLOBAL
// scopes below a LOCAL or UNSET child are not searched. The first
// (closest) match wins. An ambiguous match across GLOBAL siblings is an
// error.
func (s *Scope) Lookup(p Path) (*Scope, error) {
	if p.relative {
		return s.resolveLocal(p.segments), nil
	}
	for cur := s; cur != nil; cur = cur.parent {
		m, err := cur.resolveFrom(p.segments)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	return nil, nil
}

// resolveLocal resolves segments strictly below s (or at s itself when
// the first segment names it): no global lift, no upward walk.
func (s *Scope) resolveLocal(segs []string) *Scope {
	if c := s.child(segs[0]); c != nil {
		if m, _ := c.descend(segs[1:]); m != nil {
			return m
		}
	}
	if s.id == segs[0] {
		if m, _ := s.descend(segs[1:]); m != nil {
			return m
		}
	}
	return nil
}

// resolveFrom resolves segments against s: first through s's direct
// children, then against s's own id, then through the transparency of
// GLOBAL children.
func (s *Scope) resolveFrom(segs []string) (*Scope, error) {
	if len(segs) == 0 {
		return s, nil
	}
	if c := s.child(segs[0]); c != nil {
		if m, err := c.descend(segs[1:]); m != nil || err != nil {
			return m, err
		}
	}
	if s.id == segs[0] {
		if m, err := s.descend(segs[1:]); m != nil || err != nil {
			return m, err
		}
	}
	var found *Scope
	for _, c := range s.children {
		if c.visibility != Global {
			continue
		}
		// GLOBAL scopes are transparent: their contents resolve as if
		// attached here, recursively through nested GLOBAL scopes.
		m, err := c.resolveFrom(segs)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		if found != nil && found != m {
			return nil, errors.NewPathf(errors.VisibilityConflict, token.NoPos,
				s.Path(), "path %q is ambiguous across global scopes",
				joinSegs(segs))
		}
		found = m
	}
	return found, nil
}

// descend follows segments strictly through children.
func (s *Scope) descend(segs []string) (*Scope, error) {
	cur := s
	for _, seg := range segs {
		next := cur.child(seg)
		if next == nil {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

// GetValue resolves p from s and returns the bound value, if any.
func (s *Scope) GetValue(p Path) (value.Value, bool, error) {
	m, err := s.Lookup(p)
	if err != nil || m == nil || m.binding == nil {
		return value.Null, false, err
	}
	return m.binding.val, true, nil
}

// VisitEdges visits every scope below s in depth-first insertion order,
// yielding the scope and its bound value when present. The visitor must
// treat the tree as read-only; returning false stops the visit.
func (s *Scope) VisitEdges(cb func(s *Scope, v value.Value, bound bool) bool) {
	s.visitEdges(cb)
}

// visitEdges reports false once cb has stopped the visit, so that no
// enclosing level goes on to the next sibling.
func (s *Scope) visitEdges(cb func(s *Scope, v value.Value, bound bool) bool) bool {
	for _, c := range s.children {
		v, _, bound := c.Value()
		if !cb(c, v, bound) || !c.visitEdges(cb) {
			return false
		}
	}
	return true
}

// Put is a convenience for string paths anchored at the root.
func (c *Context) Put(path string, v value.Value, kind ValueKind) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	_, err = c.root.PutValue(p, v, kind)
	return err
}

// Get is a convenience for string paths resolved from the root.
func (c *Context) Get(path string) (value.Value, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return value.Null, false
	}
	v, ok, err := c.root.GetValue(p)
	if err != nil {
		return value.Null, false
	}
	return v, ok
}

func joinSegs(segs []string) string {
	out := ""
	for i, s := range segs {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}
