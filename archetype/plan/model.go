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

package plan

import (
	"sort"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
)

// EntryKind tags the shape of a model entry.
type EntryKind uint8

const (
	ScalarEntry EntryKind = iota
	ListEntry
	MapEntry
)

func (k EntryKind) String() string {
	switch k {
	case ListEntry:
		return "list"
	case MapEntry:
		return "map"
	}
	return "value"
}

// An Entry is one node of the template data model: a scalar leaf, a list,
// or a map. Order breaks merge ties: lower orders merge first, so a later
// scalar with a higher order wins and list elements sort ascending.
type Entry struct {
	Kind   EntryKind
	Scalar string
	List   []*Entry
	Map    map[string]*Entry
	Order  int
}

// NewScalar returns a scalar leaf.
func NewScalar(s string, order int) *Entry {
	return &Entry{Kind: ScalarEntry, Scalar: s, Order: order}
}

// NewList returns an empty list entry.
func NewList(order int) *Entry {
	return &Entry{Kind: ListEntry, Order: order}
}

// NewMap returns an empty map entry.
func NewMap(order int) *Entry {
	return &Entry{Kind: MapEntry, Map: make(map[string]*Entry), Order: order}
}

// Append adds an element to a list entry.
func (e *Entry) Append(child *Entry) {
	e.List = append(e.List, child)
}

// Merge merges a keyed child into a map entry, recursively combining
// lists and maps that collide.
func (e *Entry) Merge(key string, child *Entry) error {
	return mergeInto(e.Map, key, child)
}

// A Model is the merged, typed, multi-entry map emitted as part of the
// output plan and consumed by template renderers.
type Model struct {
	root *Entry
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{root: NewMap(0)}
}

// Root returns the top-level key mapping.
func (m *Model) Root() map[string]*Entry { return m.root.Map }

// Merge merges an entry under the top-level key. Entries merge across the
// walk: lists and maps accumulate, scalars resolve by order with the
// lower order merging first.
func (m *Model) Merge(key string, e *Entry) error {
	return mergeInto(m.root.Map, key, e)
}

func mergeInto(dst map[string]*Entry, key string, e *Entry) error {
	old, ok := dst[key]
	if !ok {
		dst[key] = e
		return nil
	}
	merged, err := merge(old, e)
	if err != nil {
		return errors.Wrapf(err, errors.ParseError, token.NoPos, "model key %q", key)
	}
	dst[key] = merged
	return nil
}

func merge(dst, src *Entry) (*Entry, error) {
	if dst.Kind != src.Kind {
		return nil, errors.Newf(errors.ParseError, token.NoPos,
			"cannot merge %s with %s", src.Kind, dst.Kind)
	}
	switch dst.Kind {
	case ScalarEntry:
		// Lower merges first; the later, higher-ordered value wins.
		if src.Order >= dst.Order {
			return src, nil
		}
		return dst, nil
	case ListEntry:
		dst.List = append(dst.List, src.List...)
		return dst, nil
	default:
		for k, v := range src.Map {
			if err := mergeInto(dst.Map, k, v); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
}

// Finalize sorts every list ascending by order, keeping declaration order
// within equal orders. The engine calls it once at the end of a walk.
func (m *Model) Finalize() {
	finalize(m.root)
}

func finalize(e *Entry) {
	switch e.Kind {
	case ListEntry:
		sort.SliceStable(e.List, func(i, j int) bool {
			return e.List[i].Order < e.List[j].Order
		})
		for _, c := range e.List {
			finalize(c)
		}
	case MapEntry:
		for _, c := range e.Map {
			finalize(c)
		}
	}
}
