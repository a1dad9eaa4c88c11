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

package context

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// WriteValues writes a YAML snapshot of every bound value below the root,
// keyed by absolute dotted path, in insertion order. Embedders record the
// snapshot of a finalized context for later replay.
func (c *Context) WriteValues(w io.Writer) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	var visitErr error
	c.root.VisitEdges(func(s *Scope, v value.Value, bound bool) bool {
		if !bound {
			return true
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: s.Path()}
		val, err := valueNode(v)
		if err != nil {
			visitErr = err
			return false
		}
		doc.Content = append(doc.Content, key, val)
		return true
	})
	if visitErr != nil {
		return visitErr
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}

func valueNode(v value.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case value.ListKind:
		elems, err := v.AsList()
		if err != nil {
			return nil, err
		}
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range elems {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: e})
		}
		return n, nil
	case value.BoolKind, value.IntKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.Format()}, nil
	case value.NullKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle,
			Value: v.Format()}, nil
	}
}

// ReadValues parses a YAML snapshot previously produced by WriteValues
// into path-keyed values. The caller decides the provenance the values
// re-enter a context with; replayed runs use EXTERNAL.
func ReadValues(r io.Reader) (map[string]value.Value, error) {
	var raw map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ParseError, token.NoPos,
			"malformed context snapshot")
	}
	out := make(map[string]value.Value, len(raw))
	for path, x := range raw {
		if _, err := ParsePath(path); err != nil {
			return nil, err
		}
		v, err := fromYAML(x)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ParseError, token.NoPos,
				"context snapshot entry %q", path)
		}
		out[path] = v
	}
	return out, nil
}

func fromYAML(x interface{}) (value.Value, error) {
	switch t := x.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.NewBool(t), nil
	case int:
		return value.NewInt(int64(t)), nil
	case int64:
		return value.NewInt(t), nil
	case string:
		return value.NewString(t), nil
	case []interface{}:
		elems := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return value.Null, fmt.Errorf("list element %v is not a string", e)
			}
			elems = append(elems, s)
		}
		return value.NewList(elems...), nil
	}
	return value.Null, fmt.Errorf("unsupported value %v", x)
}
