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

package load

import (
	"github.com/mitchellh/hashstructure"

	"archetype.dev/go/archetype/expr"
	"archetype.dev/go/archetype/value"
)

// internTable interns compiled expressions by structural equality of
// their token sequences, so "a == b" and "a==b" share one object. The
// table lives inside a Loader, never process-wide.
type internTable struct {
	byHash map[uint64][]*expr.Expr
}

func newInternTable() *internTable {
	return &internTable{byHash: make(map[uint64][]*expr.Expr)}
}

func (t *internTable) intern(text string) (*expr.Expr, error) {
	e, err := expr.Compile(text)
	if err != nil {
		return nil, err
	}
	tokens := e.Tokens()
	h, err := hashstructure.Hash(hashForm(tokens), nil)
	if err != nil {
		// The hash form is plain data; hashing it cannot fail in
		// practice, but fall back to a fresh object rather than guess.
		return e, nil
	}
	for _, prev := range t.byHash[h] {
		if tokensEqual(prev.Tokens(), tokens) {
			return prev, nil
		}
	}
	t.byHash[h] = append(t.byHash[h], e)
	return e, nil
}

// hashForm flattens a token sequence into hashable plain data: one
// bucket-key string per token, kind-tagged so literals and variables
// never alias.
func hashForm(tokens []expr.Token) []string {
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		switch t.Kind {
		case expr.OperatorToken:
			keys[i] = "op:" + t.Op.Symbol()
		case expr.VariableToken:
			keys[i] = "var:" + t.Name
		default:
			keys[i] = "lit:" + t.Val.Kind().String() + ":" + t.Val.Format()
		}
	}
	return keys
}

func tokensEqual(a, b []expr.Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind {
			return false
		}
		switch a[i].Kind {
		case expr.OperatorToken:
			if a[i].Op != b[i].Op {
				return false
			}
		case expr.VariableToken:
			if a[i].Name != b[i].Name {
				return false
			}
		default:
			if a[i].Val.Kind() != b[i].Val.Kind() || !value.Equal(a[i].Val, b[i].Val) {
				return false
			}
		}
	}
	return true
}
