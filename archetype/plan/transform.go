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
	"regexp"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
)

// A Replacement is a single regex substitution.
type Replacement struct {
	Regex       *regexp.Regexp
	Replacement string
}

// A Transformation is a named sequence of replacements applied to target
// paths, never to file contents.
type Transformation struct {
	ID           string
	Replacements []Replacement
}

// NewTransformation compiles the replacement pairs; pairs must alternate
// regex, replacement.
func NewTransformation(id string, pairs ...string) (*Transformation, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.Newf(errors.ParseError, token.NoPos,
			"transformation %q needs regex/replacement pairs", id)
	}
	t := &Transformation{ID: id}
	for i := 0; i < len(pairs); i += 2 {
		re, err := regexp.Compile(pairs[i])
		if err != nil {
			return nil, errors.Wrapf(err, errors.ParseError, token.NoPos,
				"transformation %q", id)
		}
		t.Replacements = append(t.Replacements, Replacement{re, pairs[i+1]})
	}
	return t, nil
}

// Apply runs the replacements left to right over the path. A
// transformation with no replacements leaves it unchanged.
func (t *Transformation) Apply(path string) string {
	for _, r := range t.Replacements {
		path = r.Regex.ReplaceAllString(path, r.Replacement)
	}
	return path
}

// ApplyAll applies a sequence of transformations left to right.
func ApplyAll(path string, ts []*Transformation) string {
	for _, t := range ts {
		path = t.Apply(path)
	}
	return path
}
