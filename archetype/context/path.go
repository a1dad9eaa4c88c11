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
	"strings"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
)

// A Path addresses a scope in the context tree: dot-separated segments,
// optionally prefixed by '~' to make resolution current-scope-relative
// (disabling the global lift).
type Path struct {
	segments []string
	relative bool
}

// ParsePath parses and validates the string form of a path. Segments
// match [A-Za-z0-9_-]+; an empty segment, a leading or trailing dot, or
// an illegal character is an InvalidPath error.
func ParsePath(s string) (Path, error) {
	orig := s
	var p Path
	if strings.HasPrefix(s, "~") {
		p.relative = true
		s = s[1:]
	}
	if s == "" {
		return Path{}, errors.Newf(errors.InvalidPath, token.NoPos,
			"empty path %q", orig)
	}
	p.segments = strings.Split(s, ".")
	for _, seg := range p.segments {
		if seg == "" {
			return Path{}, errors.Newf(errors.InvalidPath, token.NoPos,
				"empty segment in path %q", orig)
		}
		for i := 0; i < len(seg); i++ {
			if !isPathByte(seg[i]) {
				return Path{}, errors.Newf(errors.InvalidPath, token.NoPos,
					"illegal character %q in path %q", seg[i], orig)
			}
		}
	}
	return p, nil
}

func isPathByte(b byte) bool {
	return b == '_' || b == '-' ||
		'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9'
}

// MustPath is a ParsePath that panics on error, for statically known
// paths.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Relative reports whether the path was prefixed with '~'.
func (p Path) Relative() bool { return p.relative }

// Segments returns the path's segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// String returns the source form of the path.
func (p Path) String() string {
	s := strings.Join(p.segments, ".")
	if p.relative {
		return "~" + s
	}
	return s
}
