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

// Package plan defines the output plan a run emits: file copy directives,
// template directives, file sets, and the merged template data model.
// Renderers consume the plan; the engine itself renders nothing.
package plan

import (
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
)

// A FileCopy directs a renderer to copy one file verbatim.
type FileCopy struct {
	Source          string
	Target          string
	Transformations []*Transformation
}

// A TemplateRender directs a renderer to render one template.
type TemplateRender struct {
	Engine          string
	Source          string
	Target          string
	Transformations []*Transformation
}

// A FileSet directs a renderer to copy every file under Directory that
// matches the include patterns and none of the exclude patterns.
type FileSet struct {
	Directory       string
	Includes        []string
	Excludes        []string
	Transformations []*Transformation
}

// A TemplateSet is a FileSet rendered through a template engine.
type TemplateSet struct {
	FileSet
	Engine string
}

// A Plan is the buffered output of one run.
type Plan struct {
	Files        []FileCopy
	Templates    []TemplateRender
	FileSets     []FileSet
	TemplateSets []TemplateSet
	Model        *Model
}

// New returns an empty plan.
func New() *Plan {
	return &Plan{Model: NewModel()}
}

// Resolve expands the file set against a file namespace: every regular
// file under the set's directory whose relative path matches the
// includes and none of the excludes yields one copy directive, with the
// set's transformations applied to the target path by the renderer.
func (s *FileSet) Resolve(fsys fs.FS) ([]FileCopy, error) {
	dir := path.Clean(strings.TrimPrefix(s.Directory, "/"))
	if dir == "" || dir == "." {
		dir = "."
	}
	var out []FileCopy
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := p
		if dir != "." {
			rel = p[len(dir)+1:]
		}
		// No includes means everything under the directory.
		if len(s.Includes) > 0 {
			ok, err := matchAny(s.Includes, rel)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		excluded, err := matchAny(s.Excludes, rel)
		if err != nil {
			return err
		}
		if excluded {
			return nil
		}
		out = append(out, FileCopy{
			Source:          p,
			Target:          rel,
			Transformations: s.Transformations,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Promote(err, errors.IOError, "resolving file set "+s.Directory)
	}
	return out, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, pat := range patterns {
		ok, err := doublestar.Match(pat, name)
		if err != nil {
			return false, errors.Newf(errors.ParseError, token.NoPos,
				"malformed glob pattern %q", pat)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
