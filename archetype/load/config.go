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
	"io"
	"io/fs"
	"path"

	"github.com/sirupsen/logrus"

	"archetype.dev/go/archetype/ast"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/encoding/axml"
)

// DefaultEntry is the conventional entry script of a namespace.
const DefaultEntry = "/main.xml"

// A Config configures a [Loader]. The zero value loads nothing; at least
// one of FS and Overlay must be set.
type Config struct {
	// FS is the virtual namespace scripts are read from, rooted at "/".
	FS fs.FS

	// Overlay maps canonical paths to script sources. Entries shadow FS.
	Overlay map[string][]byte

	// Entry is the path of the entry script. The default is "/main.xml".
	Entry string

	// Parse turns one script source into an AST. The default is
	// axml.Parse.
	Parse func(r io.Reader, path string) (*ast.Script, error)

	// Logger receives debug records for script loads and invocation
	// links. The default is the logrus standard logger.
	Logger logrus.FieldLogger

	// Permissive skips the load-time input checks (an optional input
	// declaring no default) so that the validator can traverse the
	// script and report them as diagnostics instead. Engine runs load
	// strictly.
	Permissive bool
}

func (cfg *Config) complete() error {
	if cfg.FS == nil && len(cfg.Overlay) == 0 {
		return errors.Newf(errors.IOError, token.NoPos,
			"load: no file namespace configured")
	}
	if cfg.Entry == "" {
		cfg.Entry = DefaultEntry
	}
	if cfg.Parse == nil {
		cfg.Parse = axml.Parse
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return nil
}

// canonical normalizes a namespace path to its cache identity: absolute,
// cleaned, slash-separated.
func canonical(p string) string {
	if !path.IsAbs(p) {
		p = "/" + p
	}
	return path.Clean(p)
}
