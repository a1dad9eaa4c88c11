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

// Package load resolves archetype scripts in a virtual file namespace and
// links them into a runnable set: attributes validated per kind,
// conditions compiled and interned, methods collected, and
// source/exec/call invocations wired up lazily.
package load

import (
	"bytes"
	"io/fs"
	"path"
	"slices"
	"strings"

	"archetype.dev/go/archetype/ast"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/expr"
	"archetype.dev/go/archetype/token"
)

// A Loader caches loaded scripts by canonical path and owns the
// expression intern table. A Loader is not safe for concurrent use; the
// engine runs on a single cooperative thread.
type Loader struct {
	cfg     Config
	scripts map[string]*ast.Script
	exprs   *internTable
}

// NewLoader validates the configuration and returns an empty loader.
func NewLoader(cfg Config) (*Loader, error) {
	if err := cfg.complete(); err != nil {
		return nil, err
	}
	return &Loader{
		cfg:     cfg,
		scripts: make(map[string]*ast.Script),
		exprs:   newInternTable(),
	}, nil
}

// Entry loads the namespace's entry script.
func (l *Loader) Entry() (*ast.Script, error) {
	return l.Load(l.cfg.Entry)
}

// EntryPath returns the configured entry path.
func (l *Loader) EntryPath() string { return canonical(l.cfg.Entry) }

// Load resolves, parses, and links the script at p, caching by canonical
// path.
func (l *Loader) Load(p string) (*ast.Script, error) {
	p = canonical(p)
	if s, ok := l.scripts[p]; ok {
		return s, nil
	}
	src, err := l.read(p)
	if err != nil {
		return nil, err
	}
	s, err := l.cfg.Parse(bytes.NewReader(src), p)
	if err != nil {
		return nil, err
	}
	if err := l.link(s); err != nil {
		return nil, err
	}
	l.cfg.Logger.WithField("script", p).Debug("loaded script")
	l.scripts[p] = s
	return s, nil
}

func (l *Loader) read(p string) ([]byte, error) {
	if src, ok := l.cfg.Overlay[p]; ok {
		return src, nil
	}
	if l.cfg.FS != nil {
		src, err := fs.ReadFile(l.cfg.FS, strings.TrimPrefix(p, "/"))
		if err == nil {
			return src, nil
		}
		return nil, errors.Wrapf(err, errors.IOError, token.NoPos,
			"cannot read script %q", p)
	}
	return nil, errors.Newf(errors.IOError, token.NoPos,
		"script %q is not in the namespace", p)
}

// link validates every node of a freshly parsed script and completes the
// parts of the tree the reader leaves open: attribute sets, compiled
// conditions, and the method table.
func (l *Loader) link(s *ast.Script) error {
	s.Methods = make(map[string]*ast.Node)
	var firstErr error
	ast.Walk(s.Root, func(n *ast.Node) bool {
		if firstErr != nil {
			return false
		}
		if err := ast.CheckAttrs(n); err != nil {
			firstErr = err
			return false
		}
		switch {
		case n.Kind == ast.Condition:
			if len(n.Children) != 1 {
				firstErr = errors.Newf(errors.ParseError, n.Pos,
					"condition must own exactly one subtree, has %d", len(n.Children))
				return false
			}
			raw := n.Attrs["expression"]
			e, err := l.Intern(raw)
			if err != nil {
				firstErr = errors.Wrapf(err, errors.ExprFormatError, n.Pos,
					"condition in %s", s.Path)
				return false
			}
			n.Expr = e
		case n.Kind == ast.Method:
			name := n.Name()
			if _, ok := s.Methods[name]; ok {
				firstErr = errors.Newf(errors.ParseError, n.Pos,
					"method %q is declared twice in %s", name, s.Path)
				return false
			}
			s.Methods[name] = n
		case n.Kind.IsInput():
			if !l.cfg.Permissive && n.BoolAttr("optional") && !n.Has("default") {
				firstErr = errors.NewPathf(errors.ParseError, n.Pos, n.Name(),
					"optional input declares no default")
				return false
			}
		}
		return true
	}, nil)
	return firstErr
}

// Invoke resolves a source or exec node against the invoking script's
// current directory and links the target beneath it: source preserves the
// caller's directory for nested path resolution, exec re-roots to the
// callee's. The active stack of script paths detects invocation cycles.
func (l *Loader) Invoke(stack []string, currentDir string, n *ast.Node) (*ast.Node, error) {
	src := n.Attrs["src"]
	target := src
	if !path.IsAbs(src) {
		target = path.Join(currentDir, src)
	}
	target = canonical(target)
	// A source invocation resolves against the caller's directory, so the
	// same node can link to different targets across call sites; reuse
	// only a link for this resolution.
	for _, child := range n.Children {
		if child.Target != nil && child.Target.Path == target {
			return child, nil
		}
	}
	if slices.Contains(stack, target) {
		return nil, errors.Newf(errors.CycleError, n.Pos,
			"script cycle: %s -> %s", strings.Join(stack, " -> "), target)
	}
	s, err := l.Load(target)
	if err != nil {
		return nil, err
	}
	kind := ast.Invoke
	if n.Kind == ast.Exec {
		kind = ast.InvokeDir
	}
	link := ast.NewNode(kind, n.Pos)
	link.Target = s
	n.Add(link)
	l.cfg.Logger.WithField("script", target).WithField("kind", n.Kind.String()).
		Debug("linked invocation")
	return link, nil
}

// Intern compiles an expression, returning the shared object for
// structurally identical text. Two equal condition strings anywhere in
// the namespace share one *expr.Expr.
func (l *Loader) Intern(text string) (*expr.Expr, error) {
	return l.exprs.intern(text)
}

// InternString compiles a string-context value. These are not interned;
// only conditions repeat enough to matter.
func (l *Loader) InternString(text string) (*expr.StringExpr, error) {
	return expr.CompileString(text)
}
