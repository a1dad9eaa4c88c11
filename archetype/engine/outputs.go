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

package engine

import (
	"path"

	"archetype.dev/go/archetype/ast"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/plan"
)

// declareTransformation registers a named transformation for later
// reference from the transformations attribute of files and templates
// directives. Single file and template directives take no transformations.
func (c *controller) declareTransformation(n *ast.Node) error {
	id := n.Attrs["id"]
	t := &plan.Transformation{ID: id}
	for _, child := range n.Children {
		if child.Kind != ast.Replace {
			continue
		}
		regex, err := c.evalString(child.Attrs["regex"], child)
		if err != nil {
			return err
		}
		replacement, err := c.evalString(child.Attrs["replacement"], child)
		if err != nil {
			return err
		}
		compiled, err := plan.NewTransformation(id, regex, replacement)
		if err != nil {
			return errors.Wrapf(err, errors.ParseError, child.Pos, "transformation %q", id)
		}
		t.Replacements = append(t.Replacements, compiled.Replacements...)
	}
	c.transformations[id] = t
	return nil
}

// lookupTransformations resolves a transformations attribute into the
// declared transformation objects.
func (c *controller) lookupTransformations(n *ast.Node) ([]*plan.Transformation, error) {
	v, err := n.Attr("transformations")
	if err != nil || v.IsNull() {
		return nil, err
	}
	ids, err := v.AsList()
	if err != nil {
		return nil, err
	}
	var out []*plan.Transformation
	for _, id := range ids {
		t, ok := c.transformations[id]
		if !ok {
			return nil, errors.Newf(errors.ParseError, n.Pos,
				"transformation %q is not declared", id)
		}
		out = append(out, t)
	}
	return out, nil
}

// sourcePath anchors a relative output source at the current invocation
// directory.
func (c *controller) sourcePath(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(c.dir(), p)
}

func (c *controller) emitFile(n *ast.Node) error {
	source, err := c.evalString(n.Attrs["source"], n)
	if err != nil {
		return err
	}
	target, err := c.evalString(n.Attrs["target"], n)
	if err != nil {
		return err
	}
	c.plan.Files = append(c.plan.Files, plan.FileCopy{
		Source: c.sourcePath(source),
		Target: target,
	})
	return nil
}

func (c *controller) emitTemplate(n *ast.Node) error {
	source, err := c.evalString(n.Attrs["source"], n)
	if err != nil {
		return err
	}
	target, err := c.evalString(n.Attrs["target"], n)
	if err != nil {
		return err
	}
	c.plan.Templates = append(c.plan.Templates, plan.TemplateRender{
		Engine: n.Attrs["engine"],
		Source: c.sourcePath(source),
		Target: target,
	})
	return nil
}

// emitFileSet buffers a files or templates directive: the directory, the
// include/exclude patterns of its active children, and the referenced
// transformations.
func (c *controller) emitFileSet(n *ast.Node) error {
	directory, err := c.evalString(n.Attrs["directory"], n)
	if err != nil {
		return err
	}
	ts, err := c.lookupTransformations(n)
	if err != nil {
		return err
	}
	set := plan.FileSet{
		Directory:       c.sourcePath(directory),
		Transformations: ts,
	}
	if err := c.collectPatterns(n, &set); err != nil {
		return err
	}
	if n.Kind == ast.Templates {
		c.plan.TemplateSets = append(c.plan.TemplateSets, plan.TemplateSet{
			FileSet: set,
			Engine:  n.Attrs["engine"],
		})
	} else {
		c.plan.FileSets = append(c.plan.FileSets, set)
	}
	return nil
}

// collectPatterns gathers includes/excludes children, honoring condition
// wrappers.
func (c *controller) collectPatterns(n *ast.Node, set *plan.FileSet) error {
	for _, child := range n.Children {
		switch child.Kind {
		case ast.Includes, ast.Excludes:
			patterns, err := child.Value.AsList()
			if err != nil {
				return err
			}
			if child.Kind == ast.Includes {
				set.Includes = append(set.Includes, patterns...)
			} else {
				set.Excludes = append(set.Excludes, patterns...)
			}
		case ast.Condition:
			ok, err := child.Expr.EvalCondition(c.resolve)
			if err != nil {
				return errors.Wrapf(err, errors.ExprTypeError, child.Pos, "pattern condition")
			}
			if ok {
				if err := c.collectPatterns(child, set); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// mergeModel merges the children of a model node into the plan's model.
// Entries under a false condition are dropped.
func (c *controller) mergeModel(n *ast.Node) error {
	entries, err := c.modelEntries(n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.key == "" {
			return errors.Newf(errors.ParseError, n.Pos,
				"top-level model entries need a key")
		}
		if err := c.plan.Model.Merge(e.key, e.entry); err != nil {
			return err
		}
	}
	return nil
}

type keyedEntry struct {
	key   string
	entry *plan.Entry
}

// modelEntries builds the entries declared directly under n, resolving
// conditions and interpolated values.
func (c *controller) modelEntries(n *ast.Node) ([]keyedEntry, error) {
	var out []keyedEntry
	for _, child := range n.Children {
		switch child.Kind {
		case ast.ModelValue, ast.ModelList, ast.ModelMap:
			e, err := c.modelEntry(child)
			if err != nil {
				return nil, err
			}
			out = append(out, keyedEntry{key: child.Attrs["key"], entry: e})
		case ast.Condition:
			ok, err := child.Expr.EvalCondition(c.resolve)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ExprTypeError, child.Pos,
					"model condition")
			}
			if !ok {
				continue
			}
			nested, err := c.modelEntries(child)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
	}
	return out, nil
}

func (c *controller) modelEntry(n *ast.Node) (*plan.Entry, error) {
	order, err := c.modelOrder(n)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case ast.ModelValue:
		raw, err := n.Value.AsString()
		if err != nil {
			return nil, err
		}
		s, err := c.evalString(raw, n)
		if err != nil {
			return nil, err
		}
		return plan.NewScalar(s, order), nil

	case ast.ModelList:
		e := plan.NewList(order)
		children, err := c.modelEntries(n)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			e.Append(child.entry)
		}
		return e, nil

	default: // ast.ModelMap
		e := plan.NewMap(order)
		children, err := c.modelEntries(n)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.key == "" {
				return nil, errors.Newf(errors.ParseError, n.Pos,
					"model map entries need a key")
			}
			if err := e.Merge(child.key, child.entry); err != nil {
				return nil, err
			}
		}
		return e, nil
	}
}

func (c *controller) modelOrder(n *ast.Node) (int, error) {
	v, err := n.Attr("order")
	if err != nil {
		return 0, err
	}
	if v.IsNull() {
		return 0, nil
	}
	i, err := v.AsInt()
	if err != nil {
		return 0, err
	}
	return int(i), nil
}
