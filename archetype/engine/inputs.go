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
	"regexp"

	"github.com/opentracing/opentracing-go"

	"archetype.dev/go/archetype/ast"
	actx "archetype.dev/go/archetype/context"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/input"
	"archetype.dev/go/archetype/value"
)

func inputKind(k ast.Kind) input.Kind {
	switch k {
	case ast.InputBoolean:
		return input.Boolean
	case ast.InputEnum:
		return input.Enum
	case ast.InputList:
		return input.List
	}
	return input.Text
}

// walkInput resolves one input and descends into the subtrees its answer
// selects.
func (c *controller) walkInput(n *ast.Node) error {
	name := n.Name()
	p, err := actx.ParsePath(name)
	if err != nil {
		return errors.Wrapf(err, errors.InvalidPath, n.Pos, "input name")
	}
	vis := actx.Local
	if n.BoolAttr("global") {
		vis = actx.Global
	}
	scope, err := c.scope.GetOrCreate(p, vis)
	if err != nil {
		return errors.Wrapf(err, errors.VisibilityConflict, n.Pos, "input %q", name)
	}

	v, _, bound := scope.Value()
	if !bound {
		d, err := c.descriptor(n, scope)
		if err != nil {
			return err
		}
		v, err = c.prompt(d)
		if err != nil {
			return err
		}
		if _, err := scope.Bind(v, actx.KindUser); err != nil {
			return errors.Wrapf(err, errors.CodeOf(err), n.Pos, "input %q", name)
		}
	} else {
		c.log().WithField("path", scope.Path()).Debug("input already bound")
		if v, err = c.checkBound(n, scope, v); err != nil {
			return err
		}
	}

	if err := c.validateText(n, v); err != nil {
		return err
	}

	// Descend with the input's scope current, so ~name resolves against
	// the freshly bound value.
	prev := c.scope
	c.scope = scope
	defer func() { c.scope = prev }()

	switch n.Kind {
	case ast.InputBoolean:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		if b {
			return c.walkChildren(n)
		}
		return nil
	case ast.InputEnum:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		return c.walkOptions(n, func(val string) bool { return val == s })
	case ast.InputList:
		elems, err := v.AsList()
		if err != nil {
			return err
		}
		selected := make(map[string]bool, len(elems))
		for _, e := range elems {
			selected[e] = true
		}
		return c.walkOptions(n, func(val string) bool { return selected[val] })
	default:
		return c.walkChildren(n)
	}
}

// checkBound type-checks a pre-existing binding (preset, external, or a
// prior visit) against the input kind.
func (c *controller) checkBound(n *ast.Node, scope *actx.Scope, v value.Value) (value.Value, error) {
	if v.IsEmpty() {
		return v, nil
	}
	v = v.Settle()
	if got, want := v.Kind(), n.Kind.ValueKind(); got != want {
		return value.Null, errors.NewPathf(errors.InputTypeMismatch, n.Pos,
			scope.Path(), "bound value is %s, input wants %s", got, want)
	}
	return v, nil
}

// descriptor assembles the prompt descriptor for an input node. Option
// children are filtered through their conditions relative to the
// selections so far.
func (c *controller) descriptor(n *ast.Node, scope *actx.Scope) (*input.Descriptor, error) {
	d := &input.Descriptor{
		Kind:     inputKind(n.Kind),
		Name:     n.Name(),
		Path:     scope.Path(),
		Label:    n.Attrs["label"],
		Help:     n.Attrs["help"],
		Optional: n.BoolAttr("optional"),
		Default:  value.Null,
		Pos:      n.Pos,
	}
	if raw, ok := n.Raw("default"); ok {
		v, err := c.evalTyped(raw, n.Kind.ValueKind(), n)
		if err != nil {
			return nil, err
		}
		d.Default = v
	}
	if n.Kind == ast.InputEnum || n.Kind == ast.InputList {
		options, err := c.options(n)
		if err != nil {
			return nil, err
		}
		for _, o := range options {
			d.Options = append(d.Options, input.Option{
				Value: o.Attrs["value"],
				Label: o.Attrs["label"],
				Help:  o.Attrs["help"],
			})
		}
	}
	return d, nil
}

// options collects the active option children of an input: conditions
// wrapping an option gate whether it is offered at all.
func (c *controller) options(n *ast.Node) ([]*ast.Node, error) {
	var out []*ast.Node
	for _, child := range n.Children {
		switch child.Kind {
		case ast.Option:
			out = append(out, child)
		case ast.Condition:
			ok, err := child.Expr.EvalCondition(c.resolve)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ExprTypeError, child.Pos,
					"option condition")
			}
			if !ok {
				continue
			}
			for _, inner := range child.Children {
				if inner.Kind == ast.Option {
					out = append(out, inner)
				}
			}
		}
	}
	return out, nil
}

// walkOptions descends into the subtrees of the selected options, in
// declaration order.
func (c *controller) walkOptions(n *ast.Node, selected func(string) bool) error {
	options, err := c.options(n)
	if err != nil {
		return err
	}
	for _, o := range options {
		if !selected(o.Attrs["value"]) {
			continue
		}
		if err := c.walkChildren(o); err != nil {
			return err
		}
	}
	return nil
}

// prompt suspends the walk on the resolver. The resolver may block; it
// must return before the walk continues. Its errors, including
// cancellation, propagate unchanged.
func (c *controller) prompt(d *input.Descriptor) (value.Value, error) {
	sp := c.cfg.Tracer.StartSpan("archetype.prompt",
		opentracing.ChildOf(c.span.Context()))
	sp.SetTag("path", d.Path)
	defer sp.Finish()

	c.log().WithField("path", d.Path).WithField("kind", d.Kind.String()).
		Debug("prompting")
	v, err := c.cfg.Resolver.Resolve(c.ctx, d)
	if err != nil {
		return value.Null, err
	}
	return d.Normalize(v)
}

// validateText applies the regex validations declared under a text input
// to its answer.
func (c *controller) validateText(n *ast.Node, v value.Value) error {
	if n.Kind != ast.InputText || v.IsEmpty() {
		return nil
	}
	s, err := v.AsString()
	if err != nil {
		return err
	}
	for _, child := range n.Children {
		if child.Kind != ast.Validation {
			continue
		}
		for _, rx := range child.Children {
			if rx.Kind != ast.Regex {
				continue
			}
			pattern, err := rx.Value.AsString()
			if err != nil {
				return err
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return errors.Wrapf(err, errors.ParseError, rx.Pos, "validation regex")
			}
			if !re.MatchString(s) {
				return errors.NewPathf(errors.InputTypeMismatch, n.Pos, n.Name(),
					"value %q does not match %q", s, pattern)
			}
		}
	}
	return nil
}
