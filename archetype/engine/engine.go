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

// Package engine drives archetype runs: a single-threaded cooperative
// walk over the loaded scripts that applies presets and variables,
// prompts for inputs through the configured resolver, gates subtrees on
// conditions, and buffers the output plan.
package engine

import (
	stdcontext "context"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"archetype.dev/go/archetype/ast"
	actx "archetype.dev/go/archetype/context"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/plan"
	"archetype.dev/go/archetype/value"
)

// Run executes the namespace's entry script to completion and returns
// the finalized context and output plan. Resolver errors, including
// cancellation, propagate unchanged; script errors abort the run with
// the offending node's position.
func Run(ctx stdcontext.Context, cfg Config) (*Result, error) {
	if err := cfg.complete(); err != nil {
		return nil, err
	}
	span := cfg.Tracer.StartSpan("archetype.run")
	defer span.Finish()

	c := &controller{
		ctx:             ctx,
		cfg:             &cfg,
		span:            span,
		context:         actx.New(),
		plan:            plan.New(),
		transformations: make(map[string]*plan.Transformation),
	}
	c.scope = c.context.Root()

	for path, v := range cfg.External {
		if err := c.context.Put(path, v, actx.KindExternal); err != nil {
			return nil, err
		}
	}

	entry, err := cfg.Loader.Load(cfg.Entry)
	if err != nil {
		return nil, err
	}
	c.frames = append(c.frames, frame{script: entry, dir: entry.Dir()})
	if err := c.walkChildren(entry.Root); err != nil {
		return nil, err
	}
	c.plan.Model.Finalize()
	return &Result{Context: c.context, Plan: c.plan}, nil
}

// A frame tracks one active script invocation: the script whose methods
// and relative paths are in effect, and the directory nested source and
// output paths resolve against.
type frame struct {
	script *ast.Script
	dir    string
}

type controller struct {
	ctx             stdcontext.Context
	cfg             *Config
	span            opentracing.Span
	context         *actx.Context
	plan            *plan.Plan
	scope           *actx.Scope
	frames          []frame
	transformations map[string]*plan.Transformation
}

func (c *controller) script() *ast.Script { return c.frames[len(c.frames)-1].script }
func (c *controller) dir() string         { return c.frames[len(c.frames)-1].dir }

func (c *controller) stack() []string {
	paths := make([]string, len(c.frames))
	for i, f := range c.frames {
		paths[i] = f.script.Path
	}
	return paths
}

func (c *controller) log() logrus.FieldLogger {
	return c.cfg.Logger.WithField("script", c.script().Path)
}

// resolve is the expression resolver over the current scope. Ambiguous
// global matches read as unresolved here; the demand site reports them.
func (c *controller) resolve(name string) (value.Value, bool) {
	p, err := actx.ParsePath(name)
	if err != nil {
		return value.Null, false
	}
	v, ok, err := c.scope.GetValue(p)
	if err != nil {
		c.log().WithField("path", name).WithError(err).Warn("ambiguous variable")
		return value.Null, false
	}
	return v, ok
}

// walkChildren descends into every child of n in declaration order.
func (c *controller) walkChildren(n *ast.Node) error {
	for _, child := range n.Children {
		if err := c.walkNode(child); err != nil {
			return err
		}
	}
	return nil
}

func (c *controller) walkNode(n *ast.Node) error {
	if err := c.ctx.Err(); err != nil {
		return errors.Wrapf(err, errors.Cancelled, n.Pos, "run cancelled")
	}
	switch n.Kind {
	case ast.Condition:
		ok, err := n.Expr.EvalCondition(c.resolve)
		if err != nil {
			return errors.Wrapf(err, errors.ExprTypeError, n.Pos, "condition")
		}
		if !ok {
			c.log().WithField("condition", n.Expr.Text()).Debug("skipping subtree")
			return nil
		}
		return c.walkChildren(n)

	case ast.Step, ast.Inputs, ast.Presets, ast.Variables, ast.Output,
		ast.Validations:
		return c.walkChildren(n)

	case ast.PresetBoolean, ast.PresetText, ast.PresetEnum, ast.PresetList:
		return c.applyBinding(n, actx.KindPreset)

	case ast.VariableBoolean, ast.VariableText, ast.VariableEnum, ast.VariableList:
		return c.applyBinding(n, actx.KindVariable)

	case ast.InputBoolean, ast.InputText, ast.InputEnum, ast.InputList:
		return c.walkInput(n)

	case ast.Source, ast.Exec:
		link, err := c.cfg.Loader.Invoke(c.stack(), c.dir(), n)
		if err != nil {
			return err
		}
		return c.walkNode(link)

	case ast.Invoke, ast.InvokeDir:
		return c.walkInvocation(n)

	case ast.Call:
		name := n.Attrs["method"]
		m, err := c.script().Method(name, n.Pos)
		if err != nil {
			return err
		}
		c.log().WithField("method", name).Debug("calling method")
		return c.walkChildren(m)

	case ast.Method:
		// Walked only through its call sites.
		return nil

	case ast.Transformation:
		return c.declareTransformation(n)

	case ast.File:
		return c.emitFile(n)

	case ast.Template:
		return c.emitTemplate(n)

	case ast.Files, ast.Templates:
		return c.emitFileSet(n)

	case ast.Model:
		return c.mergeModel(n)

	default:
		// Option subtrees are entered through their input; anything else
		// without run semantics is inert.
		return nil
	}
}

// walkInvocation pushes the invocation frame: a source link keeps the
// caller's directory, an exec link re-roots to the callee's.
func (c *controller) walkInvocation(n *ast.Node) error {
	dir := c.dir()
	if n.Kind == ast.InvokeDir {
		dir = n.Target.Dir()
	}
	sp := c.cfg.Tracer.StartSpan("archetype.invoke",
		opentracing.ChildOf(c.span.Context()))
	sp.SetTag("script", n.Target.Path)
	defer sp.Finish()

	c.frames = append(c.frames, frame{script: n.Target, dir: dir})
	defer func() { c.frames = c.frames[:len(c.frames)-1] }()
	return c.walkChildren(n.Target.Root)
}

// applyBinding applies one preset or variable declaration. A declaration
// without a value is treated as absent: no write occurs.
func (c *controller) applyBinding(n *ast.Node, kind actx.ValueKind) error {
	raw, ok := n.Raw("value")
	if !ok {
		return nil
	}
	p, err := actx.ParsePath(n.Attrs["path"])
	if err != nil {
		return errors.Wrapf(err, errors.InvalidPath, n.Pos, "%s", n.Kind)
	}
	v, err := c.evalTyped(raw, n.Kind.ValueKind(), n)
	if err != nil {
		return err
	}
	if _, err := c.scope.PutValue(p, v, kind); err != nil {
		return errors.Wrapf(err, errors.CodeOf(err), n.Pos, "%s %s", n.Kind, p)
	}
	c.log().WithField("path", p.String()).WithField("kind", kind.String()).
		Debug("bound value")
	return nil
}

// evalTyped interpolates a raw attribute string and coerces the result to
// the wanted value kind.
func (c *controller) evalTyped(raw string, want value.Kind, n *ast.Node) (value.Value, error) {
	se, err := c.cfg.Loader.InternString(raw)
	if err != nil {
		return value.Null, errors.Wrapf(err, errors.ExprFormatError, n.Pos, "%s", n.Kind)
	}
	v, err := se.Eval(c.resolve)
	if err != nil {
		return value.Null, errors.Wrapf(err, errors.ExprTypeError, n.Pos, "%s", n.Kind)
	}
	switch {
	case v.Kind() == want:
		return v, nil
	case want == value.StringKind:
		return value.NewString(v.Format()), nil
	case v.Kind() == value.StringKind || v.Kind() == value.DynamicKind:
		parsed, err := value.Parse(want, v.Format())
		if err != nil {
			return value.Null, errors.Wrapf(err, errors.ValueParseError, n.Pos, "%s", n.Kind)
		}
		return parsed, nil
	}
	return value.Null, errors.Newf(errors.ValueTypeError, n.Pos,
		"%s yields %s, want %s", n.Kind, v.Kind(), want)
}

// evalString interpolates a raw attribute string into its string form.
func (c *controller) evalString(raw string, n *ast.Node) (string, error) {
	v, err := c.evalTyped(raw, value.StringKind, n)
	if err != nil {
		return "", err
	}
	return v.Format(), nil
}
