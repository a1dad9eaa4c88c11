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

// Package validate statically analyzes a script namespace and produces
// diagnostics. The traversal is independent of the controller: every
// branch is visited, no input is ever prompted, and diagnostics are
// returned rather than thrown.
package validate

import (
	"fmt"
	"strings"

	"archetype.dev/go/archetype/ast"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/expr"
	"archetype.dev/go/archetype/load"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// A Code names one diagnostic rule. The set is closed.
type Code string

const (
	PresetUnresolved           Code = "PRESET_UNRESOLVED"
	PresetTypeMismatch         Code = "PRESET_TYPE_MISMATCH"
	ExprUnresolvedVariable     Code = "EXPR_UNRESOLVED_VARIABLE"
	ExprEvalError              Code = "EXPR_EVAL_ERROR"
	InputAlreadyDeclared       Code = "INPUT_ALREADY_DECLARED"
	InputTypeMismatch          Code = "INPUT_TYPE_MISMATCH"
	InputNotInStep             Code = "INPUT_NOT_IN_STEP"
	OptionValueAlreadyDeclared Code = "OPTION_VALUE_ALREADY_DECLARED"
	InputOptionalNoDefault     Code = "INPUT_OPTIONAL_NO_DEFAULT"
	StepDeclaredOptional       Code = "STEP_DECLARED_OPTIONAL"
	StepNotDeclaredOptional    Code = "STEP_NOT_DECLARED_OPTIONAL"
	StepNoInput                Code = "STEP_NO_INPUT"
)

// A Diagnostic is one finding of the validator.
type Diagnostic struct {
	Code    Code
	Path    string // context path the finding concerns, when known
	Pos     token.Pos
	Message string
}

func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("%s: %s: %s", d.Code, d.Path, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// A Config configures a validation pass. The namespace fields mirror
// load.Config; the validator owns its loader so that load-time input
// checks defer to its diagnostics.
type Config struct {
	load.Config
}

// Validate loads the namespace's entry script, traverses every branch,
// and returns the aggregated diagnostics. Only malformed scripts that
// cannot be traversed at all (parse failures, cycles, unknown methods)
// return an error.
func Validate(cfg Config) ([]Diagnostic, error) {
	cfg.Permissive = true
	l, err := load.NewLoader(cfg.Config)
	if err != nil {
		return nil, err
	}
	entry, err := l.Entry()
	if err != nil {
		return nil, err
	}
	v := &validator{
		loader: l,
		inputs: make(map[string]*inputDecl),
		seen:   make(map[*ast.Node]bool),
	}
	if err := v.walkScript(entry, nil, entry.Dir(), ""); err != nil {
		return nil, err
	}
	v.check()
	return v.diags, nil
}

type inputDecl struct {
	kind ast.Kind
	node *ast.Node
}

type presetDecl struct {
	path string
	kind ast.Kind
	node *ast.Node
}

type validator struct {
	loader *load.Loader
	diags  []Diagnostic

	inputs    map[string]*inputDecl
	presets   []presetDecl
	variables []presetDecl
	exprs     []exprUse
	seen      map[*ast.Node]bool // active method bodies, against recursion
}

type exprUse struct {
	expr   *expr.Expr
	prefix string
	pos    token.Pos
}

func (v *validator) report(code Code, path string, pos token.Pos, format string, args ...interface{}) {
	v.diags = append(v.diags, Diagnostic{
		Code:    code,
		Path:    path,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// walkScript traverses one script with the invocation stack and prefix
// context of its call site.
func (v *validator) walkScript(s *ast.Script, stack []string, dir, prefix string) error {
	stack = append(stack, s.Path)
	return v.walk(s.Root, &walkState{script: s, stack: stack, dir: dir, prefix: prefix})
}

type walkState struct {
	script *ast.Script
	stack  []string
	dir    string
	prefix string
	inStep bool
}

func (v *validator) walk(n *ast.Node, st *walkState) error {
	for _, child := range n.Children {
		if err := v.node(child, st); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) node(n *ast.Node, st *walkState) error {
	switch n.Kind {
	case ast.Condition:
		v.exprs = append(v.exprs, exprUse{expr: n.Expr, prefix: st.prefix, pos: n.Pos})
		return v.walk(n, st)

	case ast.Step:
		v.checkStep(n)
		sub := *st
		sub.inStep = true
		return v.walk(n, &sub)

	case ast.InputBoolean, ast.InputText, ast.InputEnum, ast.InputList:
		return v.input(n, st)

	case ast.PresetBoolean, ast.PresetText, ast.PresetEnum, ast.PresetList:
		v.presets = append(v.presets, presetDecl{
			path: joinPath(st.prefix, n.Attrs["path"]), kind: n.Kind, node: n,
		})
		return nil

	case ast.VariableBoolean, ast.VariableText, ast.VariableEnum, ast.VariableList:
		v.variables = append(v.variables, presetDecl{
			path: joinPath(st.prefix, n.Attrs["path"]), kind: n.Kind, node: n,
		})
		return nil

	case ast.Source, ast.Exec:
		link, err := v.loader.Invoke(st.stack, st.dir, n)
		if err != nil {
			return err
		}
		dir := st.dir
		if link.Kind == ast.InvokeDir {
			dir = link.Target.Dir()
		}
		return v.walkScript(link.Target, st.stack, dir, st.prefix)

	case ast.Call:
		m, err := st.script.Method(n.Attrs["method"], n.Pos)
		if err != nil {
			return err
		}
		if v.seen[m] {
			return nil
		}
		v.seen[m] = true
		defer delete(v.seen, m)
		return v.walk(m, st)

	case ast.Method:
		// Visited through call sites.
		return nil

	default:
		return v.walk(n, st)
	}
}

func (v *validator) input(n *ast.Node, st *walkState) error {
	name := n.Name()
	abs := joinPath(st.prefix, name)
	if !st.inStep {
		v.report(InputNotInStep, abs, n.Pos, "input is not enclosed in a step")
	}
	if n.BoolAttr("optional") && !n.Has("default") {
		v.report(InputOptionalNoDefault, abs, n.Pos,
			"optional input declares no default")
	}
	if raw, ok := n.Raw("default"); ok && !expr.IsInterpolated(raw) {
		if _, err := value.Parse(n.Kind.ValueKind(), raw); err != nil {
			v.report(InputTypeMismatch, abs, n.Pos,
				"default %q does not parse as %s", raw, n.Kind.ValueKind())
		}
	}
	if prev, ok := v.inputs[abs]; ok {
		if prev.kind.ValueKind() != n.Kind.ValueKind() {
			v.report(InputAlreadyDeclared, abs, n.Pos,
				"input is already declared as %s", prev.kind)
		}
	} else {
		v.inputs[abs] = &inputDecl{kind: n.Kind, node: n}
	}

	if n.Kind == ast.InputEnum || n.Kind == ast.InputList {
		seen := make(map[string]bool)
		for _, o := range optionNodes(n) {
			val := o.Attrs["value"]
			if seen[val] {
				v.report(OptionValueAlreadyDeclared, abs, o.Pos,
					"option value %q is already declared", val)
			}
			seen[val] = true
		}
	}

	sub := *st
	sub.prefix = abs
	return v.walk(n, &sub)
}

// optionNodes returns the option children of an input, looking through
// condition wrappers.
func optionNodes(n *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, child := range n.Children {
		switch child.Kind {
		case ast.Option:
			out = append(out, child)
		case ast.Condition:
			for _, inner := range child.Children {
				if inner.Kind == ast.Option {
					out = append(out, inner)
				}
			}
		}
	}
	return out
}

// checkStep verifies the optionality contract of one step: an optional
// step carries only optional inputs, a non-optional step at least one
// non-optional input, and every step at least one input.
func (v *validator) checkStep(step *ast.Node) {
	var inputs []*ast.Node
	ast.Walk(step, func(n *ast.Node) bool {
		if n.Kind.IsInput() {
			inputs = append(inputs, n)
		}
		return true
	}, nil)
	name := step.Name()
	if len(inputs) == 0 {
		v.report(StepNoInput, name, step.Pos, "step declares no input")
		return
	}
	optional := 0
	for _, in := range inputs {
		if in.BoolAttr("optional") {
			optional++
		}
	}
	if step.BoolAttr("optional") && optional < len(inputs) {
		v.report(StepDeclaredOptional, name, step.Pos,
			"optional step contains non-optional inputs")
	}
	if !step.BoolAttr("optional") && optional == len(inputs) {
		v.report(StepNotDeclaredOptional, name, step.Pos,
			"step with only optional inputs must be declared optional")
	}
}

// check runs the whole-namespace rules once traversal is complete.
func (v *validator) check() {
	for _, p := range v.presets {
		decl := v.lookupInput(p.path)
		if decl == nil {
			v.report(PresetUnresolved, p.path, p.node.Pos,
				"preset targets a path no input declares")
			continue
		}
		if decl.kind.ValueKind() != p.kind.ValueKind() {
			v.report(PresetTypeMismatch, p.path, p.node.Pos,
				"preset is %s, input wants %s", p.kind.ValueKind(), decl.kind.ValueKind())
		}
	}
	env := v.kindEnv()
	for _, use := range v.exprs {
		if err := use.expr.Check(env); err != nil {
			var unresolved *expr.UnresolvedError
			if errors.As(err, &unresolved) {
				v.report(ExprUnresolvedVariable, unresolved.Name, use.pos,
					"expression references an undeclared variable")
				continue
			}
			v.report(ExprEvalError, "", use.pos, "%v", err)
		}
	}
}

// lookupInput finds a declared input by absolute path, or by unique
// suffix to approximate the global lift.
func (v *validator) lookupInput(path string) *inputDecl {
	if d, ok := v.inputs[path]; ok {
		return d
	}
	var found *inputDecl
	for abs, d := range v.inputs {
		if strings.HasSuffix(abs, "."+path) {
			if found != nil {
				return nil
			}
			found = d
		}
	}
	return found
}

// kindEnv is the static environment expressions type-check over: the
// union of declared inputs, presets, and variables.
func (v *validator) kindEnv() expr.KindEnv {
	kinds := make(map[string]value.Kind)
	for abs, d := range v.inputs {
		kinds[abs] = d.kind.ValueKind()
	}
	for _, p := range v.presets {
		kinds[p.path] = p.kind.ValueKind()
	}
	for _, p := range v.variables {
		kinds[p.path] = p.kind.ValueKind()
	}
	return func(name string) (value.Kind, bool) {
		name = strings.TrimPrefix(name, "~")
		if k, ok := kinds[name]; ok {
			return k, true
		}
		// Approximate the global lift: a unique suffix match resolves.
		var found value.Kind
		matches := 0
		for abs, k := range kinds {
			if strings.HasSuffix(abs, "."+name) || abs == name {
				found = k
				matches++
			}
		}
		if matches == 1 {
			return found, true
		}
		return value.NullKind, false
	}
}

func joinPath(prefix, path string) string {
	path = strings.TrimPrefix(path, "~")
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}
