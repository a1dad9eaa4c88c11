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

package plan_test

import (
	"testing"
	"testing/fstest"

	"github.com/go-quicktest/qt"

	"archetype.dev/go/archetype/plan"
)

func TestTransformationApply(t *testing.T) {
	t.Parallel()
	tr, err := plan.NewTransformation("packaged",
		`__pkg__`, `com/example/app`,
		`\.mustache$`, ``)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(tr.Apply("src/__pkg__/Main.java.mustache"),
		"src/com/example/app/Main.java"))

	// Replacements run left to right.
	lr, err := plan.NewTransformation("lr", `a`, `b`, `b`, `c`)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(lr.Apply("a"), "c"))

	// Zero transformations leave a path unchanged.
	qt.Assert(t, qt.Equals(plan.ApplyAll("unchanged/path.txt", nil), "unchanged/path.txt"))

	_, err = plan.NewTransformation("bad", `[`)
	qt.Assert(t, qt.IsNotNil(err))
	_, err = plan.NewTransformation("bad", `[`, ``)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestModelMerge(t *testing.T) {
	t.Parallel()
	m := plan.NewModel()

	// Lists accumulate across merges and sort ascending by order, with
	// declaration order within equal orders.
	l1 := plan.NewList(0)
	l1.Append(plan.NewScalar("b", 50))
	l1.Append(plan.NewScalar("c", 50))
	qt.Assert(t, qt.IsNil(m.Merge("deps", l1)))

	l2 := plan.NewList(0)
	l2.Append(plan.NewScalar("a", 10))
	qt.Assert(t, qt.IsNil(m.Merge("deps", l2)))
	m.Finalize()

	deps := m.Root()["deps"]
	qt.Assert(t, qt.Equals(deps.Kind, plan.ListEntry))
	var got []string
	for _, e := range deps.List {
		got = append(got, e.Scalar)
	}
	qt.Assert(t, qt.DeepEquals(got, []string{"a", "b", "c"}))

	// Scalars resolve by order: the higher order wins.
	qt.Assert(t, qt.IsNil(m.Merge("name", plan.NewScalar("low", 10))))
	qt.Assert(t, qt.IsNil(m.Merge("name", plan.NewScalar("high", 90))))
	qt.Assert(t, qt.IsNil(m.Merge("name", plan.NewScalar("mid", 50))))
	qt.Assert(t, qt.Equals(m.Root()["name"].Scalar, "high"))

	// Maps merge recursively.
	m1 := plan.NewMap(0)
	qt.Assert(t, qt.IsNil(m1.Merge("k1", plan.NewScalar("v1", 0))))
	qt.Assert(t, qt.IsNil(m.Merge("props", m1)))
	m2 := plan.NewMap(0)
	qt.Assert(t, qt.IsNil(m2.Merge("k2", plan.NewScalar("v2", 0))))
	qt.Assert(t, qt.IsNil(m.Merge("props", m2)))
	props := m.Root()["props"]
	qt.Assert(t, qt.Equals(props.Map["k1"].Scalar, "v1"))
	qt.Assert(t, qt.Equals(props.Map["k2"].Scalar, "v2"))

	// Shape conflicts are errors.
	err := m.Merge("deps", plan.NewScalar("x", 0))
	qt.Assert(t, qt.IsNotNil(err))
}

func TestFileSetResolve(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"files/src/Main.java":        {Data: []byte("x")},
		"files/src/util/Util.java":   {Data: []byte("x")},
		"files/src/util/Util_test.go": {Data: []byte("x")},
		"files/README.md":            {Data: []byte("x")},
		"other/ignored.txt":          {Data: []byte("x")},
	}
	set := plan.FileSet{
		Directory: "/files",
		Includes:  []string{"**/*.java", "*.md"},
		Excludes:  []string{"src/util/**"},
	}
	got, err := set.Resolve(fsys)
	qt.Assert(t, qt.IsNil(err))

	var pairs [][2]string
	for _, f := range got {
		pairs = append(pairs, [2]string{f.Source, f.Target})
	}
	qt.Assert(t, qt.DeepEquals(pairs, [][2]string{
		{"files/README.md", "README.md"},
		{"files/src/Main.java", "src/Main.java"},
	}))

	// No includes means everything under the directory.
	all := plan.FileSet{Directory: "files"}
	got, err = all.Resolve(fsys)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(got, 4))

	// Malformed globs are reported.
	bad := plan.FileSet{Directory: "files", Includes: []string{"[`"}}
	_, err = bad.Resolve(fsys)
	qt.Assert(t, qt.IsNotNil(err))
}
