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

package ast

// An Action is returned by a visitor's Enter hook to steer the traversal.
type Action uint8

const (
	// Continue descends into the node's children.
	Continue Action = iota
	// SkipChildren proceeds to the next sibling without descending.
	// Exit is still called for the skipped node.
	SkipChildren
	// Stop abandons the traversal entirely.
	Stop
)

// A Visitor's Enter method is invoked for each node encountered by
// WalkVisitor in depth-first pre-order. Exit is invoked symmetrically when
// the node's subtree is done, unless the traversal was stopped.
type Visitor interface {
	Enter(n *Node) Action
	Exit(n *Node)
}

// Walk traverses a subtree in depth-first order: it starts by calling
// before(n); if before returns true it recurses into each child, followed
// by a call of after. Both functions may be nil.
func Walk(n *Node, before func(*Node) bool, after func(*Node)) {
	walk(n, before, after)
}

func walk(n *Node, before func(*Node) bool, after func(*Node)) bool {
	if before != nil && !before(n) {
		return true
	}
	for _, c := range n.Children {
		if !walk(c, before, after) {
			return false
		}
	}
	if after != nil {
		after(n)
	}
	return true
}

// WalkVisitor traverses a subtree with a [Visitor]. Children are visited
// in declaration order.
func WalkVisitor(n *Node, v Visitor) {
	walkVisitor(n, v)
}

func walkVisitor(n *Node, v Visitor) bool {
	switch v.Enter(n) {
	case Stop:
		return false
	case SkipChildren:
		v.Exit(n)
		return true
	}
	for _, c := range n.Children {
		if !walkVisitor(c, v) {
			return false
		}
	}
	v.Exit(n)
	return true
}

// Traverse yields the subtree rooted at n, root included, in depth-first
// pre-order.
func Traverse(n *Node) []*Node {
	var a []*Node
	Walk(n, func(c *Node) bool {
		a = append(a, c)
		return true
	}, nil)
	return a
}
