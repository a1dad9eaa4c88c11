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

// Package token defines positions within archetype script sources.
package token

import (
	"cmp"
	"fmt"
	"sort"
)

// Position describes an arbitrary and printable source position within a
// script file, including offset, line, and column location.
//
// A Position is valid if the line number is > 0.
type Position struct {
	Filename string // filename, if any
	Offset   int    // offset, starting at 0
	Line     int    // line number, starting at 1
	Column   int    // column number, starting at 1 (byte count)
}

// IsValid reports whether the position is valid.
func (pos *Position) IsValid() bool { return pos.Line > 0 }

// String returns a human-readable form of a position in one of several forms:
//
//	file:line:column    valid position with file name
//	line:column         valid position without file name
//	file                invalid position with file name
//	-                   invalid position without file name
func (pos Position) String() string {
	s := pos.Filename
	if pos.IsValid() {
		if s != "" {
			s += ":"
		}
		s += fmt.Sprintf("%d:%d", pos.Line, pos.Column)
	}
	if s == "" {
		s = "-"
	}
	return s
}

// Pos is a compact encoding of a source position. Use [Pos.Position] to
// obtain the printable form.
type Pos struct {
	file   *File
	offset int
}

// NoPos is the zero value for [Pos]; there is no file and line information
// associated with it, and [Pos.IsValid] is false.
var NoPos = Pos{}

// IsValid reports whether the position carries file information.
func (p Pos) IsValid() bool { return p.file != nil }

// File returns the file that contains the position p, or nil if there is no
// such file (for instance for p == [NoPos]).
func (p Pos) File() *File { return p.file }

// Offset returns the byte offset of p within its file.
func (p Pos) Offset() int { return p.offset }

// Line returns the position's line number, starting at 1.
func (p Pos) Line() int { return p.Position().Line }

// Column returns the position's column number counting in bytes, starting
// at 1.
func (p Pos) Column() int { return p.Position().Column }

// Filename returns the name of the file that this position belongs to.
func (p Pos) Filename() string {
	if p.file == nil {
		return ""
	}
	return p.file.name
}

// Position unpacks the position information into a flat struct.
func (p Pos) Position() Position {
	if p.file == nil {
		return Position{}
	}
	return p.file.position(p.offset)
}

// String returns a human-readable form of a printable position.
func (p Pos) String() string { return p.Position().String() }

// Compare returns an integer comparing two positions. The result will be 0
// if p == p2, -1 if p < p2, and +1 if p > p2. [NoPos] is always larger than
// any valid position.
func (p Pos) Compare(p2 Pos) int {
	if p == p2 {
		return 0
	} else if p == NoPos {
		return +1
	} else if p2 == NoPos {
		return -1
	}
	if c := cmp.Compare(p.Filename(), p2.Filename()); c != 0 {
		return c
	}
	return cmp.Compare(p.offset, p2.offset)
}

// A File tracks the line structure of a single script source so that byte
// offsets can be rendered as line:column pairs.
type File struct {
	name  string
	size  int
	lines []int // offsets of the first byte of each line; lines[0] == 0
}

// NewFile creates a File for the given name and source contents.
func NewFile(name string, src []byte) *File {
	lines := []int{0}
	for i, b := range src {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &File{name: name, size: len(src), lines: lines}
}

// Name returns the file name registered with NewFile.
func (f *File) Name() string { return f.name }

// Size returns the size of the file registered with NewFile.
func (f *File) Size() int { return f.size }

// Pos returns the Pos for the given byte offset. Offsets outside the file
// are clamped to its bounds.
func (f *File) Pos(offset int) Pos {
	if offset < 0 {
		offset = 0
	}
	if offset > f.size {
		offset = f.size
	}
	return Pos{file: f, offset: offset}
}

func (f *File) position(offset int) Position {
	i := sort.Search(len(f.lines), func(i int) bool {
		return f.lines[i] > offset
	}) - 1
	return Position{
		Filename: f.name,
		Offset:   offset,
		Line:     i + 1,
		Column:   offset - f.lines[i] + 1,
	}
}
