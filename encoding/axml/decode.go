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

// Package axml reads the XML form of archetype scripts into the engine's
// AST.
//
// The engine core consumes a pre-parsed tree; this package is the
// collaborator that produces it. Element names map one to one onto node
// kinds, with three conveniences: an `if` attribute on any element wraps
// the element in a condition node owning it, `include`/`exclude` children
// collapse into the list payload of their includes/excludes parent, and
// the character data of model-value and regex elements becomes the node's
// literal value.
package axml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"archetype.dev/go/archetype/ast"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// Decoder implements the decoding state for one script file.
type Decoder struct {
	reader   io.Reader
	fileName string
	file     *token.File
	xml      *xml.Decoder
}

// NewDecoder creates a decoder for a stream of script XML.
func NewDecoder(fileName string, r io.Reader) *Decoder {
	return &Decoder{reader: r, fileName: fileName}
}

// Parse is a convenience for decoding one script in full.
func Parse(r io.Reader, fileName string) (*ast.Script, error) {
	return NewDecoder(fileName, r).Decode()
}

// Decode reads the stream and returns the script tree. The returned
// script has no methods table yet; the loader collects it.
func (d *Decoder) Decode() (*ast.Script, error) {
	src, err := io.ReadAll(d.reader)
	if err != nil {
		return nil, errors.Promote(err, errors.IOError, "reading "+d.fileName)
	}
	d.file = token.NewFile(d.fileName, src)
	d.xml = xml.NewDecoder(bytes.NewReader(src))

	start, err := d.nextElement()
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, errors.Newf(errors.ParseError, d.file.Pos(0),
			"%s has no root element", d.fileName)
	}
	if start.Name.Local != "archetype-script" {
		return nil, errors.Newf(errors.ParseError, d.pos(),
			"root element is %q, want archetype-script", start.Name.Local)
	}
	root := ast.NewNode(ast.Script_, d.pos())
	if err := d.children(root, *start); err != nil {
		return nil, err
	}
	return &ast.Script{Root: root, Path: d.fileName}, nil
}

func (d *Decoder) pos() token.Pos {
	return d.file.Pos(int(d.xml.InputOffset()))
}

// nextElement skips to the first StartElement of the stream.
func (d *Decoder) nextElement() (*xml.StartElement, error) {
	for {
		tok, err := d.xml.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ParseError, d.pos(), "malformed XML")
		}
		if st, ok := tok.(xml.StartElement); ok {
			return &st, nil
		}
	}
}

// children decodes the content of start into n until the matching end
// element.
func (d *Decoder) children(n *ast.Node, start xml.StartElement) error {
	var text strings.Builder
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return errors.Wrapf(err, errors.ParseError, d.pos(), "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := d.element(t)
			if err != nil {
				return err
			}
			if child != nil {
				n.Add(child)
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return d.finishText(n, start, text.String())
		}
	}
}

// element decodes one child element. The include/exclude children of an
// includes or excludes element produce no nodes of their own: they fold
// into that element's list payload.
func (d *Decoder) element(start xml.StartElement) (*ast.Node, error) {
	pos := d.pos()
	name := start.Name.Local
	kind := ast.KindOf(name)
	if kind == ast.Invalid || kind == ast.Script_ ||
		kind == ast.Invoke || kind == ast.InvokeDir {
		return nil, errors.Newf(errors.ParseError, pos, "unknown element <%s>", name)
	}

	n := ast.NewNode(kind, pos)
	var cond string
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		if attr.Name.Local == "if" {
			cond = attr.Value
			continue
		}
		n.SetAttr(attr.Name.Local, attr.Value)
	}

	if kind == ast.Includes || kind == ast.Excludes {
		patterns, err := d.patternList(start)
		if err != nil {
			return nil, err
		}
		n.Value = value.NewList(patterns...)
	} else if err := d.children(n, start); err != nil {
		return nil, err
	}

	// An `if` attribute wraps the element in a condition owning it; the
	// subtree never points back.
	if cond != "" {
		c := ast.NewNode(ast.Condition, pos)
		c.SetAttr("expression", cond)
		c.Add(n)
		return c, nil
	}
	return n, nil
}

// patternList collects the include/exclude children of an includes or
// excludes element.
func (d *Decoder) patternList(start xml.StartElement) ([]string, error) {
	want := strings.TrimSuffix(start.Name.Local, "s") // include, exclude
	var patterns []string
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ParseError, d.pos(), "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != want {
				return nil, errors.Newf(errors.ParseError, d.pos(),
					"unexpected element <%s> inside <%s>", t.Name.Local, start.Name.Local)
			}
			pat, err := d.textOnly(t)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, strings.TrimSpace(pat))
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, errors.Newf(errors.ParseError, d.pos(),
					"stray text inside <%s>", start.Name.Local)
			}
		case xml.EndElement:
			return patterns, nil
		}
	}
}

// textOnly reads an element that may contain only character data.
func (d *Decoder) textOnly(start xml.StartElement) (string, error) {
	var b strings.Builder
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return "", errors.Wrapf(err, errors.ParseError, d.pos(), "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return "", errors.Newf(errors.ParseError, d.pos(),
				"unexpected element <%s> inside <%s>", t.Name.Local, start.Name.Local)
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			return b.String(), nil
		}
	}
}

// finishText attaches accumulated character data to the kinds that carry
// a literal payload and rejects stray text anywhere else.
func (d *Decoder) finishText(n *ast.Node, start xml.StartElement, text string) error {
	switch n.Kind {
	case ast.ModelValue, ast.Regex:
		n.Value = value.NewString(strings.TrimSpace(text))
		return nil
	}
	if strings.TrimSpace(text) != "" {
		return errors.Newf(errors.ParseError, n.Pos,
			"element <%s> does not allow text content", start.Name.Local)
	}
	return nil
}
