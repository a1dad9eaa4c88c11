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

// Package errors defines shared types for handling archetype engine errors.
//
// The pivotal error type is the interface type Error, which couples a
// message with an error code and, where known, the position of the script
// node that produced it. The information available in such errors can be
// most easily retrieved using the CodeOf, Positions, and Print functions.
package errors

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"archetype.dev/go/archetype/token"
)

// A Code classifies an engine error. The set is closed; embedders map codes
// to their own exit codes or user-facing categories.
type Code string

const (
	// Script errors. Always fatal to a run.
	ParseError         Code = "ParseError"
	UnknownMethod      Code = "UnknownMethod"
	CycleError         Code = "CycleError"
	InvalidPath        Code = "InvalidPath"
	VisibilityConflict Code = "VisibilityConflict"
	ReadOnly           Code = "ReadOnly"
	ExprFormatError    Code = "ExprFormatError"
	ExprTypeError      Code = "ExprTypeError"

	// Value errors. Fatal within an operation; callers may catch.
	ValueTypeError  Code = "ValueTypeError"
	ValueParseError Code = "ValueParseError"

	// User-interaction errors. Surfaced verbatim.
	InputTypeMismatch Code = "InputTypeMismatch"
	Cancelled         Code = "Cancelled"

	// IOError covers failures of the underlying file namespace.
	IOError Code = "IOError"
)

// ErrCancelled is the sentinel returned by input resolvers to abort a run.
// It carries the Cancelled code and matches with [Is].
var ErrCancelled = Newf(Cancelled, token.NoPos, "cancelled")

// New is a convenience wrapper for [errors.New] in the core library.
// It does not return an engine Error.
func New(msg string) error {
	return errors.New(msg)
}

// Unwrap returns the result of calling the Unwrap method on err, if err
// implements Unwrap. Otherwise, Unwrap returns nil.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Is reports whether any error in err's chain matches target. Two engine
// errors match if they share a code.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches the type to which
// target points, and if so, sets the target to its value and returns true.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// A Message implements the error interface and holds the unformatted
// message so it can be rendered later.
type Message struct {
	format string
	args   []interface{}
}

// NewMessagef creates an error message for human consumption.
func NewMessagef(format string, args ...interface{}) Message {
	if false {
		// Let go vet know that we're expecting printf-like arguments.
		_ = fmt.Sprintf(format, args...)
	}
	return Message{format: format, args: args}
}

// Msg returns a printf-style format string and its arguments.
func (m *Message) Msg() (format string, args []interface{}) {
	return m.format, m.args
}

func (m *Message) Error() string {
	return fmt.Sprintf(m.format, m.args...)
}

// Error is the common engine error.
type Error interface {
	// Code returns the error classification.
	Code() Code

	// Position returns the position of the script node an error is
	// associated with, or [token.NoPos] when no node is known.
	Position() token.Pos

	// Error reports the error message without position information.
	Error() string

	// Path returns the dotted context path associated with the error, or ""
	// if the error is not associated with a scope.
	Path() string

	// Msg returns the unformatted error message and its arguments.
	Msg() (format string, args []interface{})
}

// CodeOf returns the code of an Error if err is of that type, and "" otherwise.
func CodeOf(err error) Code {
	if e := Error(nil); errors.As(err, &e) {
		return e.Code()
	}
	return ""
}

// Path returns the context path of an Error if err is of that type.
func Path(err error) string {
	if e := Error(nil); errors.As(err, &e) {
		return e.Path()
	}
	return ""
}

// Positions returns all positions returned by an error, with duplicates
// removed.
func Positions(err error) []token.Pos {
	var a []token.Pos
	for _, e := range Errors(err) {
		if pos := e.Position(); pos.IsValid() && !slices.Contains(a, pos) {
			a = append(a, pos)
		}
	}
	return a
}

// Newf creates an Error with the associated code, position, and message.
func Newf(code Code, p token.Pos, format string, args ...interface{}) Error {
	return &posError{
		code:    code,
		pos:     p,
		Message: NewMessagef(format, args...),
	}
}

// NewPathf creates an Error additionally associated with a context path.
func NewPathf(code Code, p token.Pos, path string, format string, args ...interface{}) Error {
	return &posError{
		code:    code,
		pos:     p,
		path:    path,
		Message: NewMessagef(format, args...),
	}
}

// Wrapf creates an Error with the associated code, position, and message.
// The provided error is added for inspection context.
func Wrapf(err error, code Code, p token.Pos, format string, args ...interface{}) Error {
	pErr := &posError{
		code:    code,
		pos:     p,
		Message: NewMessagef(format, args...),
	}
	return Wrap(pErr, err)
}

// Wrap creates a new error where child is a subordinate error of parent.
func Wrap(parent Error, child error) Error {
	if child == nil {
		return parent
	}
	return &wrapped{parent, child}
}

// Promote converts a regular Go error to an Error with the given code if it
// isn't already an engine error.
func Promote(err error, code Code, msg string) Error {
	switch x := err.(type) {
	case Error:
		return x
	default:
		return Wrapf(err, code, token.NoPos, "%s", msg)
	}
}

type wrapped struct {
	main Error
	wrap error
}

// Error implements the error interface.
func (e *wrapped) Error() string {
	switch msg := e.main.Error(); {
	case e.wrap == nil:
		return msg
	case msg == "":
		return e.wrap.Error()
	default:
		return fmt.Sprintf("%s: %s", msg, e.wrap)
	}
}

func (e *wrapped) Is(target error) bool {
	return Is(e.main, target)
}

func (e *wrapped) As(target interface{}) bool {
	return As(e.main, target)
}

func (e *wrapped) Code() Code { return e.main.Code() }

func (e *wrapped) Msg() (format string, args []interface{}) {
	return e.main.Msg()
}

func (e *wrapped) Path() string {
	if p := e.main.Path(); p != "" {
		return p
	}
	return Path(e.wrap)
}

func (e *wrapped) Position() token.Pos {
	if p := e.main.Position(); p != token.NoPos {
		return p
	}
	if wrap, ok := e.wrap.(Error); ok {
		return wrap.Position()
	}
	return token.NoPos
}

func (e *wrapped) Unwrap() error { return e.wrap }

var _ Error = &posError{}

type posError struct {
	code Code
	pos  token.Pos
	path string
	Message
}

func (e *posError) Code() Code          { return e.code }
func (e *posError) Path() string        { return e.path }
func (e *posError) Position() token.Pos { return e.pos }

// Two posErrors match if they share a code, so that sentinel errors such as
// ErrCancelled can be tested with [Is].
func (e *posError) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code() == e.code
}

// Append combines two errors, flattening lists as necessary.
func Append(a, b Error) Error {
	switch x := a.(type) {
	case nil:
		return b
	case list:
		return appendToList(x, b)
	}
	// Preserve order of errors.
	return appendToList(list{a}, b)
}

// Errors reports the individual errors associated with an error, which is
// the error itself if there is only one or, if the underlying type is a
// list, its individual elements. If the given error is not an Error, it
// will be promoted to one with an empty code.
func Errors(err error) []Error {
	if err == nil {
		return nil
	}
	var listErr list
	var errorErr Error
	switch {
	case As(err, &listErr):
		return listErr
	case As(err, &errorErr):
		return []Error{errorErr}
	default:
		return []Error{Promote(err, "", "")}
	}
}

func appendToList(a list, err Error) list {
	switch x := err.(type) {
	case nil:
		return a
	case list:
		if len(a) == 0 {
			return x
		}
		for _, e := range x {
			a = appendToList(a, e)
		}
		return a
	default:
		for _, e := range a {
			if e == err {
				return a
			}
		}
		return append(a, err)
	}
}

// list is a list of Errors.
// The zero value for a list is an empty list ready to use.
type list []Error

func (p list) Is(target error) bool {
	for _, e := range p {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

func (p list) As(target interface{}) bool {
	for _, e := range p {
		if errors.As(e, target) {
			return true
		}
	}
	return false
}

// Add adds an Error to a list.
func (p *list) Add(err Error) {
	*p = appendToList(*p, err)
}

// Sort sorts a list. Entries are ordered by position, then path, then
// message.
func (p list) Sort() {
	slices.SortFunc(p, func(a, b Error) int {
		if c := a.Position().Compare(b.Position()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Path(), b.Path()); c != 0 {
			return c
		}
		return cmp.Compare(a.Error(), b.Error())
	})
}

// A list implements the error interface.
func (p list) Error() string {
	format, args := p.Msg()
	return fmt.Sprintf(format, args...)
}

// Msg reports the unformatted error message for the first error, if any.
func (p list) Msg() (format string, args []interface{}) {
	switch len(p) {
	case 0:
		return "no errors", nil
	case 1:
		return p[0].Msg()
	}
	return "%s (and %d more errors)", []interface{}{p[0], len(p) - 1}
}

// Code reports the code of the first error, if any.
func (p list) Code() Code {
	if len(p) == 0 {
		return ""
	}
	return p[0].Code()
}

// Position reports the primary position for the first error, if any.
func (p list) Position() token.Pos {
	if len(p) == 0 {
		return token.NoPos
	}
	return p[0].Position()
}

// Path reports the context path of the first error, if any.
func (p list) Path() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Path()
}

// Err returns an error equivalent to this error list.
// If the list is empty, Err returns nil.
func (p list) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

// Print is a utility function that prints a list of errors to w, one error
// per line, if the err parameter is a list. Otherwise it prints the err
// string.
func Print(w io.Writer, err error) {
	for _, e := range Errors(err) {
		printError(w, e)
	}
}

// Details is a convenience wrapper for Print to return the error text as a
// string.
func Details(err error) string {
	var b strings.Builder
	Print(&b, err)
	return b.String()
}

func printError(w io.Writer, err Error) {
	if err == nil {
		return
	}
	if path := err.Path(); path != "" {
		fmt.Fprintf(w, "%s: ", path)
	}
	fmt.Fprintf(w, "%s", err.Error())
	if code := err.Code(); code != "" {
		fmt.Fprintf(w, " (%s)", code)
	}
	positions := Positions(err)
	if len(positions) == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, ":")
	for _, p := range positions {
		fmt.Fprintf(w, "    %v\n", p.Position())
	}
}
