// Package diag formats and reports diagnostics: source-location errors
// from the lexer, parser and scope analyzer, and internal errors from
// invariant violations in the compiler or VM.
package diag

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"pl0vm/token"
)

// Error is a source-located diagnostic: lexical, syntactic or
// semantic.
type Error struct {
	Pos     token.Pos
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: line %d, column %d: %s", e.Pos.File, e.Pos.Line, e.Pos.Column, e.Message)
}

// Errorf builds an *Error at pos.
func Errorf(pos token.Pos, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// InternalError signals a compiler or VM invariant violation: an
// unset label read, a double-set label, a malformed AST node reaching
// codegen. These are bugs in this program, not in the input source.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

// Internalf builds an *InternalError.
func Internalf(format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

var errColor = color.New(color.FgRed, color.Bold)

// Report prints err to stderr, colorized when stderr is a terminal.
func Report(err error) {
	errColor.Fprintln(os.Stderr, err.Error())
}

// Fatal reports err and terminates the process with exit code 1,
// matching the "fatal at first diagnostic" policy (spec §7): lexical,
// syntactic, semantic and VM-fault errors are all unrecoverable at the
// point they are detected.
func Fatal(err error) {
	Report(err)
	os.Exit(1)
}
