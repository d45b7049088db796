// Package lerrors provides the structured error type returned by every
// public loader operation.
package lerrors

import (
	"fmt"
	"strings"
)

// Category is one of the four error categories the loader can surface to
// callers.
type Category string

const (
	Program  Category = "ERR_L_PROGRAM"  // malformed metadata or invariant violation
	Link     Category = "ERR_L_LINK"     // missing import/export
	Generic  Category = "ERR_L_GENERIC"  // arity or constraint failure
	Circular Category = "ERR_L_CIRCULAR" // cyclic value-type or constraint dependence
)

// Phase names the pipeline stage in which the error occurred.
type Phase string

const (
	PhaseResolve    Phase = "resolve"    // RefList evaluation / template lookup
	PhaseLayout     Phase = "layout"     // field layout computation
	PhaseWire       Phase = "wire"       // finalizer/initializer/static storage wiring
	PhasePublish    Phase = "publish"    // final checks and publication
	PhaseConstraint Phase = "constraint" // constraint solving
	PhaseNative     Phase = "native"     // AddNativeType validation
)

// Error is the structured error type used throughout the loader.
type Error struct {
	Cause    error
	Category Category
	Phase    Phase
	Detail   string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Category))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches this error's category and phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category && (t.Phase == "" || e.Phase == t.Phase)
}

// Builder provides structured, chained error construction.
type Builder struct {
	err Error
}

// New starts building an error of the given category and phase.
func New(category Category, phase Phase) *Builder {
	return &Builder{err: Error{Category: category, Phase: phase}}
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Cause sets the wrapped underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// NewProgramErr builds an ERR_L_PROGRAM error.
func NewProgramErr(phase Phase, format string, args ...any) *Error {
	return New(Program, phase).Detail(format, args...).Build()
}

// NewLinkErr builds an ERR_L_LINK error.
func NewLinkErr(phase Phase, format string, args ...any) *Error {
	return New(Link, phase).Detail(format, args...).Build()
}

// NewGenericErr builds an ERR_L_GENERIC error.
func NewGenericErr(phase Phase, format string, args ...any) *Error {
	return New(Generic, phase).Detail(format, args...).Build()
}

// NewCircularErr builds an ERR_L_CIRCULAR error.
func NewCircularErr(phase Phase, format string, args ...any) *Error {
	return New(Circular, phase).Detail(format, args...).Build()
}
