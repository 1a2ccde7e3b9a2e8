package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/vango-dev/scopestore/internal/config"
	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/selectexpr"
	"github.com/vango-dev/scopestore/pkg/store"
)

// Category represents the type of error.
type Category string

const (
	CategoryStore      Category = "store"
	CategoryConfig     Category = "config"
	CategoryExpression Category = "expression"
	CategoryCLI        Category = "cli"
)

// Error is a coded error with an explanation and a hint.
type Error struct {
	// Code is a unique error identifier (e.g., "S001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct approach.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion sets the hint.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail sets the explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithExample sets the example.
func (e *Error) WithExample(ex string) *Error {
	e.Example = ex
	return e
}

// Wrap sets the underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates an Error without a code.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in an Error whose code is derived from the sentinel
// it carries. Errors that are already coded are returned as is, and errors
// nothing is known about get the CLI category without a code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}
	if code := codeOf(err); code != "" {
		return New(code).Wrap(err)
	}
	return &Error{Category: CategoryCLI, Message: err.Error()}
}

func codeOf(err error) string {
	var exprErr *selectexpr.Error
	switch {
	case stderrors.Is(err, store.ErrMissingScope):
		return "S001"
	case stderrors.Is(err, container.ErrInvalidPatch):
		return "S002"
	case stderrors.Is(err, container.ErrUncopyable), stderrors.Is(err, container.ErrCyclic):
		return "S003"
	case stderrors.Is(err, container.ErrDisposed):
		return "S004"
	case stderrors.Is(err, store.ErrSelectorType):
		return "S005"
	case stderrors.Is(err, config.ErrInvalid):
		return "C001"
	case stderrors.Is(err, fs.ErrNotExist), stderrors.Is(err, config.ErrUnreadable):
		return "C002"
	case stderrors.As(err, &exprErr),
		stderrors.Is(err, selectexpr.ErrEmptySource),
		stderrors.Is(err, selectexpr.ErrUnknownEngine):
		return "X001"
	}
	return ""
}
