package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryTemplate  Category = "template"
	CategoryRender    Category = "render"
	CategoryBackend   Category = "backend"
	CategoryPrerender Category = "prerender"
	CategoryPublish   Category = "publish"
	CategoryStore     Category = "store"
	CategoryCLI       Category = "cli"
)

// SiteError is a structured error with the route it concerns and a hint on
// how to fix it.
type SiteError struct {
	// Code is a unique error identifier (e.g., "S200").
	Code string

	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Route is the site path being rendered or written, if any.
	Route string

	// Path is the file involved, if any.
	Path string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Route != "" {
		msg += " (route " + e.Route + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SiteError) Unwrap() error {
	return e.Wrapped
}

// WithRoute records the route the error concerns.
func (e *SiteError) WithRoute(route string) *SiteError {
	e.Route = route
	return e
}

// WithPath records the file the error concerns.
func (e *SiteError) WithPath(path string) *SiteError {
	e.Path = path
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SiteError) WithSuggestion(s string) *SiteError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *SiteError) WithDetail(d string) *SiteError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *SiteError) Wrap(err error) *SiteError {
	e.Wrapped = err
	return e
}

// New creates a SiteError from a registered error code.
func New(code string) *SiteError {
	template, ok := registry[code]
	if !ok {
		return &SiteError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SiteError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new SiteError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SiteError {
	return &SiteError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in a SiteError with code, unless err already carries
// one somewhere in its chain.
func FromError(err error, code string) *SiteError {
	if err == nil {
		return nil
	}
	var se *SiteError
	if errors.As(err, &se) {
		return se
	}
	return New(code).Wrap(err)
}
