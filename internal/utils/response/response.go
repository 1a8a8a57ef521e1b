// Package response is the single boundary between handlers and the wire.
//
// Handlers never touch http.ResponseWriter. They return a Result saying what
// happened (Kind) plus the payload, and Handle turns it into a status code
// and JSON body using the route's Policy. The status codes for failures
// therefore live in one declarative table (see the router package) instead
// of being scattered across handlers.
//
// Every body has the same envelope:
//
//	{ "success": false, "message": "Validation failed", "errors": "studentId is required" }
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Kind classifies the outcome of a handler.
type Kind int

const (
	KindOK Kind = iota
	KindCreated
	KindValidation
	KindNotFound
	KindConflict
	KindUnexpected
)

// Fixed messages shared by every route.
const (
	MessageValidation = "Validation failed"
	MessageUnexpected = "Something is wrong, please try again"
)

// Envelope is the JSON shape of every response.
//
// Errors and Error are both failure details; a route's Policy decides which
// key a validation issue goes under. Error also carries the text of an
// unexpected error.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  string `json:"errors,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is what a handler returns.
type Result struct {
	Kind    Kind
	Message string
	Data    any

	// Issue is the first validation issue (KindValidation only).
	Issue string

	// Err is the cause of a KindUnexpected result.
	Err error

	// Link, when set on a success, is sent as the Link header.
	Link string
}

// OK builds a 200-class success.
func OK(message string, data any) Result {
	return Result{Kind: KindOK, Message: message, Data: data}
}

// Created builds a creation success.
func Created(message string, data any) Result {
	return Result{Kind: KindCreated, Message: message, Data: data}
}

// Invalid builds a validation failure carrying only the first issue.
func Invalid(issue string) Result {
	return Result{Kind: KindValidation, Message: MessageValidation, Issue: issue}
}

// Rejected turns an input error into a validation result when it carries
// issues (validation.Error does), and into an unexpected result otherwise.
func Rejected(err error) Result {
	var issues interface{ First() string }
	if errors.As(err, &issues) {
		return Invalid(issues.First())
	}
	return Unexpected(err)
}

// NotFound builds a lookup failure.
func NotFound(message string) Result {
	return Result{Kind: KindNotFound, Message: message}
}

// Conflict builds a duplicate-key failure.
func Conflict(message string) Result {
	return Result{Kind: KindConflict, Message: message}
}

// Unexpected wraps any other failure.
func Unexpected(err error) Result {
	return Result{Kind: KindUnexpected, Message: MessageUnexpected, Err: err}
}

// WithLink returns r with its Link set.
func (r Result) WithLink(link string) Result {
	r.Link = link
	return r
}

// ErrorKey selects the envelope field for a validation issue.
type ErrorKey int

const (
	KeyErrors ErrorKey = iota // "errors"
	KeyError                  // "error"
)

// Policy maps failure kinds to status codes for one route. Success codes
// are fixed (200 and 201) and so is 409 for conflicts.
type Policy struct {
	Validation int
	NotFound   int
	Unexpected int

	// ValidationKey is where the validation issue is placed in the body.
	ValidationKey ErrorKey
}

// Status returns the HTTP status this policy assigns to k.
func (p Policy) Status(k Kind) int {
	switch k {
	case KindOK:
		return http.StatusOK
	case KindCreated:
		return http.StatusCreated
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return orOK(p.Validation)
	case KindNotFound:
		return orOK(p.NotFound)
	default:
		return orOK(p.Unexpected)
	}
}

func orOK(code int) int {
	if code == 0 {
		return http.StatusOK
	}
	return code
}

// Envelope builds the body for r under this policy.
func (p Policy) Envelope(r Result) Envelope {
	env := Envelope{Message: r.Message}
	switch r.Kind {
	case KindOK, KindCreated:
		env.Success = true
		env.Data = r.Data
	case KindValidation:
		if p.ValidationKey == KeyError {
			env.Error = r.Issue
		} else {
			env.Errors = r.Issue
		}
	case KindUnexpected:
		if r.Err != nil {
			env.Error = r.Err.Error()
		}
	}
	return env
}

// HandlerFunc is the signature every route handler implements.
type HandlerFunc func(r *http.Request) Result

// Handle adapts h to net/http under policy p. A panic inside h becomes an
// Unexpected result, so no failure ever reaches the server itself.
func Handle(p Policy, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := run(h, r)

		if res.Kind == KindUnexpected {
			slog.Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", res.Err))
		}

		if res.Link != "" && (res.Kind == KindOK || res.Kind == KindCreated) {
			w.Header().Set("Link", res.Link)
		}
		_ = WriteJSON(w, p.Status(res.Kind), p.Envelope(res))
	}
}

func run(h HandlerFunc, r *http.Request) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			res = Unexpected(err)
		}
	}()
	return h(r)
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
