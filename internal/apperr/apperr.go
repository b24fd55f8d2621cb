// Package apperr carries the error kinds that callers branch on when they turn a
// failure into a response.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindStorage
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindAuth:
		return "UNAUTHORIZED"
	case KindStorage:
		return "STORAGE"
	case KindUpstream:
		return "UPSTREAM"
	default:
		return "INTERNAL"
	}
}

func (k Kind) message() string {
	switch k {
	case KindStorage:
		return "storage unavailable"
	case KindUpstream:
		return "identity provider unavailable"
	default:
		return "internal error"
	}
}

// Error is a classified failure of operation Op.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Error is the client-facing message. Storage and upstream causes stay out of it;
// log Err to see them.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.message()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Extensions is read by the GraphQL layer and surfaces the kind to clients.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Kind.String()}
}

// Validation reports malformed or missing input.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Auth reports a rejected identity or credential.
func Auth(op, msg string) error {
	return &Error{Kind: KindAuth, Op: op, Msg: msg}
}

// Storage wraps a store failure.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// Upstream wraps a failure talking to a remote dependency.
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

// Cause returns the underlying error of the first *Error in err's chain, or err
// itself when there is none.
func Cause(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps err to the response status the API layer should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
