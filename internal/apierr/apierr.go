package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindUpstream
)

func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is what handlers render as {"errors":[{"msg":...}]}.
// Msgs are public; Err is the internal cause.
type Error struct {
	Kind Kind
	Msgs []string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.Join(e.Msgs, "; ")
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return msg + ": " + e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("api error (%d)", e.Kind.Status())
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msgs ...string) *Error {
	return &Error{Kind: KindValidation, Msgs: msgs}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Msgs: []string{msg}}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msgs: []string{msg}}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msgs: []string{msg}}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msgs: []string{msg}}
}

func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msgs: []string{msg}, Err: err}
}

// As extracts an *Error from err. Anything else is an unclassified upstream failure.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Upstream("Server error", err)
}

// Msg is one entry of the error envelope.
type Msg struct {
	Msg string `json:"msg"`
}

type Envelope struct {
	Errors []Msg `json:"errors"`
}

// EnvelopeFor renders err. Causes of upstream errors are only exposed when verbose is set.
func EnvelopeFor(err error, verbose bool) (int, Envelope) {
	e := As(err)
	env := Envelope{Errors: make([]Msg, 0, len(e.Msgs)+1)}
	for _, m := range e.Msgs {
		env.Errors = append(env.Errors, Msg{Msg: m})
	}
	if e.Kind == KindUpstream && verbose && e.Err != nil {
		env.Errors = append(env.Errors, Msg{Msg: e.Err.Error()})
	}
	if len(env.Errors) == 0 {
		env.Errors = append(env.Errors, Msg{Msg: http.StatusText(e.Kind.Status())})
	}
	return e.Kind.Status(), env
}
