package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies an SDK error.
type Kind int

const (
	KindInternal Kind = iota
	KindAuth
	KindNetwork
	KindJSON
	KindServer
	KindTimeout
	KindInvalidArgument
	KindPrecondition
	KindAppPermission
	KindOperationIncomplete
	KindCanceled
)

var kindNames = map[Kind]string{
	KindInternal:            "InternalError",
	KindAuth:                "AuthError",
	KindNetwork:             "NetworkError",
	KindJSON:                "JsonError",
	KindServer:              "ServerError",
	KindTimeout:             "TimeoutError",
	KindInvalidArgument:     "InvalidArgumentError",
	KindPrecondition:        "PreconditionError",
	KindAppPermission:       "AppPermissionError",
	KindOperationIncomplete: "OperationIncompleteError",
	KindCanceled:            "Canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// kindError is the comparable sentinel behind ErrAuth and friends.
type kindError Kind

func (k kindError) Error() string { return "ayla: " + Kind(k).String() }

// Sentinels for errors.Is. Any *Error of the matching kind satisfies them.
var (
	ErrInternal            error = kindError(KindInternal)
	ErrAuth                error = kindError(KindAuth)
	ErrNetwork             error = kindError(KindNetwork)
	ErrJSON                error = kindError(KindJSON)
	ErrServer              error = kindError(KindServer)
	ErrTimeout             error = kindError(KindTimeout)
	ErrInvalidArgument     error = kindError(KindInvalidArgument)
	ErrPrecondition        error = kindError(KindPrecondition)
	ErrAppPermission       error = kindError(KindAppPermission)
	ErrOperationIncomplete error = kindError(KindOperationIncomplete)
	ErrCanceled            error = kindError(KindCanceled)
)

// Error is returned by every SDK operation that fails.
type Error struct {
	Kind       Kind
	StatusCode int    // HTTP status for server and auth errors
	Body       []byte // raw response body, if any
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		msg := e.Message
		if msg == "" {
			msg = serverMessage(e.Body)
		}
		return strings.TrimSpace(fmt.Sprintf("Server error: %d %s", e.StatusCode, msg))
	case KindAuth:
		if e.StatusCode != 0 {
			return fmt.Sprintf("AuthError: %d %s", e.StatusCode, e.Message)
		}
	}
	s := e.Kind.String()
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindError)
	return ok && Kind(k) == e.Kind
}

// KindOf returns the kind of err, or KindInternal if it is not an SDK error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument reports a bad caller-supplied value.
func InvalidArgument(format string, args ...any) error {
	return newError(KindInvalidArgument, format, args...)
}

// Precondition reports an operation attempted in the wrong state.
func Precondition(format string, args ...any) error {
	return newError(KindPrecondition, format, args...)
}

// Internal reports an unexpected SDK failure.
func Internal(format string, args ...any) error {
	return newError(KindInternal, format, args...)
}

// AppPermission reports a missing local permission.
func AppPermission(format string, args ...any) error {
	return newError(KindAppPermission, format, args...)
}

// Incomplete reports that a multi-step operation stopped part way.
func Incomplete(err error, format string, args ...any) error {
	e := newError(KindOperationIncomplete, format, args...)
	e.Err = err
	return e
}

// Canceled wraps a cancellation cause.
func Canceled(err error) error {
	return &Error{Kind: KindCanceled, Err: err}
}

// statusError maps a non-2xx response to an SDK error.
func statusError(status int, body []byte) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &Error{Kind: KindAuth, StatusCode: status, Body: body, Message: serverMessage(body)}
	}
	return &Error{Kind: KindServer, StatusCode: status, Body: body}
}

// transportError maps a failed round trip to an SDK error.
func transportError(ctx context.Context, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return Canceled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

func jsonError(body []byte, err error) error {
	return &Error{Kind: KindJSON, Body: body, Message: "unable to decode response", Err: err}
}

// serverMessage extracts the cloud's error text from a response body.
// The services answer with {"error":"..."} or {"errors":{...}}.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Error  any `json:"error"`
		Errors any `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if s, ok := payload.Error.(string); ok {
			return s
		}
		if payload.Errors != nil {
			b, _ := json.Marshal(payload.Errors) //nolint:errcheck // value came from json
			return string(b)
		}
	}
	s := string(body)
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
