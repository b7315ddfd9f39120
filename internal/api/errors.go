package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can render it without inspecting
// transport details.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindInvalidCode
	KindTooManyAttempts
	KindCorruptCredential
	KindNetwork
	KindProtocol
	KindNotFound
	KindConflict
	KindUnauthorized
	KindValidation
)

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	KindInvalidCredentials: "InvalidCredentials",
	KindInvalidCode:        "InvalidCode",
	KindTooManyAttempts:    "TooManyAttempts",
	KindCorruptCredential:  "CorruptCredential",
	KindNetwork:            "NetworkError",
	KindProtocol:           "ProtocolError",
	KindNotFound:           "NotFound",
	KindConflict:           "Conflict",
	KindUnauthorized:       "Unauthorized",
	KindValidation:         "Validation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode}
	ErrTooManyAttempts    = &Error{Kind: KindTooManyAttempts}
	ErrCorruptCredential  = &Error{Kind: KindCorruptCredential}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrProtocol           = &Error{Kind: KindProtocol}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrValidation         = &Error{Kind: KindValidation}
)

// Error is the single error type surfaced by the client core.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns a short user-facing description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindInvalidCredentials:
		return "Email or password is incorrect."
	case KindInvalidCode:
		return "Invalid code. Please try again."
	case KindTooManyAttempts:
		return "Too many attempts. Please wait before trying again."
	case KindCorruptCredential:
		return "The server returned a credential that could not be read. Try again later."
	case KindNetwork:
		return "Unable to reach the server. Check your connection and retry."
	case KindProtocol:
		return "The server sent an unexpected response."
	case KindNotFound:
		return "It no longer exists."
	case KindConflict:
		return "Your change conflicted with another update. The list was refreshed."
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindValidation:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "Invalid input."
	}
	return "Something went wrong."
}
