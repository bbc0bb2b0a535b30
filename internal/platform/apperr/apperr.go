// Package apperr defines the error kinds shared by the workflow domain
// packages. Every kind aborts the whole operation it occurred in; none is
// retried automatically.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error.
type Kind int

const (
	// KindConfiguration marks missing or broken configuration, e.g. a
	// branch with no stages. Fatal to the call.
	KindConfiguration Kind = iota
	// KindValidation marks structurally invalid input.
	KindValidation
	// KindUser marks a business-rule violation whose message is surfaced
	// verbatim to the end user.
	KindUser
	// KindState marks an operation attempted on a record in an
	// incompatible state, e.g. a double dispense.
	KindState
)

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Configuration(msg string) error { return &Error{Kind: KindConfiguration, Msg: msg} }
func Validation(msg string) error    { return &Error{Kind: KindValidation, Msg: msg} }
func User(msg string) error          { return &Error{Kind: KindUser, Msg: msg} }
func State(msg string) error         { return &Error{Kind: KindState, Msg: msg} }

// KindOf returns the kind of err and whether err is a classified error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps a classified error to a response status. Unclassified
// errors map to 500.
func HTTPStatus(err error) int {
	switch k, ok := KindOf(err); {
	case !ok:
		return http.StatusInternalServerError
	case k == KindValidation:
		return http.StatusBadRequest
	case k == KindUser:
		return http.StatusUnprocessableEntity
	case k == KindState:
		return http.StatusConflict
	case k == KindConfiguration:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
