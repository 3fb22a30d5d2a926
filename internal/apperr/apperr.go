package apperr

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the application error carried from the domain layer to the handlers.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a missing or malformed input field.
func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Transient wraps an infrastructure failure that was (or may be) retried.
func Transient(msg string, err error) error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Validator
// failures count as validation errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return KindValidation
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus maps err onto the portal's status code taxonomy.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show a client. Transient and unknown
// errors never leak their cause.
func PublicMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldMessage(verrs[0])
		}
		return http.StatusText(http.StatusInternalServerError)
	}
	switch ae.Kind {
	case KindTransient, KindUnknown:
		return http.StatusText(http.StatusInternalServerError)
	}
	if ae.Msg != "" {
		return ae.Msg
	}
	return ae.Kind.String()
}
