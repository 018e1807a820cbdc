// Package apperr defines the stable error kinds the API exposes so callers
// can branch on failures programmatically.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation     Kind = "validation"
	Authentication Kind = "authentication"
	Permission     Kind = "permission"
	NotFound       Kind = "not_found"
	Conflict       Kind = "conflict"
	EmptyCart      Kind = "empty_cart"
	Internal       Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err; unclassified errors report Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error kind to the response status used by every handler.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, EmptyCart:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case Permission:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
