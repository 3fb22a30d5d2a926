package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("event_id", "event_id is required"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("not authenticated"), http.StatusUnauthorized},
		{"forbidden", Forbidden("user is not a counselor"), http.StatusForbidden},
		{"not found", NotFound("event not found"), http.StatusNotFound},
		{"transient", Transient("query failed", errors.New("conn reset")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("load roster: %w", NotFound("participant not found")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesInfraDetail(t *testing.T) {
	err := Transient("query failed", errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	assert.Equal(t, "Internal Server Error", PublicMessage(err))
	assert.Equal(t, "Internal Server Error", PublicMessage(errors.New("raw")))
	assert.Equal(t, "note not found", PublicMessage(NotFound("note not found")))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", Forbidden("cross-group access"))
	assert.True(t, Is(err, KindForbidden))
	assert.False(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindUnknown))
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Attempts int    `json:"attempts" validate:"gt=0"`
	Secret   string `json:"-" validate:"required"`
}

func TestValidatorErrors(t *testing.T) {
	err := NewValidator().Struct(loginForm{Email: "nope"})

	assert.True(t, Is(err, KindValidation))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	fields, ok := FieldErrors(err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{
		"email":    "email must be a valid email address",
		"attempts": "attempts must be greater than 0",
		"Secret":   "Secret is required",
	}, fields)
	assert.Equal(t, "email must be a valid email address", PublicMessage(err))

	_, ok = FieldErrors(errors.New("plain"))
	assert.False(t, ok)
}
