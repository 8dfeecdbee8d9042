package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := ValidationError("name must not be empty")
	assert.Equal(t, "validation: name must not be empty", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := InternalError("query failed", cause)
	assert.Equal(t, "internal: query failed: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ValidationError("x").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFoundError("x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, InternalError("x", nil).HTTPStatus())
}

func TestWithContext(t *testing.T) {
	err := NotFoundError("user not found").WithContext("user_id", 42)
	assert.Equal(t, 42, err.Context["user_id"])

	resp := err.ToResponse()
	assert.Equal(t, "user not found", resp.Error)
	assert.Equal(t, TypeNotFound, resp.Type)
	assert.Equal(t, 42, resp.Context["user_id"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	original := NotFoundError("missing")
	assert.Same(t, original, AsStructuredError(original))

	plain := stderrors.New("boom")
	converted := AsStructuredError(plain)
	require.NotNil(t, converted)
	assert.Equal(t, TypeInternal, converted.Type)
	assert.ErrorIs(t, converted, plain)
}
