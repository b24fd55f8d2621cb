package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("issue: %w", Storage("apikey.upsert", base))

	assert.Equal(t, KindStorage, KindOf(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("op", "member_id required"), http.StatusBadRequest},
		{Auth("op", "identity rejected"), http.StatusUnauthorized},
		{Upstream("op", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestErrorMessageAndExtensions(t *testing.T) {
	err := Auth("markAttendance", "api key required")
	assert.Equal(t, "markAttendance: api key required", err.Error())

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "UNAUTHORIZED", e.Extensions()["code"])
}

func TestStorageErrorHidesCause(t *testing.T) {
	cause := errors.New(`db_error 23514: new row violates check constraint "member_year_check"`)
	err := Storage("members", cause)

	assert.Equal(t, "members: storage unavailable", err.Error())
	assert.NotContains(t, err.Error(), "db_error")
	assert.Equal(t, cause, Cause(err))
	assert.Equal(t, cause, Cause(fmt.Errorf("wrapped: %w", err)))

	up := Upstream("issueApiKey", errors.New("github status 503"))
	assert.Equal(t, "issueApiKey: identity provider unavailable", up.Error())

	plain := errors.New("plain")
	assert.Equal(t, plain, Cause(plain))
}
