package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("finds the code on a direct error", func(t *testing.T) {
		err := New(CodeConflict, "already registered")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("finds codes anywhere in a wrapped chain", func(t *testing.T) {
		inner := New(CodeNotFound, "no such asset")
		wrapped := Wrap(inner, CodeInternal, "plan lookup failed")
		outer := fmt.Errorf("handler: %w", wrapped)

		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
		assert.False(t, HasCode(outer, CodeConflict))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(fmt.Errorf("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("boom")))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeInvalidInput:       http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeWaitingPeriod:      http.StatusConflict,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeInvariantViolation: http.StatusInternalServerError,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		var de *DomainError
		require.ErrorAs(t, New(code, "x"), &de)
		assert.Equal(t, want, de.HTTPStatus(), "code %s", code)
	}
}
