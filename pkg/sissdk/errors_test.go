package sissdk

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindFromStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuthentication},
		{http.StatusNotFound, KindNotFound},
		{http.StatusConflict, KindConflict},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
		{http.StatusBadRequest, KindRequest},
		{http.StatusForbidden, KindRequest},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, kindFromStatus(tc.status), "status %d", tc.status)
	}
}

func TestParseError(t *testing.T) {
	t.Parallel()

	t.Run("flat envelope message", func(t *testing.T) {
		t.Parallel()

		err := parseError(http.StatusNotFound, []byte(`{"success":false,"message":"student not found"}`))
		e, ok := AsError(err)
		require.True(t, ok)
		require.Equal(t, KindNotFound, e.Kind)
		require.Equal(t, http.StatusNotFound, e.Status)
		require.Equal(t, "student not found", e.Message)
	})

	t.Run("nested error object", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"success":false,"error":{"code":"DUPLICATE_STUDENT_ID","message":"student id already in use","details":{"studentId":"taken"}}}`)
		err := parseError(http.StatusConflict, body)
		e, ok := AsError(err)
		require.True(t, ok)
		require.Equal(t, KindConflict, e.Kind)
		require.Equal(t, "DUPLICATE_STUDENT_ID", e.Code)
		require.Equal(t, "student id already in use", e.Message)
		require.Equal(t, "taken", e.Fields["studentId"])
	})

	t.Run("unparseable body falls back to status text", func(t *testing.T) {
		t.Parallel()

		err := parseError(http.StatusInternalServerError, []byte("<html>gateway error</html>"))
		e, ok := AsError(err)
		require.True(t, ok)
		require.Equal(t, KindServer, e.Kind)
		require.NotEmpty(t, e.Message)
	})
}

func TestPredicatesMatchOnKindNotMessage(t *testing.T) {
	t.Parallel()

	notFound := &Error{Kind: KindNotFound, Status: 404, Message: "authentication looked fine, record missing"}
	require.True(t, IsNotFound(notFound))
	require.False(t, IsAuthentication(notFound))
	require.False(t, IsNotFound(errors.New("not found"))) // plain errors never match

	wrapped := &Error{Kind: KindNetwork, Message: "dial tcp: connection refused", cause: errors.New("connection refused")}
	require.True(t, IsNetwork(wrapped))
	require.NotNil(t, errors.Unwrap(wrapped))
}

func TestIsKindOnNil(t *testing.T) {
	t.Parallel()

	require.False(t, IsKind(nil, KindServer))
	_, ok := AsError(nil)
	require.False(t, ok)
}
