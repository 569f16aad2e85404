package verification_http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verification_service/pkg/ctxdata"
	"verification_service/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewDevelopment()
}

func TestIdentityMiddleware(t *testing.T) {
	userID := uuid.New().String()

	var gotUserID, gotRole string
	var roleSet bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = ctxdata.GetUserID(r.Context())
		gotRole, roleSet = ctxdata.GetUserRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	handler := NewIdentityMiddleware()(next)

	req := httptest.NewRequest(http.MethodGet, "/grades", nil)
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("X-User-Role", "grader")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, gotUserID)
	assert.True(t, roleSet)
	assert.Equal(t, "grader", gotRole)
}

func TestIdentityMiddleware_MissingUser(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := NewIdentityMiddleware()(next)

	req := httptest.NewRequest(http.MethodGet, "/grades", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestLoggingMiddleware_StampsTraceID(t *testing.T) {
	var traceID string
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID, ok = ctxdata.GetTraceID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	handler := NewLoggingMiddleware(testLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/grades", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.True(t, ok)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-Id"))
	_, err := uuid.Parse(traceID)
	assert.NoError(t, err)
}
