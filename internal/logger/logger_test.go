package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug"))
	assert.NotNil(t, Log)
	assert.NoError(t, Sync())

	for _, level := range []string{"info", "warn", "error", "fatal"} {
		assert.NoError(t, Init(level), level)
	}

	assert.Error(t, Init("loud"))
	assert.Error(t, Init("warning"))
}

func observeLog(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	previous := Log
	t.Cleanup(func() { Log = previous })

	core, logs := observer.New(zapcore.InfoLevel)
	Log = zap.New(core).Sugar()

	return logs
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	logs := observeLog(t)

	handler := WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddRequestFields(r.Context(), "user_id", "aJ48lW")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/urls", nil))

	assert.Equal(t, http.StatusTeapot, recorder.Code)
	assert.Equal(t, "short and stout", recorder.Body.String())

	entries := logs.FilterMessage("request served").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/urls", fields["uri"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, len("short and stout"), fields["size"])
	assert.Equal(t, "aJ48lW", fields["user_id"])
}

func TestWithLoggingHTTPMiddlewareImplicitStatus(t *testing.T) {
	logs := observeLog(t)

	handler := WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	entries := logs.FilterMessage("request served").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
	assert.NotContains(t, entries[0].ContextMap(), "user_id")
}

func TestAddRequestFieldsOutsideMiddleware(t *testing.T) {
	assert.NotPanics(t, func() {
		AddRequestFields(context.Background(), "user_id", "aJ48lW")
	})
}
