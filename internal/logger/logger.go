// Package logger provides structured logging functionality
// using the Uber zap logging library. It supports log levels and output customization.
package logger

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Log is a global SugaredLogger instance from the zap logging library.
// Until Init is called it discards everything.
var Log = zap.NewNop().Sugar()

// Init replaces Log with a development logger of the given level
// ("debug", "info", "warn", "error" or "fatal").
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries.
// Consoles and pipes cannot be synced; those errors are dropped.
func Sync() error {
	err := Log.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}

	return err
}

type requestFieldsKey struct{}

type requestFields struct {
	mu            sync.Mutex
	keysAndValues []interface{}
}

// AddRequestFields attaches key-value pairs to the access log entry of the request
// carried by ctx. Outside WithLoggingHTTPMiddleware it does nothing.
func AddRequestFields(ctx context.Context, keysAndValues ...interface{}) {
	fields, ok := ctx.Value(requestFieldsKey{}).(*requestFields)
	if !ok {
		return
	}

	fields.mu.Lock()
	defer fields.mu.Unlock()
	fields.keysAndValues = append(fields.keysAndValues, keysAndValues...)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *loggingResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	size, err := w.ResponseWriter.Write(b)
	w.size += size

	return size, err
}

func (w *loggingResponseWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	if w.status == 0 {
		w.status = statusCode
	}
}

// WithLoggingHTTPMiddleware writes one "request served" entry per request with
// its method, URI, status, size and duration, plus whatever the inner handlers
// added through AddRequestFields (the session user, the created short code).
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		fields := &requestFields{}
		lw := &loggingResponseWriter{ResponseWriter: w}
		h.ServeHTTP(lw, r.WithContext(context.WithValue(r.Context(), requestFieldsKey{}, fields)))

		if lw.status == 0 {
			lw.status = http.StatusOK
		}

		fields.mu.Lock()
		keysAndValues := append([]interface{}{
			"uri", r.RequestURI,
			"method", r.Method,
			"status", lw.status,
			"duration", time.Since(start),
			"size", lw.size,
		}, fields.keysAndValues...)
		fields.mu.Unlock()

		Log.Infow("request served", keysAndValues...)
	}

	return http.HandlerFunc(logFn)
}
