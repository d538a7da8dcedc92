package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"crypto/rand"
	"encoding/hex"
)

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID set by withRequestID.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// withRequestID assigns a request ID to every request: the client's
// header value if present, otherwise a freshly generated one. The ID is
// stored in the context, echoed on the response header, and threaded
// through to log lines and Activity Monitor events.
func (g *Gateway) withRequestID(next http.Handler) http.Handler {
	header := g.cfg.RequestIDHeader
	if header == "" {
		header = "X-Request-ID"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(header)
		if id == "" {
			id = generateRequestID()
		}
		w.Header().Set(header, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// withRecovery catches panics in downstream handlers and converts them
// to a 500 rather than crashing the server; it keeps accepting new
// requests afterward.
func (g *Gateway) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				g.logger.Error("panic recovered", "error", fmt.Sprintf("%v", rec), "path", r.URL.Path)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withLogging emits one structured log line per request: method, path,
// status, duration, and request ID.
func (g *Gateway) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", RequestIDFromContext(r.Context())),
		}
		g.logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
	})
}

// statusWriter captures the status code written by a downstream handler.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
