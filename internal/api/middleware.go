package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ory/herodot"
	"go.uber.org/zap"

	apperrors "pdf-rag-chat/internal/errors"
)

type contextKey string

// RequestIDContextKey is the context key for the per-request correlation id
const RequestIDContextKey contextKey = "request_id"

// requestIDMiddleware reuses an incoming X-Request-ID or assigns a new one,
// and echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(apperrors.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(apperrors.RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestIDFromContext returns the request id, or "" outside a request
func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDContextKey).(string)
	return requestID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// loggingMiddleware writes one access log line per request and records it in
// the request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(r.Method, route, rec.status, duration)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
		)
	})
}

// recoverMiddleware turns a handler panic into a 500 response
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.errors.WriteError(w, r, fmt.Errorf("%v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

var errMethodNotAllowed = &herodot.DefaultError{
	CodeField:   http.StatusMethodNotAllowed,
	StatusField: http.StatusText(http.StatusMethodNotAllowed),
	ErrorField:  "The request method is not supported by this resource",
	ReasonField: "Method Not Allowed",
}

// unmatchedMiddleware answers requests that match no route with a JSON error
// body. The mux still decides between 404 and 405 and sets Allow.
func (s *Server) unmatchedMiddleware(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		miss := &missRecorder{header: make(http.Header), status: http.StatusNotFound}
		h.ServeHTTP(miss, r)

		if miss.status == http.StatusMethodNotAllowed {
			if allow := miss.header.Get("Allow"); allow != "" {
				w.Header().Set("Allow", allow)
			}
			s.errors.WriteError(w, r, errMethodNotAllowed)
			return
		}
		s.errors.WriteError(w, r, herodot.ErrNotFound.WithReason("Not Found"))
	})
}

// missRecorder keeps the status and headers of the mux's own miss handler
// and drops its plain-text body.
type missRecorder struct {
	header http.Header
	status int
}

func (m *missRecorder) Header() http.Header { return m.header }

func (m *missRecorder) WriteHeader(code int) { m.status = code }

func (m *missRecorder) Write(b []byte) (int, error) { return len(b), nil }
