package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/ory/herodot"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ErrorHandler is the only place errors become HTTP status codes
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// WriteError writes err as a JSON {"detail": ...} response. HTTP errors built
// with herodot keep their status and reason; anything else is an unexpected
// failure and becomes a 500.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *herodot.DefaultError
	if stderrors.As(err, &httpErr) {
		detail := httpErr.Reason()
		if detail == "" {
			detail = httpErr.Error()
		}
		code := httpErr.StatusCode()
		if code >= http.StatusInternalServerError {
			h.logError("request failed", err, r, w, zap.Int("status", code))
		} else {
			h.logger.Warn("request rejected",
				zap.String("detail", detail),
				zap.Int("status", code),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", w.Header().Get(RequestIDHeader)),
			)
		}
		h.writeJSONError(w, code, detail)
		return
	}

	h.logError("unexpected error", err, r, w, zap.Stack("stacktrace"))
	h.writeJSONError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
}

// writeJSONError writes an error response as JSON
func (h *ErrorHandler) writeJSONError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Detail: detail}); err != nil {
		h.logger.Error("error encoding error response", zap.Error(err))
	}
}

// logError logs errors with request context
func (h *ErrorHandler) logError(msg string, err error, r *http.Request, w http.ResponseWriter, extra ...zap.Field) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("user_agent", r.Header.Get("User-Agent")),
		zap.String("remote_ip", getClientIP(r)),
		zap.String("request_id", w.Header().Get(RequestIDHeader)),
	}
	h.logger.Error(msg, append(fields, extra...)...)
}

// getClientIP extracts the real client IP from request headers
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
