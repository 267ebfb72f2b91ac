// file: internal/middleware/structured_logger.go
package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptvault/internal/contextutils"
)

// LoggingConfig holds configuration for structured logging middleware
type LoggingConfig struct {
	SlowRequestThreshold time.Duration `json:"slow_request_threshold"`
	VerySlowThreshold    time.Duration `json:"very_slow_threshold"`
	LogUserAgent         bool          `json:"log_user_agent"`
	SkipPaths            []string      `json:"skip_paths"`
}

// DefaultLoggingConfig returns production-ready logging configuration
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SlowRequestThreshold: 1 * time.Second,
		VerySlowThreshold:    5 * time.Second,
		LogUserAgent:         true,
		SkipPaths:            []string{"/health"},
	}
}

// StructuredLogging logs one line per completed request at a level chosen by
// status and latency. It relies on RequestID having run first.
func StructuredLogging(config *LoggingConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range config.SkipPaths {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := GetRequestStart(r.Context())
			writer := &StructuredResponseWriter{ResponseWriter: w}

			next.ServeHTTP(writer, r)

			logCompletedRequest(r, writer, time.Since(start), config)
		})
	}
}

// ===============================
// STRUCTURED RESPONSE WRITER
// ===============================

// StructuredResponseWriter captures response data for logging
type StructuredResponseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

func (w *StructuredResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *StructuredResponseWriter) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	written, err := w.ResponseWriter.Write(data)
	w.bytesWritten += int64(written)
	return written, err
}

// Hijack lets websocket upgrades pass through the logger.
func (w *StructuredResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		w.status = http.StatusSwitchingProtocols
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not support hijacking")
}

func (w *StructuredResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Status returns the HTTP status code
func (w *StructuredResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func logCompletedRequest(r *http.Request, w *StructuredResponseWriter, duration time.Duration, config *LoggingConfig) {
	logger := contextutils.Logger(r.Context(), nil)

	fields := []zap.Field{
		zap.Int("status", w.Status()),
		zap.Duration("duration", duration),
		zap.Int64("response_size", w.bytesWritten),
		zap.String("remote_addr", getClientIP(r)),
	}
	if r.URL.RawQuery != "" {
		fields = append(fields, zap.String("query_params", sanitizeQueryParams(r.URL.RawQuery)))
	}
	if config.LogUserAgent {
		fields = append(fields, zap.String("user_agent", r.UserAgent()))
	}
	if userID, ok := contextutils.GetUserID(r.Context()); ok {
		fields = append(fields, zap.Int64("user_id", userID))
	}
	if duration > config.SlowRequestThreshold {
		fields = append(fields, zap.Bool("slow", true))
	}

	switch getLogLevel(w.Status(), duration, config) {
	case zapcore.ErrorLevel:
		logger.Error("HTTP request completed with error", fields...)
	case zapcore.WarnLevel:
		logger.Warn("HTTP request completed with warning", fields...)
	default:
		logger.Info("HTTP request completed", fields...)
	}
}

// getLogLevel determines appropriate log level based on status and duration
func getLogLevel(status int, duration time.Duration, config *LoggingConfig) zapcore.Level {
	if status >= 500 {
		return zapcore.ErrorLevel
	}
	if status >= 400 || duration > config.VerySlowThreshold {
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

func sanitizeQueryParams(query string) string {
	sensitiveParams := []string{"password", "token", "key", "secret", "auth"}

	parts := strings.Split(query, "&")
	sanitized := make([]string, 0, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if ok {
			lower := strings.ToLower(key)
			for _, sensitive := range sensitiveParams {
				if strings.Contains(lower, sensitive) {
					value = "***"
					break
				}
			}
			part = key + "=" + value
		}
		sanitized = append(sanitized, part)
	}
	return strings.Join(sanitized, "&")
}
