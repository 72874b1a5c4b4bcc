package middleware

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"tripseal-backend/internal/models"
	"tripseal-backend/internal/repositories"
	"tripseal-backend/internal/timeutil"
)

// APILoggingMiddleware writes one api_request_logs row per request through an
// async channel so request latency never pays for the insert.
type APILoggingMiddleware struct {
	repo    *repositories.MetricsRepository
	logChan chan *models.APIRequestLog
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func NewAPILoggingMiddleware(repo *repositories.MetricsRepository) *APILoggingMiddleware {
	m := &APILoggingMiddleware{
		repo:    repo,
		logChan: make(chan *models.APIRequestLog, 1000),
	}

	go m.asyncLogWriter()

	return m
}

func (m *APILoggingMiddleware) asyncLogWriter() {
	for entry := range m.logChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// Request logging must never affect requests, so insert errors
		// are swallowed
		_ = m.repo.InsertAPILog(ctx, entry)
		cancel()
	}
}

func (m *APILoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := timeutil.Now()

		var requestSize int
		if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			requestSize = len(body)
			r.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		var userID *int
		var userRole *string
		if id, ok := GetAccountIDFromContext(r.Context()); ok {
			userID = &id
		}
		if role, ok := GetRoleFromContext(r.Context()); ok {
			s := string(role)
			userRole = &s
		}

		entry := &models.APIRequestLog{
			Time:         timeutil.Now(),
			Method:       r.Method,
			Path:         sanitizePath(r.URL.Path),
			StatusCode:   wrapped.statusCode,
			DurationMs:   float64(duration.Microseconds()) / 1000.0,
			RequestSize:  requestSize,
			ResponseSize: wrapped.bytesWritten,
			UserID:       userID,
			UserRole:     userRole,
			IPAddress:    getClientIP(r),
			UserAgent:    r.UserAgent(),
		}

		if wrapped.statusCode >= 400 {
			errMsg := http.StatusText(wrapped.statusCode)
			entry.ErrorMessage = &errMsg
		}

		select {
		case m.logChan <- entry:
		default:
			log.Printf("[APILogging] Log buffer full, dropping log entry for %s", r.URL.Path)
		}
	})
}

func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
		"/robots.txt",
	}

	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}

	return false
}

// sanitizePath strips query strings and truncates very long paths
func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}

// Close flushes the writer channel on shutdown
func (m *APILoggingMiddleware) Close() {
	close(m.logChan)
}
