package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/audit"
	"github.com/Arch3nemy7/face-recognition-service/internal/events"
)

// responseWriter captures the status code for logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware assigns a request ID, logs every request, and forwards
// the outcome to the audit log and event stream when enabled
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		meta := &requestMeta{Operation: r.URL.Path}

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, contextKeyMeta, meta)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		clientIP := getClientIP(r)

		s.logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.String("client_ip", clientIP),
			zap.Duration("duration", duration),
			zap.String("error_code", meta.ErrorCode))

		if s.audit != nil && strings.HasPrefix(r.URL.Path, "/api/v1/") {
			s.audit.Record(context.Background(), audit.Entry{
				RequestID:  requestID,
				Operation:  meta.Operation,
				Metric:     meta.Metric,
				StatusCode: wrapped.statusCode,
				ErrorCode:  meta.ErrorCode,
				DurationMS: float64(duration.Microseconds()) / 1000.0,
			})
		}

		if s.hub != nil {
			s.hub.BroadcastEvent(events.Event{
				Type:      events.EventTypeRequestLog,
				Timestamp: time.Now(),
				RequestID: requestID,
				Data: events.RequestLogEvent{
					RequestID:  requestID,
					Method:     r.Method,
					Path:       r.URL.Path,
					StatusCode: wrapped.statusCode,
					ClientIP:   clientIP,
					Duration:   duration,
				},
			})
		}
	})
}

// authMiddleware enforces bearer token authentication when a token is
// configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifier.Verify(r.Header.Get("Authorization")) {
			s.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing API token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles cross-origin requests and preflight
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Security.CORS.Enabled {
			origin := r.Header.Get("Origin")
			if origin != "" && s.originAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.Security.CORS.Origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// rateLimitMiddleware applies per-client-IP rate limiting
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)
		if !s.limiter.Allow(clientIP) {
			s.logger.Warn("Rate limit exceeded", zap.String("client_ip", clientIP))
			s.writeError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// generateRequestID produces a random hex request identifier
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// getClientIP extracts the originating client IP, honoring proxy headers
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestIDFrom returns the request ID injected by the logging middleware
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// metaFrom returns the mutable request metadata injected by the logging
// middleware
func metaFrom(ctx context.Context) *requestMeta {
	if m, ok := ctx.Value(contextKeyMeta).(*requestMeta); ok {
		return m
	}
	return &requestMeta{}
}
