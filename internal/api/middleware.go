package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Om7972/votesecure-online-sub000/internal/audit"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ContextKeyRequestID holds the request ID in context.
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyActor holds the acting user in context.
	ContextKeyActor contextKey = "actor"
)

// Headers the trusted gateway sets after authenticating the caller.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// MiddlewareConfig holds middleware configuration.
type MiddlewareConfig struct {
	RateLimit       int
	RateLimitWindow time.Duration
	SkipPaths       []string
	Logger          *slog.Logger
}

// DefaultMiddlewareConfig returns a sensible default configuration.
func DefaultMiddlewareConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		RateLimit:       100,
		RateLimitWindow: time.Minute,
		SkipPaths:       []string{"/health", "/ready", "/live", "/metrics"},
		Logger:          slog.Default(),
	}
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorMiddleware extracts the acting user from gateway headers.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{
			ID:   r.Header.Get(headerActorID),
			Role: r.Header.Get(headerActorRole),
		}
		if actor.ID == "" {
			actor.ID = "anonymous"
		}
		ctx := context.WithValue(r.Context(), ContextKeyActor, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs HTTP requests with timing.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			//nolint:contextcheck // We're using r.Context() inside the defer
			defer func() {
				requestID, _ := r.Context().Value(ContextKeyRequestID).(string)
				logger.InfoContext(r.Context(), "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", wrapped.statusCode,
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", requestID,
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// maxAuditBodyBytes bounds the body prefix inspected for attack signatures.
const maxAuditBodyBytes = 8 << 10

// SecurityAuditMiddleware feeds each request through the risk classifier and
// records an audit entry for anything flagged. Normal 2xx traffic on
// non-sensitive paths produces no entries; this is the attack surface
// monitor, not the request log.
func SecurityAuditMiddleware(auditSvc audit.Service, classifier audit.Classifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if classifier == nil {
		classifier = audit.NewClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Snapshot a bounded prefix of mutating request bodies so the
			// classifier can match payload-borne attack signatures; the
			// handler reads the body from the replayed reader.
			var bodySnapshot []byte
			if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
				snapshot, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBodyBytes))
				if err == nil {
					bodySnapshot = snapshot
					r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(snapshot), r.Body))
				}
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if auditSvc == nil {
				return
			}

			actor := getActor(r)
			event := audit.Event{
				ActorRole:  actor.Role,
				Method:     r.Method,
				Path:       r.URL.Path,
				Query:      r.URL.RawQuery,
				Body:       string(bodySnapshot),
				StatusCode: wrapped.statusCode,
			}
			sec := classifier.Classify(event)
			if !sec.IsSuspicious && wrapped.statusCode < http.StatusBadRequest {
				return
			}

			action := models.ActionAccessDenied
			if sec.IsSuspicious {
				action = models.ActionSuspiciousActivity
			}
			entry := &models.AuditLogEntry{
				Action: action,
				Actor: models.ActorInfo{
					ID:        actor.ID,
					Role:      actor.Role,
					IPAddress: r.RemoteAddr,
					UserAgent: r.UserAgent(),
				},
				Request: &models.RequestInfo{
					Method:     r.Method,
					Path:       r.URL.Path,
					Query:      r.URL.RawQuery,
					StatusCode: wrapped.statusCode,
				},
			}
			if err := auditSvc.Record(r.Context(), entry); err != nil {
				logger.ErrorContext(r.Context(), "failed to record security audit entry",
					"path", r.URL.Path, "error", err)
			}
		})
	}
}

// RateLimitMiddleware implements per-actor rate limiting.
func RateLimitMiddleware(limiter RateLimiter, config *MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip rate limiting for certain paths
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Prefer actor identity; fall back to remote address
			key := r.RemoteAddr
			if actor := getActor(r); actor.ID != "" && actor.ID != "anonymous" {
				key = actor.ID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "RATE_LIMIT_ERROR", "rate limit check failed")
				return
			}

			if !allowed {
				remaining, _ := limiter.GetRemaining(r.Context(), key)
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				w.Header().Set("Retry-After", "60")
				writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RecoveryMiddleware recovers from panics and returns 500.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			//nolint:contextcheck // We're using r.Context() inside the defer
			defer func() {
				if err := recover(); err != nil {
					requestID, _ := r.Context().Value(ContextKeyRequestID).(string)
					logger.ErrorContext(r.Context(), "panic recovered",
						"error", err,
						"request_id", requestID,
						"path", r.URL.Path,
					)
					writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeMiddleware ensures JSON content type for API requests.
func ContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// InMemoryRateLimiter is a simple in-memory rate limiter.
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewInMemoryRateLimiter creates a new in-memory rate limiter.
func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (r *InMemoryRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	now := time.Now()
	if !ok || now.After(b.resetAt) {
		r.buckets[key] = &bucket{count: 1, resetAt: now.Add(r.window)}
		return true, nil
	}

	if b.count >= r.limit {
		return false, nil
	}
	b.count++
	return true, nil
}

func (r *InMemoryRateLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	now := time.Now()
	if !ok || now.After(b.resetAt) {
		r.buckets[key] = &bucket{count: n, resetAt: now.Add(r.window)}
		return n <= r.limit, nil
	}

	if b.count+n > r.limit {
		return false, nil
	}
	b.count += n
	return true, nil
}

func (r *InMemoryRateLimiter) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
	return nil
}

func (r *InMemoryRateLimiter) GetRemaining(ctx context.Context, key string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok || time.Now().After(b.resetAt) {
		return r.limit, nil
	}
	return r.limit - b.count, nil
}
