/**
 * @description
 * HTTP middleware for the user-service: optional service-to-service JWT authentication
 * and Redis-backed per-client rate limiting of the credit route.
 */
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/swiftorder/user-service/internal/domain"
)

type contextKey string

// CallerContextKey stores the authenticated caller (the JWT subject).
const CallerContextKey = contextKey("caller")

const creditRateLimitScope = "credit"

// RateLimiter counts requests per subject within a window.
type RateLimiter interface {
	Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (domain.RateLimitDecision, error)
}

// ServiceAuthMiddleware validates HS256 bearer tokens signed with the shared service secret.
// An empty secret disables authentication.
func ServiceAuthMiddleware(secret, audience string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if audience = strings.TrimSpace(audience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || tokenString == authHeader {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), CallerContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext retrieves the authenticated caller from the request context.
func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(CallerContextKey).(string)
	return caller, ok
}

// RateLimitMiddleware rejects clients exceeding requestsPerMinute with 429. Limiter
// failures let the request through. Authenticated requests are counted per JWT subject;
// anonymous ones per client IP, which is only trustworthy behind a proxy that sets
// X-Real-IP / X-Forwarded-For itself.
func RateLimitMiddleware(limiter RateLimiter, requestsPerMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || requestsPerMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := rateLimitSubject(r)
			decision, err := limiter.Allow(r.Context(), creditRateLimitScope, subject, requestsPerMinute, time.Minute)
			if err != nil {
				logger.Warn("rate limiter unavailable; allowing request", "subject", subject, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
				respondWithError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitSubject keys the limit by authenticated caller when one is known.
func rateLimitSubject(r *http.Request) string {
	if caller, ok := CallerFromContext(r.Context()); ok && caller != "" {
		return "caller:" + caller
	}
	return "ip:" + clientIPFromRequest(r)
}

// clientIPFromRequest returns the caller address. chi's RealIP middleware has already
// replaced RemoteAddr with X-Real-IP / X-Forwarded-For when present.
func clientIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
