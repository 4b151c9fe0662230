package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftorder/user-service/internal/domain"
)

const testSecret = "order-api-shared-secret"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestServiceAuthMiddleware(t *testing.T) {
	router := newTestRouter(seededChecker(domain.StandardVersionTag), RouterOptions{
		JWTSecret:   testSecret,
		JWTAudience: "user-service",
	})

	valid := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "order-api",
		Audience:  jwt.ClaimStrings{"user-service"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "order-api",
		Audience:  jwt.ClaimStrings{"user-service"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongAudience := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:  "order-api",
		Audience: jwt.ClaimStrings{"inventory-service"},
	})
	wrongSecret := signToken(t, "another-secret", jwt.RegisteredClaims{
		Subject:  "order-api",
		Audience: jwt.ClaimStrings{"user-service"},
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{name: "valid token", header: "Bearer " + valid, wantCode: http.StatusOK},
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantCode: http.StatusUnauthorized},
		{name: "wrong audience", header: "Bearer " + wrongAudience, wantCode: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + wrongSecret, wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec := doRequest(t, router, "/users/42/credit", headers)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}

	// Probes stay open.
	rec := doRequest(t, router, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "order-api"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	router := newTestRouter(seededChecker(domain.StandardVersionTag), RouterOptions{JWTSecret: testSecret})
	rec := doRequest(t, router, "/users/42/credit", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceAuthMiddleware_InjectsCaller(t *testing.T) {
	var caller string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = CallerFromContext(r.Context())
	})
	token := signToken(t, testSecret, jwt.RegisteredClaims{Subject: "order-api"})

	req := httptest.NewRequest(http.MethodGet, "/users/1/credit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	ServiceAuthMiddleware(testSecret, "")(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "order-api", caller)
}

func TestServiceAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	router := newTestRouter(seededChecker(domain.StandardVersionTag), RouterOptions{})

	rec := doRequest(t, router, "/users/42/credit", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type rateLimiterStub struct {
	counts   map[string]int
	err      error
	subjects []string
}

func (s *rateLimiterStub) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	s.subjects = append(s.subjects, subject)
	if s.err != nil {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int{}
	}
	s.counts[scope+":"+subject]++
	hits := s.counts[scope+":"+subject]
	return domain.RateLimitDecision{
		Allowed:    hits <= limit,
		Limit:      limit,
		Remaining:  max(limit-hits, 0),
		RetryAfter: 41500 * time.Millisecond,
	}, nil
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &rateLimiterStub{}
	router := newTestRouter(seededChecker(domain.StandardVersionTag), RouterOptions{
		RateLimiter:        limiter,
		RateLimitPerMinute: 2,
	})
	headers := map[string]string{"X-Real-IP": "203.0.113.9"}

	rec := doRequest(t, router, "/users/42/credit", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = doRequest(t, router, "/users/42/credit", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = doRequest(t, router, "/users/42/credit", headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())

	// Another client has its own window.
	rec = doRequest(t, router, "/users/42/credit", map[string]string{"X-Real-IP": "198.51.100.4"})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"ip:203.0.113.9", "ip:203.0.113.9", "ip:203.0.113.9", "ip:198.51.100.4"}, limiter.subjects)

	// Probes are not rate limited.
	rec = doRequest(t, router, "/health", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, limiter.subjects, 4)
}

func TestRateLimitMiddleware_KeysAuthenticatedCallers(t *testing.T) {
	limiter := &rateLimiterStub{}
	router := newTestRouter(seededChecker(domain.StandardVersionTag), RouterOptions{
		JWTSecret:          testSecret,
		RateLimiter:        limiter,
		RateLimitPerMinute: 2,
	})
	token := signToken(t, testSecret, jwt.RegisteredClaims{Subject: "order-api"})

	// Rotating the forwarded address does not open a fresh window for the same caller.
	var codes []int
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		rec := doRequest(t, router, "/users/42/credit", map[string]string{
			"Authorization": "Bearer " + token,
			"X-Real-IP":     ip,
		})
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, []string{"caller:order-api", "caller:order-api", "caller:order-api"}, limiter.subjects)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiter := &rateLimiterStub{err: errors.New("redis: connection refused")}
	router := newTestRouter(seededChecker(domain.StandardVersionTag), RouterOptions{
		RateLimiter:        limiter,
		RateLimitPerMinute: 1,
	})

	for i := 0; i < 3; i++ {
		rec := doRequest(t, router, "/users/42/credit", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	assert.Equal(t, "192.0.2.1", clientIPFromRequest(req))

	req.RemoteAddr = "192.0.2.1"
	assert.Equal(t, "192.0.2.1", clientIPFromRequest(req))
}
