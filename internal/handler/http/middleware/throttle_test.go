package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"biaswatch/internal/handler/http/auth"
	"biaswatch/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newLimiter(t *testing.T, max int, window time.Duration, clock ratelimit.Clock) *ratelimit.WindowLimiter {
	t.Helper()
	l, err := ratelimit.NewWindowLimiter(ratelimit.Policy{
		Name:    "ingest-all",
		Window:  window,
		Max:     max,
		Message: "Too many global ingestion requests, please try again later",
	}, ratelimit.WithClock(clock))
	require.NoError(t, err)
	return l
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fromIP(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ingest/all", nil)
	req.RemoteAddr = ip + ":40000"
	return req
}

func TestThrottle_Boundary(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	handler := Throttle(newLimiter(t, 5, time.Hour, clock), CallerKey(nil), nil)(okHandler())

	for i := 1; i <= 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, fromIP("203.0.113.1"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(5-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("203.0.113.1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(clock.now.Add(time.Hour).Unix(), 10), rec.Header().Get("X-RateLimit-Reset"))

	var body ThrottleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Too many global ingestion requests, please try again later", body.Error)
	assert.Equal(t, int64(3600), body.RetryAfter)
	assert.Equal(t, 5, body.Details.Limit)
	assert.Equal(t, int64(3_600_000), body.Details.WindowMs)

	// a different caller has its own window
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("203.0.113.2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottle_WindowElapses(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	handler := Throttle(newLimiter(t, 1, time.Minute, clock), CallerKey(nil), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("198.51.100.9"))
	require.Equal(t, http.StatusOK, rec.Code)

	clock.now = clock.now.Add(30 * time.Second)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("198.51.100.9"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	clock.now = clock.now.Add(31 * time.Second)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("198.51.100.9"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottle_FailedRequestsStillCount(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	failing := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	handler := Throttle(newLimiter(t, 2, time.Hour, clock), CallerKey(nil), nil)(failing)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, fromIP("192.0.2.1"))
		require.Equal(t, http.StatusBadGateway, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCallerKey(t *testing.T) {
	key := CallerKey(nil)

	req := fromIP("203.0.113.1")
	assert.Equal(t, "ip:203.0.113.1", key(req))

	req = req.WithContext(auth.WithSubject(req.Context(), "editor@example.es"))
	assert.Equal(t, "user:editor@example.es", key(req))

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.RemoteAddr = "weird"
	assert.Equal(t, "ip:weird", key(bad))
}

func TestThrottle_AuthenticatedUsersShareAcrossAddresses(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	handler := Throttle(newLimiter(t, 1, time.Hour, clock), CallerKey(nil), nil)(okHandler())

	first := fromIP("203.0.113.1")
	first = first.WithContext(auth.WithSubject(first.Context(), "editor"))
	second := fromIP("203.0.113.99")
	second = second.WithContext(auth.WithSubject(second.Context(), "editor"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Check(context.Context, string) (*ratelimit.RateLimitDecision, error) {
	return nil, errors.New("store unavailable")
}

func (brokenLimiter) Policy() ratelimit.Policy { return ratelimit.StrictPolicy }

func TestThrottle_FailsOpen(t *testing.T) {
	handler := Throttle(brokenLimiter{}, CallerKey(nil), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, fromIP("192.0.2.1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
