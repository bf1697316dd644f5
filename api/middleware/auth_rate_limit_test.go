package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLimiterStore struct {
	counts map[string]int64
	err    error
}

func newFakeLimiterStore() *fakeLimiterStore {
	return &fakeLimiterStore{counts: make(map[string]int64)}
}

func (s *fakeLimiterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeLimiterStore) RateLimitKey(scope string) string {
	return "sm:rate_limit:" + scope
}

func doLogin(mw http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.RemoteAddr = "203.0.113.7:54321"
	mw.ServeHTTP(w, r)
	return w
}

func TestAuthRateLimitBlocksIPOverLimit(t *testing.T) {
	store := newFakeLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 0)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := AuthRateLimit(policy, store, testLogger())(next)

	require.Equal(t, http.StatusOK, doLogin(mw, `{}`).Code)
	require.Equal(t, http.StatusOK, doLogin(mw, `{}`).Code)
	require.Equal(t, http.StatusTooManyRequests, doLogin(mw, `{}`).Code)
}

func TestAuthRateLimitBlocksEmailAcrossIPs(t *testing.T) {
	store := newFakeLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := AuthRateLimit(policy, store, testLogger())(next)

	body := `{"email":"A@Example.com","password":"x"}`
	require.Equal(t, http.StatusOK, doLogin(mw, body).Code)
	// Same email, different casing, still counts against the same bucket.
	require.Equal(t, http.StatusTooManyRequests, doLogin(mw, `{"email":"a@example.com","password":"y"}`).Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 0, 0, 0)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := AuthRateLimit(policy, nil, testLogger())(next)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, doLogin(mw, `{}`).Code)
	}
}

func TestAuthRateLimitPreservesRequestBody(t *testing.T) {
	store := newFakeLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 5)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	})
	mw := AuthRateLimit(policy, store, testLogger())(next)

	body := `{"email":"a@example.com","password":"secret"}`
	require.Equal(t, http.StatusOK, doLogin(mw, body).Code)
	require.Equal(t, body, seen, "downstream handlers must see the original body")
}
