package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := range 3 {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled")
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for range 100 {
		require.True(t, rl.Allow("k"))
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(idleTTL / 2)
	rl.Allow("b")
	now = now.Add(idleTTL/2 + time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimitByIP(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	handler := RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, "10.0.0.1:80", "198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.5"}, "10.0.0.1:80", "203.0.113.5"},
		{"bare remote", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
