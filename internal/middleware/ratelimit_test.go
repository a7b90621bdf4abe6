package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestLimiter(rate, burst int) (*RateLimiter, *time.Time) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rl := NewRateLimiter(ctx, rate, burst)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	return rl, &now
}

func limitedGET(rl *RateLimiter, ip string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.RemoteAddr = ip + ":1234"
	r.ServeHTTP(w, req)

	return w
}

func TestRateLimiter_BlocksPastBurst(t *testing.T) {
	rl, _ := newTestLimiter(1, 2)

	for i := range 3 {
		w := limitedGET(rl, "1.2.3.4")

		if i < 2 && w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}

		if i == 2 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("request %d: expected 429, got %d", i, w.Code)
			}

			if w.Header().Get("Retry-After") != "1" {
				t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
			}
		}
	}
}

func TestRateLimiter_IndependentBuckets(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)

	limitedGET(rl, "1.1.1.1")

	if w := limitedGET(rl, "2.2.2.2"); w.Code != http.StatusOK {
		t.Fatalf("different IP should not be rate limited, got %d", w.Code)
	}
}

func TestRateLimiter_FractionalRefill(t *testing.T) {
	rl, now := newTestLimiter(2, 1)

	limitedGET(rl, "5.5.5.5")

	*now = now.Add(250 * time.Millisecond)
	if w := limitedGET(rl, "5.5.5.5"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("half a token should not admit a request, got %d", w.Code)
	}

	*now = now.Add(300 * time.Millisecond)
	if w := limitedGET(rl, "5.5.5.5"); w.Code != http.StatusOK {
		t.Fatalf("expected refilled token, got %d", w.Code)
	}
}
