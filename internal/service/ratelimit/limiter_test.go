package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLimiterAllow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third request should be rejected")
	}
	if !l.Allow("b") {
		t.Fatal("keys must not share buckets")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("one token should refill after a second")
	}
	if l.Allow("a") {
		t.Fatal("only one token should have refilled")
	}
}

func TestLimiterMiddleware(t *testing.T) {
	e := echo.New()
	l := New(0, 1)
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, l.Middleware())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
