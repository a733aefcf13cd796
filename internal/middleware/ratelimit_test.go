package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newRequestFrom(remoteAddr, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- GeneralMiddleware (API全般) のテスト ---

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     2,
		GeneralBurst:    5,
		SearchRate:      1,
		SearchBurst:     10,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequestFrom("192.0.2.1:5000", "/courses"))

		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     0.5,
		GeneralBurst:    2,
		SearchRate:      1,
		SearchBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), newRequestFrom("192.0.2.1:5000", "/courses"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequestFrom("192.0.2.1:5001", "/courses"))

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After is not an integer: %q", resp.Header.Get("Retry-After"))
	}
	if retryAfter != 2 {
		t.Errorf("Retry-After = %d, want 2", retryAfter)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body.Code)
	}
	if body.Category != "system" || body.Action != "Retry after 2 seconds." {
		t.Errorf("body = %+v", body)
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		SearchRate:      1,
		SearchBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, newRequestFrom("192.0.2.1:5000", "/courses"))
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, newRequestFrom("192.0.2.1:5000", "/courses"))
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, newRequestFrom("198.51.100.7:6000", "/courses"))

	if w1.Code != http.StatusOK {
		t.Errorf("first client first request: status = %d", w1.Code)
	}
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("first client second request: status = %d, want 429", w2.Code)
	}
	if w3.Code != http.StatusOK {
		t.Errorf("second client must not be affected: status = %d", w3.Code)
	}
	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
}

// --- SearchMiddleware のテスト ---

func TestSearchRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    10,
		SearchRate:      1,
		SearchBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	search := rl.GeneralMiddleware()(rl.SearchMiddleware()(okHandler()))

	w := httptest.NewRecorder()
	search.ServeHTTP(w, newRequestFrom("192.0.2.9:1", "/tee_times"))
	if w.Code != http.StatusOK {
		t.Fatalf("first search: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	search.ServeHTTP(w, newRequestFrom("192.0.2.9:1", "/tee_times"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second search: status = %d, want 429", w.Code)
	}

	// 検索の上限に達しても一般APIは通る
	w = httptest.NewRecorder()
	general.ServeHTTP(w, newRequestFrom("192.0.2.9:1", "/courses"))
	if w.Code != http.StatusOK {
		t.Errorf("general request after search limit: status = %d, want 200", w.Code)
	}
	if got := rl.SearchLimiterCount(); got != 1 {
		t.Errorf("SearchLimiterCount() = %d, want 1", got)
	}
}

func TestRateLimitMiddleware_ZeroDisablesLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfigFromPerMinute(0, 0))
	defer rl.Stop()

	handler := rl.SearchMiddleware()(okHandler())
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequestFrom("192.0.2.1:1", "/tee_times"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
	if got := rl.SearchLimiterCount(); got != 0 {
		t.Errorf("disabled limiter must not track clients, got %d", got)
	}
}

// --- クリーンアップのテスト ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     2,
		GeneralBurst:    5,
		SearchRate:      1,
		SearchBurst:     10,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer rl.Stop()

	rl.GeneralMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), newRequestFrom("192.0.2.1:1", "/courses"))

	if rl.GeneralLimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// TTLはCleanupIntervalの2倍 (100ms)
	time.Sleep(250 * time.Millisecond)

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

// --- 設定値のテスト ---

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2.0 { // 120/60
		t.Errorf("GeneralRate = %f, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.SearchRate != rate.Inf {
		t.Errorf("SearchRate = %f, want Inf", cfg.SearchRate)
	}
}

func TestRateLimiterConfigFromPerMinute_NonPositiveIsUnlimited(t *testing.T) {
	cfg := RateLimiterConfigFromPerMinute(-1, 0)
	if cfg.GeneralRate != rate.Inf || cfg.SearchRate != rate.Inf {
		t.Errorf("rates = %v/%v, want Inf", cfg.GeneralRate, cfg.SearchRate)
	}
	if cfg.GeneralBurst != 1 || cfg.SearchBurst != 1 {
		t.Errorf("bursts = %d/%d, want 1", cfg.GeneralBurst, cfg.SearchBurst)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := ClientIP(req); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
