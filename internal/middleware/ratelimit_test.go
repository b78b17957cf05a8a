package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/pinmap/internal/model"
)

func rateLimitedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/pins", nil)
	identity := &model.Identity{ExternalID: userID, DisplayName: userID}
	return req.WithContext(ContextWithIdentity(req.Context(), identity))
}

func TestRateLimitMiddleware_AllowsRequestsWithinBurst(t *testing.T) {
	cfg := RateLimiterConfig{
		MutationRate:    1,
		MutationBurst:   5,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.MutationMiddleware()

	handlerCallCount := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusCreated)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, rateLimitedRequest("user-1"))

		if w.Result().StatusCode != http.StatusCreated {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusCreated)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	cfg := RateLimiterConfig{
		MutationRate:    1,
		MutationBurst:   2,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.MutationMiddleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// バースト分（2回）は通る
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, rateLimitedRequest("user-burst"))
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	// 3回目は429
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitedRequest("user-burst"))

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	// Retry-Afterヘッダーが正の整数であること
	retryAfter := resp.Header.Get("Retry-After")
	if sec, err := strconv.Atoi(retryAfter); err != nil || sec < 1 {
		t.Errorf("Retry-After = %q, want positive integer", retryAfter)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body.Code)
	}
}

func TestRateLimitMiddleware_LimitsPerUser(t *testing.T) {
	cfg := RateLimiterConfig{
		MutationRate:    1,
		MutationBurst:   1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.MutationMiddleware()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// user-aが上限まで使い切る
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitedRequest("user-a"))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("first user-a request: status = %d", w.Result().StatusCode)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitedRequest("user-a"))
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("second user-a request: status = %d, want 429", w.Result().StatusCode)
	}

	// user-bは影響を受けない
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitedRequest("user-b"))
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("user-b request: status = %d, want 200", w.Result().StatusCode)
	}

	if count := rl.LimiterCount(); count != 2 {
		t.Errorf("limiter count = %d, want 2", count)
	}
}

func TestRateLimitMiddleware_NoIdentity_Returns401(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	mw := rl.MutationMiddleware()
	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/pins", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if handlerCalled {
		t.Error("next handler should not be called")
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	cfg := RateLimiterConfig{
		MutationRate:    1,
		MutationBurst:   1,
		CleanupInterval: 10 * time.Millisecond,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	rl.getOrCreateLimiter("stale-user")
	if count := rl.LimiterCount(); count != 1 {
		t.Fatalf("limiter count = %d, want 1", count)
	}

	// lastAccessを過去に書き換えてクリーンアップ対象にする
	rl.mu.Lock()
	rl.limiters["stale-user"].lastAccess = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.cleanup()

	if count := rl.LimiterCount(); count != 0 {
		t.Errorf("limiter count after cleanup = %d, want 0", count)
	}
}
