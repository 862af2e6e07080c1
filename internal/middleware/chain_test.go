package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// TestMiddlewareChain_SessionThenRateLimit は
// Session → RateLimit(General) のミドルウェアチェーンがchi.Routerで正しく動作することを検証する。
func TestMiddlewareChain_SessionThenRateLimit(t *testing.T) {
	resolver := liveSessionResolver("chain-token")

	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    2,
		CredentialRate:  rate.Limit(1),
		CredentialBurst: 1,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(resolver))
		r.Use(rl.GeneralMiddleware())

		r.Get("/api/protected", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
	})

	// テスト1: 有効トークン付きのリクエストが通り、ユーザーIDが解決される
	t.Run("with_valid_token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer chain-token")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}

		var body map[string]string
		json.NewDecoder(w.Result().Body).Decode(&body)
		if body["user_id"] != "user-1" {
			t.Errorf("user_id = %q, want %q", body["user_id"], "user-1")
		}
	})

	// テスト2: トークンなしは401（レート制限より前にセッションチェック）
	t.Run("without_token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
		}
	})

	// テスト3: バーストを超えると429
	t.Run("over_burst_returns_429", func(t *testing.T) {
		var lastStatus int
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
			req.Header.Set("Authorization", "Bearer chain-token")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			lastStatus = w.Result().StatusCode
		}

		if lastStatus != http.StatusTooManyRequests {
			t.Errorf("status = %d, want %d", lastStatus, http.StatusTooManyRequests)
		}
	})
}
