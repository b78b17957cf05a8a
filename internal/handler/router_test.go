package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/pin"
	"github.com/hitoshi/pinmap/internal/token"
)

// newTestRouter はルーター統合テスト用のルーターとトークンコーデックを組み立てる。
func newTestRouter(t *testing.T, pinSvc PinServiceInterface, pathSvc PathServiceInterface) (http.Handler, *token.Codec) {
	t.Helper()

	codec, err := token.NewCodec("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		TokenVerifier:     codec,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		AuthService: &mockAuthService{
			getLoginURLFunc: func(state string) string {
				return "https://discord.com/api/oauth2/authorize?state=" + state
			},
		},
		AdminChecker:      &mockAdminChecker{},
		AuthConfig:        AuthHandlerConfig{FrontendOrigin: "http://localhost:3000"},
		PinService:        pinSvc,
		PathService:       pathSvc,
		DB:                &mockPinger{},
	})

	return router, codec
}

func TestRouter_PublicListPins_NoAuthRequired(t *testing.T) {
	pinSvc := &mockPinService{
		listFunc: func(ctx context.Context) ([]*model.Pin, error) {
			return []*model.Pin{{ID: 1, Title: "公園", Category: "park"}}, nil
		},
	}
	router, _ := newTestRouter(t, pinSvc, &mockPathService{})

	req := httptest.NewRequest(http.MethodGet, "/pins", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_CreatePin_WithoutToken_Returns401(t *testing.T) {
	pinSvc := &mockPinService{
		createFunc: func(ctx context.Context, input pin.CreateInput, identity *model.Identity) (*model.Pin, error) {
			t.Fatal("Create should not be reached without a token")
			return nil, nil
		},
	}
	router, _ := newTestRouter(t, pinSvc, &mockPathService{})

	req := httptest.NewRequest(http.MethodPost, "/pins", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_Verify_WithValidToken_Returns200(t *testing.T) {
	router, codec := newTestRouter(t, &mockPinService{}, &mockPathService{})

	tokenString, err := codec.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d, body = %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}
}

func TestRouter_Health_Returns200(t *testing.T) {
	router, _ := newTestRouter(t, &mockPinService{}, &mockPathService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// フロントエンドはログイン開始をクロスオリジンのcredentials付きfetchで行うため、
// stateクッキーの保存にはAllow-Credentialsヘッダーが必須となる。
func TestRouter_Login_StateCookieUsableCrossOrigin(t *testing.T) {
	router, _ := newTestRouter(t, &mockPinService{}, &mockPathService{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("oauth_state cookie should be set")
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
}

func TestRouter_SetsSecurityAndCORSHeaders(t *testing.T) {
	router, _ := newTestRouter(t, &mockPinService{
		listFunc: func(ctx context.Context) ([]*model.Pin, error) { return nil, nil },
	}, &mockPathService{})

	req := httptest.NewRequest(http.MethodGet, "/pins", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID should be set")
	}
}
