package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pinmap/internal/auth"
	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.LoginResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendOrigin はコールバック結果のpostMessage送信先オリジン。
	FrontendOrigin string
	CookieSecure   bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	admin   auth.AdminChecker
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, admin auth.AdminChecker, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		admin:   admin,
		config:  config,
	}
}

// callbackPage は認証完了時にトークンをオープナーウィンドウへ渡すHTMLページ。
// ポップアップで開かれていない場合に備えてメッセージも表示する。
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>ログイン完了</title></head>
<body>
<p>ログインが完了しました。このウィンドウは自動的に閉じられます。</p>
<script>
if (window.opener) {
  window.opener.postMessage({
    type: "auth",
    token: {{.Token}},
    username: {{.Username}},
    is_admin: {{.IsAdmin}}
  }, {{.Origin}});
  window.close();
}
</script>
</body>
</html>`))

// errorPage は認証失敗時に表示するHTMLページ。
var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>ログインエラー</title></head>
<body>
<p>{{.Message}}</p>
<p>ウィンドウを閉じて再度お試しください。</p>
</body>
</html>`))

// callbackPageData はコールバックページのテンプレートデータ。
type callbackPageData struct {
	Token    string
	Username string
	IsAdmin  bool
	Origin   string
}

// Login はOAuthフローを開始するための認可URLを返す。
// GET /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"auth_url": h.service.GetLoginURL(state),
	})
}

// Callback はOAuthコールバックを処理する。
// 結果はHTMLページとして返し、成功時はオープナーウィンドウにトークンを渡す。
// GET /callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.renderErrorPage(w, http.StatusBadRequest, "不正なリクエストです。")
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.renderErrorPage(w, http.StatusBadRequest, "認可コードがありません。ログインがキャンセルされた可能性があります。")
		return
	}

	// 3. 認証処理
	result, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		if errors.Is(err, auth.ErrNotGuildMember) {
			h.renderErrorPage(w, http.StatusForbidden, "このサービスを利用するには指定のサーバーに参加している必要があります。")
			return
		}
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.renderErrorPage(w, http.StatusBadGateway, "認証に失敗しました。")
		return
	}

	// 4. トークンをオープナーウィンドウへ渡すページを返す
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(w, callbackPageData{
		Token:    result.Token,
		Username: result.Username,
		IsAdmin:  result.IsAdmin,
		Origin:   h.config.FrontendOrigin,
	}); err != nil {
		slog.Error("failed to render callback page", slog.String("error", err.Error()))
	}
}

// Verify は提示されたトークンの有効性を確認し、紐づくユーザー情報を返す。
// 認証ミドルウェアの後に配置する。
// GET /verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"external_id": identity.ExternalID,
		"username":    identity.DisplayName,
		"is_admin":    h.admin.IsAdmin(identity),
		"expires_at":  identity.ExpiresAt,
	})
}

// renderErrorPage は認証エラーをHTMLページとして書き込む。
func (h *AuthHandler) renderErrorPage(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := errorPage.Execute(w, map[string]string{"Message": message}); err != nil {
		slog.Error("failed to render error page", slog.String("error", err.Error()))
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
