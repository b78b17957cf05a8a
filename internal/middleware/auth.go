// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに検証済みIdentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Codecの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*model.Identity, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 検証済みIdentityをリクエストコンテキストに注入する。
// ヘッダーが無い・不正・期限切れのリクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからBearerトークンを取得
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. トークンの検証
			identity, err := verifier.Verify(tokenString)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenExpiredError())
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 検証済みIdentityをコンテキストに注入
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// 形式が違う場合は空文字列を返す。
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// IdentityFromContext はリクエストコンテキストから検証済みIdentityを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
