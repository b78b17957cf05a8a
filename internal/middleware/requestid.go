package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDContextKey はリクエストIDをコンテキストに格納するためのキー。
var requestIDContextKey = contextKey("request_id")

// requestIDHeader はリクエストIDを伝搬するHTTPヘッダー名。
const requestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware はリクエストごとに一意のIDを割り当てるミドルウェアを返す。
// クライアントがX-Request-IDヘッダーを送信した場合はその値を引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := context.WithValue(r.Context(), requestIDContextKey, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
// 未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	reqID, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}
	return reqID
}
