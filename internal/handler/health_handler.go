package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// DBPinger はヘルスチェックに必要なデータベース接続確認のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// HealthConfig はヘルスチェックで公開する設定フラグ。
type HealthConfig struct {
	// OAuthConfigured はDiscordクライアント資格情報が設定済みかどうか。
	OAuthConfigured bool
	// GuildGate はギルド所属チェックが有効かどうか。
	GuildGate bool
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db     DBPinger
	config HealthConfig
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db DBPinger, config HealthConfig) *HealthHandler {
	return &HealthHandler{db: db, config: config}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status          string `json:"status"`
	Database        string `json:"database"`
	OAuthConfigured bool   `json:"oauth_configured"`
	GuildGate       bool   `json:"guild_gate"`
}

// Health はサービスとデータベース接続の状態、および設定フラグを返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:          "ok",
		Database:        "ok",
		OAuthConfigured: h.config.OAuthConfigured,
		GuildGate:       h.config.GuildGate,
	}
	statusCode := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("health check db ping failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
