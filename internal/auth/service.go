// Package auth はOAuth認証フローとセッショントークンの発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/pinmap/internal/model"
)

// UserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type UserInfo struct {
	ExternalID  string
	DisplayName string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (string, error)
	// FetchIdentity はアクセストークンでユーザー情報を取得する。
	FetchIdentity(ctx context.Context, accessToken string) (*UserInfo, error)
	// ListGuildIDs はアクセストークンで参加ギルドID一覧を取得する。
	ListGuildIDs(ctx context.Context, accessToken string) ([]string, error)
}

// TokenIssuer はセッショントークン発行のインターフェース。
// token.Codecの部分集合として定義する。
type TokenIssuer interface {
	Issue(externalID, displayName string) (string, error)
}

// AdminChecker は管理者判定のインターフェース。
// authz.Policyの部分集合として定義する。
type AdminChecker interface {
	IsAdmin(identity *model.Identity) bool
}

// LoginRecorder はログイン結果のメトリクス記録のインターフェース。
type LoginRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(stage string)
}

// ErrNotGuildMember は必須ギルドに参加していないことが確認できた場合のエラー。
// ユーザーに別メッセージを表示するため他の失敗と区別する。
var ErrNotGuildMember = errors.New("required guild membership not found")

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// RequiredGuildID が空でない場合、ログイン時にギルド参加を確認する。
	RequiredGuildID string
	// GuildCheckFailOpen がtrueの場合、ギルド確認自体の失敗（非メンバー確定を除く）を
	// 無視してトークンを発行する。可用性を優先する明示的なトレードオフ。
	GuildCheckFailOpen bool
}

// LoginResult はログイン成功時に元のクライアントへ返す結果。
type LoginResult struct {
	Token    string
	Username string
	IsAdmin  bool
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth   OAuthProvider
	issuer  TokenIssuer
	admin   AdminChecker
	metrics LoginRecorder
	config  ServiceConfig
}

// NewService はServiceを生成する。
// metricsにはnilを渡すことができ、その場合は記録をスキップする。
func NewService(oauth OAuthProvider, issuer TokenIssuer, admin AdminChecker, metrics LoginRecorder, config ServiceConfig) *Service {
	return &Service{
		oauth:   oauth,
		issuer:  issuer,
		admin:   admin,
		metrics: metrics,
		config:  config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッショントークンを発行する。
// コード交換 → ユーザー情報取得 →（設定時）ギルド確認 → トークン発行の順に進む。
// 必須ギルドへの不参加が確定した場合はErrNotGuildMemberを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*LoginResult, error) {
	// 1. 認可コードをアクセストークンに交換
	accessToken, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.recordFailure("exchange")
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. ユーザー情報の取得
	userInfo, err := s.oauth.FetchIdentity(ctx, accessToken)
	if err != nil {
		s.recordFailure("identity")
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}

	// 3. ギルドゲート（設定時のみ）
	if s.config.RequiredGuildID != "" {
		if err := s.checkGuildMembership(ctx, accessToken, userInfo); err != nil {
			return nil, err
		}
	}

	// 4. セッショントークンの発行
	sessionToken, err := s.issuer.Issue(userInfo.ExternalID, userInfo.DisplayName)
	if err != nil {
		s.recordFailure("issue")
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	isAdmin := s.admin.IsAdmin(&model.Identity{
		ExternalID:  userInfo.ExternalID,
		DisplayName: userInfo.DisplayName,
	})
	slog.Info("user logged in",
		slog.String("external_id", userInfo.ExternalID),
		slog.String("username", userInfo.DisplayName),
		slog.Bool("is_admin", isAdmin),
	)

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}

	return &LoginResult{
		Token:    sessionToken,
		Username: userInfo.DisplayName,
		IsAdmin:  isAdmin,
	}, nil
}

// checkGuildMembership は必須ギルドへの参加を確認する。
// 確認自体が失敗した場合の扱いはGuildCheckFailOpenに従う。
func (s *Service) checkGuildMembership(ctx context.Context, accessToken string, userInfo *UserInfo) error {
	guildIDs, err := s.oauth.ListGuildIDs(ctx, accessToken)
	if err != nil {
		if s.config.GuildCheckFailOpen {
			// 可用性優先: 確認不能時はゲートを通す
			slog.Warn("guild membership check failed, proceeding (fail-open)",
				slog.String("external_id", userInfo.ExternalID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		s.recordFailure("guild_check")
		return fmt.Errorf("failed to check guild membership: %w", err)
	}

	for _, id := range guildIDs {
		if id == s.config.RequiredGuildID {
			return nil
		}
	}

	s.recordFailure("denied")
	slog.Info("login denied: not a member of required guild",
		slog.String("external_id", userInfo.ExternalID),
	)
	return ErrNotGuildMember
}

// recordFailure はメトリクスが設定されている場合にログイン失敗を記録する。
func (s *Service) recordFailure(stage string) {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure(stage)
	}
}
