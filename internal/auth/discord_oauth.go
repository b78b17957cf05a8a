package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultDiscordAuthURL   = "https://discord.com/api/oauth2/authorize"
	defaultDiscordTokenURL  = "https://discord.com/api/oauth2/token"
	defaultDiscordUserURL   = "https://discord.com/api/users/@me"
	defaultDiscordGuildsURL = "https://discord.com/api/users/@me/guilds"
)

// DiscordOAuthConfig はDiscord OAuthプロバイダーの設定。
type DiscordOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// RequestGuilds はguildsスコープを要求するかどうか。
	// ギルドゲートを使用する場合にtrueを指定する。
	RequestGuilds bool

	// Timeout はプロバイダーへの各ネットワーク呼び出しの上限時間。
	// ゼロの場合は10秒を使用する。
	Timeout time.Duration

	// テスト用にオーバーライド可能なURL
	AuthURL   string
	TokenURL  string
	UserURL   string
	GuildsURL string
}

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
type DiscordOAuthProvider struct {
	config DiscordOAuthConfig
	client *http.Client
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
func NewDiscordOAuthProvider(config DiscordOAuthConfig) *DiscordOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultDiscordAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultDiscordTokenURL
	}
	if config.UserURL == "" {
		config.UserURL = defaultDiscordUserURL
	}
	if config.GuildsURL == "" {
		config.GuildsURL = defaultDiscordGuildsURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &DiscordOAuthProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// GetLoginURL はDiscord OAuthの認証URLを生成する。
// スコープにはidentifyを含み、ギルドゲート使用時はguildsも要求する。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	scope := "identify"
	if p.config.RequestGuilds {
		scope = "identify guilds"
	}
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {scope},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// discordTokenResponse はDiscordのトークンエンドポイントのレスポンス。
type discordTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// discordUser はDiscordのユーザーエンドポイントのレスポンス。
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// discordGuild はDiscordのギルド一覧エンドポイントの1要素。
type discordGuild struct {
	ID string `json:"id"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp discordTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}

	return tokenResp.AccessToken, nil
}

// FetchIdentity はアクセストークンで呼び出し元のユーザー情報を取得する。
// 表示名はglobal_nameを優先し、未設定の場合はusernameを使用する。
func (p *DiscordOAuthProvider) FetchIdentity(ctx context.Context, accessToken string) (*UserInfo, error) {
	body, err := p.getJSON(ctx, p.config.UserURL, accessToken)
	if err != nil {
		return nil, fmt.Errorf("user fetch failed: %w", err)
	}

	var user discordUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("empty id in user response")
	}

	displayName := user.GlobalName
	if displayName == "" {
		displayName = user.Username
	}

	return &UserInfo{
		ExternalID:  user.ID,
		DisplayName: displayName,
	}, nil
}

// ListGuildIDs はアクセストークンで呼び出し元の参加ギルドID一覧を取得する。
func (p *DiscordOAuthProvider) ListGuildIDs(ctx context.Context, accessToken string) ([]string, error) {
	body, err := p.getJSON(ctx, p.config.GuildsURL, accessToken)
	if err != nil {
		return nil, fmt.Errorf("guilds fetch failed: %w", err)
	}

	var guilds []discordGuild
	if err := json.Unmarshal(body, &guilds); err != nil {
		return nil, fmt.Errorf("failed to parse guilds response: %w", err)
	}

	ids := make([]string, 0, len(guilds))
	for _, g := range guilds {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// getJSON はBearer認証付きGETリクエストを送り、成功時のボディを返す。
func (p *DiscordOAuthProvider) getJSON(ctx context.Context, rawURL, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
