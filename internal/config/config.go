// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string
	DiscordGuildID      string
	GuildCheckFailOpen  bool
	OAuthTimeout        time.Duration

	// Token
	TokenSecret string
	TokenTTL    time.Duration

	// Admin
	AdminUsername string
	AdminUserID   string

	// Rate Limit
	RateLimitMutation int

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.DiscordClientID = os.Getenv("DISCORD_CLIENT_ID")
	if cfg.DiscordClientID == "" {
		missing = append(missing, "DISCORD_CLIENT_ID")
	}

	cfg.DiscordClientSecret = os.Getenv("DISCORD_CLIENT_SECRET")
	if cfg.DiscordClientSecret == "" {
		missing = append(missing, "DISCORD_CLIENT_SECRET")
	}

	cfg.DiscordRedirectURL = os.Getenv("DISCORD_REDIRECT_URL")
	if cfg.DiscordRedirectURL == "" {
		missing = append(missing, "DISCORD_REDIRECT_URL")
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	cfg.AdminUsername = os.Getenv("ADMIN_USERNAME")
	if cfg.AdminUsername == "" {
		missing = append(missing, "ADMIN_USERNAME")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DiscordGuildID = os.Getenv("DISCORD_GUILD_ID")
	cfg.GuildCheckFailOpen = getEnvBool("GUILD_CHECK_FAIL_OPEN", true)
	cfg.OAuthTimeout = getEnvDuration("OAUTH_TIMEOUT", 10*time.Second)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 168*time.Hour)
	cfg.AdminUserID = os.Getenv("ADMIN_USER_ID")
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 60)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// CookieSecure はBaseURLがhttpsの場合にSecure Cookieを使うべきかを返す。
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
