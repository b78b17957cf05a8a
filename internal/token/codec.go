// Package token は署名付きセッショントークンの発行と検証を提供する。
//
// トークンはHMAC-SHA256で署名されたJWTで、外部IDと表示名、有効期限を含む。
// サーバー側のセッションテーブルは持たない。失効リストも存在しないため、
// 署名シークレットのローテーションは全セッションの無効化を意味する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/pinmap/internal/model"
)

var (
	// ErrExpired はトークンの有効期限切れを表す。
	ErrExpired = errors.New("token expired")
	// ErrInvalid は署名不一致または構造不正を表す。
	ErrInvalid = errors.New("token invalid")
)

// claims はトークンに埋め込むクレーム。
// 外部IDはsub、表示名はnameに格納する。
type claims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// Codec はセッショントークンの発行と検証を行う。
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec はCodecを生成する。
// secretが空の場合はエラーを返す。ttlには発行するトークンの有効期間を指定する。
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// Issue は外部IDと表示名を埋め込んだ署名付きトークンを発行する。
// 有効期限は現在時刻 + TTL。
func (c *Codec) Issue(externalID, displayName string) (string, error) {
	if externalID == "" {
		return "", fmt.Errorf("external ID is required")
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたIdentityを返す。
// 有効期限切れの場合はErrExpired、署名不一致や構造不正の場合はErrInvalidを返す。
func (c *Codec) Verify(tokenString string) (*model.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		// アルゴリズム混同攻撃を防ぐためHMAC以外は拒否する
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || cl.Subject == "" || cl.ExpiresAt == nil {
		return nil, ErrInvalid
	}

	identity := &model.Identity{
		ExternalID:  cl.Subject,
		DisplayName: cl.DisplayName,
		ExpiresAt:   cl.ExpiresAt.Time,
	}
	if cl.IssuedAt != nil {
		identity.IssuedAt = cl.IssuedAt.Time
	}
	return identity, nil
}
