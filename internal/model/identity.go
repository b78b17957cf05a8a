// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は検証済みトークンから復元されたセッション上のユーザーを表す。
// サーバー側には永続化せず、リクエストごとにトークンから再構築する。
type Identity struct {
	ExternalID  string
	DisplayName string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
