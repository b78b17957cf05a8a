// Package model はドメインモデルを定義する。
package model

import "time"

// Pin はマップ上の単一地点の注釈を表す。
// OwnerExternalIDは作成時に決定され、以降変更されない。
type Pin struct {
	ID               int64
	Title            string
	Description      string
	Category         string
	Lat              float64
	Lng              float64
	OwnerExternalID  string
	OwnerDisplayName string
	CreatedAt        time.Time
}
