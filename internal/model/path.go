// Package model はドメインモデルを定義する。
package model

import "time"

// Point はマップ上の座標点を表す。
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polyline は連続する1本の線分を構成する座標点の列を表す。
// 常に2点以上を含む。
type Polyline []Point

// Path はマップ上の複数線分の注釈を表す。
// Linesは常に1本以上のポリラインを含む。
// UpdatedAtは更新が成功するたびに進む。
type Path struct {
	ID               int64
	Name             string
	Description      string
	Lines            []Polyline
	OwnerExternalID  string
	OwnerDisplayName string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
