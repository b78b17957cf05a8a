// Package geometry はパスの線分ジオメトリの検証と正規化を提供する。
//
// 入力のlinesはポリラインの配列で、各ポリラインは2点以上の座標点の配列。
// 座標点はlat/lngキーのオブジェクト、latitude/longitudeキーのオブジェクト、
// または[lat, lng]の2要素配列のいずれの形式でも受け付け、
// model.Polylineの統一形式に正規化する。
// 違反を1つでも検出した場合は最初の問題を示すValidationErrorで全体を失敗させる。
package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/hitoshi/pinmap/internal/model"
)

// NormalizeLines は生のJSON入力を検証し、正規化済みのポリライン列を返す。
// 失敗時は*model.APIError（validation）を返す。
func NormalizeLines(raw json.RawMessage) ([]model.Polyline, error) {
	if len(raw) == 0 {
		return nil, model.NewValidationError("linesは必須です")
	}

	var rawLines []json.RawMessage
	if err := json.Unmarshal(raw, &rawLines); err != nil {
		return nil, model.NewValidationError("linesはポリラインの配列で指定してください")
	}
	if len(rawLines) == 0 {
		return nil, model.NewValidationError("linesには1本以上のポリラインが必要です")
	}

	lines := make([]model.Polyline, 0, len(rawLines))
	for i, rawLine := range rawLines {
		var rawPoints []json.RawMessage
		if err := json.Unmarshal(rawLine, &rawPoints); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("lines[%d]は座標点の配列で指定してください", i))
		}
		if len(rawPoints) < 2 {
			return nil, model.NewValidationError(fmt.Sprintf("lines[%d]には2点以上の座標点が必要です", i))
		}

		line := make(model.Polyline, 0, len(rawPoints))
		for j, rawPoint := range rawPoints {
			point, err := normalizePoint(rawPoint)
			if err != nil {
				return nil, model.NewValidationError(fmt.Sprintf("lines[%d][%d]: %s", i, j, err))
			}
			line = append(line, point)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// normalizePoint は単一の座標点を正規化する。
func normalizePoint(raw json.RawMessage) (model.Point, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return model.Point{}, fmt.Errorf("座標点が空です")
	}

	// [lat, lng] 形式
	if trimmed[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return model.Point{}, fmt.Errorf("座標は数値の2要素配列で指定してください")
		}
		if len(pair) != 2 {
			return model.Point{}, fmt.Errorf("座標配列は[lat, lng]の2要素である必要があります")
		}
		return finitePoint(pair[0], pair[1])
	}

	// {lat, lng} または {latitude, longitude} 形式
	var obj struct {
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return model.Point{}, fmt.Errorf("座標はlat/lngを持つオブジェクトで指定してください")
	}

	lat := obj.Lat
	if lat == nil {
		lat = obj.Latitude
	}
	lng := obj.Lng
	if lng == nil {
		lng = obj.Longitude
	}
	if lat == nil || lng == nil {
		return model.Point{}, fmt.Errorf("latとlngの両方が必要です")
	}
	return finitePoint(*lat, *lng)
}

// finitePoint は緯度経度が有限の数値であることを検証する。
func finitePoint(lat, lng float64) (model.Point, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return model.Point{}, fmt.Errorf("緯度経度は有限の数値である必要があります")
	}
	return model.Point{Lat: lat, Lng: lng}, nil
}
