package catalog

import (
	"encoding/json"
	"strings"

	"github.com/hitoshi/teetimes/internal/model"
)

// Select はbox内（境界を含む）にあるコースを入力順のまま返す。
// boxがnilの場合はDefaultBoundingBoxを使用する。
func Select(courses []model.GolfCourse, box *model.BoundingBox) []model.GolfCourse {
	b := model.DefaultBoundingBox
	if box != nil {
		b = *box
	}

	selected := make([]model.GolfCourse, 0, len(courses))
	for _, c := range courses {
		if b.Contains(c.Lat, c.Lon) {
			selected = append(selected, c)
		}
	}
	return selected
}

// boxWire は4つのキーすべての存在を確認するためのデコード用構造体。
type boxWire struct {
	MinLat *float64 `json:"min_lat"`
	MaxLat *float64 `json:"max_lat"`
	MinLon *float64 `json:"min_lon"`
	MaxLon *float64 `json:"max_lon"`
}

// ParseBoundingBox はクエリパラメータのJSON文字列を解析する。
// 空・不正なJSON・キー欠落の場合はnilを返し、呼び出し側はデフォルトの範囲を使う。
func ParseBoundingBox(raw string) *model.BoundingBox {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var w boxWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil
	}
	if w.MinLat == nil || w.MaxLat == nil || w.MinLon == nil || w.MaxLon == nil {
		return nil
	}

	return &model.BoundingBox{
		MinLat: *w.MinLat,
		MaxLat: *w.MaxLat,
		MinLon: *w.MinLon,
		MaxLon: *w.MaxLon,
	}
}
