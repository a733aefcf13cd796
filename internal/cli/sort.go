package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hitoshi/teetimes/internal/model"
)

// SortOrder は検索結果の並び順。
type SortOrder string

const (
	// SortByProvider は集約結果の順序（プロバイダー → コース → 上流の順）をそのまま使う。
	SortByProvider SortOrder = "provider"
	SortByTime     SortOrder = "time"
	SortByPrice    SortOrder = "price"
)

func parseSortOrder(raw string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(raw))); order {
	case SortByProvider, SortByTime, SortByPrice:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'provider', 'time' or 'price')", raw)
	}
}

// sortTeeTimes は指定された順序で並べ替える。同順位は元の順序を保つ。
func sortTeeTimes(teeTimes []model.TeeTime, order SortOrder) {
	switch order {
	case SortByTime:
		sort.SliceStable(teeTimes, func(i, j int) bool {
			return teeTimes[i].TeeTime.Before(teeTimes[j].TeeTime)
		})
	case SortByPrice:
		sort.SliceStable(teeTimes, func(i, j int) bool {
			if teeTimes[i].Price != teeTimes[j].Price {
				return teeTimes[i].Price < teeTimes[j].Price
			}
			return teeTimes[i].TeeTime.Before(teeTimes[j].TeeTime)
		})
	}
}
