// Package aggregator は全プロバイダーへの検索を束ね、結果を固定順序で連結する。
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
	"github.com/hitoshi/teetimes/internal/provider"
)

// Aggregator はプロバイダーの順序付きリストを保持する。
// プロバイダーごとの分岐は持たず、Provider インターフェースのみを呼び出す。
type Aggregator struct {
	providers []provider.Provider
	logger    *slog.Logger
}

// New はAggregatorを生成する。providersの順序がそのまま結果の連結順になる。
func New(providers []provider.Provider, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		providers: providers,
		logger:    logger,
	}
}

// ProviderNames は連結順のプロバイダー名を返す。
func (a *Aggregator) ProviderNames() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// GetTeeTimes は全プロバイダーのSearchを並列に実行し、プロバイダー順に連結して返す。
// 完了順に関わらず出力順は固定で、失敗したプロバイダーは空として扱う。
// 戻り値がnilになることはない。
func (a *Aggregator) GetTeeTimes(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime {
	start := time.Now()

	segments := make([][]model.TeeTime, len(a.providers))
	var wg sync.WaitGroup

	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			segments[i] = a.search(ctx, p, courses, date, players)
		}(i, p)
	}

	wg.Wait()

	total := 0
	for _, s := range segments {
		total += len(s)
	}
	result := make([]model.TeeTime, 0, total)
	for _, s := range segments {
		result = append(result, s...)
	}

	a.logger.Info("ティータイムの集約が完了しました",
		slog.String("date", date),
		slog.Int("players", players),
		slog.Int("course_count", len(courses)),
		slog.Int("record_count", len(result)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result
}

// search は1プロバイダー分の検索を実行する。
// Search自体のpanicはそのプロバイダーの結果を空にする。コース単位のpanicはprovider側で回収される。
func (a *Aggregator) search(ctx context.Context, p provider.Provider, courses []model.GolfCourse, date string, players int) (records []model.TeeTime) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("プロバイダーの検索中にpanicが発生しました",
				slog.String("provider", p.Name()),
				slog.String("panic", fmt.Sprintf("%v", rec)),
			)
			records = nil
		}
	}()
	return p.Search(ctx, courses, date, players)
}
