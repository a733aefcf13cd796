package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
)

// fetchFunc は1コース分のフェッチ処理。
type fetchFunc func(ctx context.Context, course model.GolfCourse) ([]model.TeeTime, error)

// searchRunner はsourceタグでコースを絞り込み、コースごとのフェッチを並列実行する。
// 結果はコースごとのスロットに格納し、入力順に連結する。
type searchRunner struct {
	name string
	opts Options
}

func newSearchRunner(name string, opts Options) searchRunner {
	return searchRunner{name: name, opts: opts}
}

// eligible はsourceタグが一致するコースを入力順のまま返す。
func (r searchRunner) eligible(courses []model.GolfCourse) []model.GolfCourse {
	matched := make([]model.GolfCourse, 0, len(courses))
	for _, c := range courses {
		if c.Source == r.name {
			matched = append(matched, c)
		}
	}
	return matched
}

// run は対象コースごとにfetchを実行する。
// semaphoreパターンで同時実行数を制御し、失敗したコースは空として扱う。
func (r searchRunner) run(ctx context.Context, courses []model.GolfCourse, fetch fetchFunc) []model.TeeTime {
	targets := r.eligible(courses)
	if len(targets) == 0 {
		return []model.TeeTime{}
	}

	slots := make([][]model.TeeTime, len(targets))
	sem := make(chan struct{}, r.opts.MaxConcurrent)
	var wg sync.WaitGroup

	for i, course := range targets {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, c model.GolfCourse) {
			defer wg.Done()
			defer func() { <-sem }()

			slots[i] = r.fetchCourse(ctx, c, fetch)
		}(i, course)
	}

	wg.Wait()

	total := 0
	for _, s := range slots {
		total += len(s)
	}
	result := make([]model.TeeTime, 0, total)
	for _, s := range slots {
		result = append(result, s...)
	}
	return result
}

func (r searchRunner) fetchCourse(ctx context.Context, c model.GolfCourse, fetch fetchFunc) []model.TeeTime {
	start := time.Now()
	records, err := safeFetch(ctx, c, fetch)
	r.opts.Metrics.RecordFetchLatency(r.name, time.Since(start))

	if err != nil {
		r.opts.Metrics.RecordFetchFailure(r.name, FailureReason(err))
		r.opts.Logger.Error("ティータイムの取得に失敗しました",
			slog.String("provider", r.name),
			slog.String("course", c.Name),
			slog.String("course_id", c.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	r.opts.Metrics.RecordFetchSuccess(r.name, len(records))
	r.opts.Logger.Debug("ティータイムを取得しました",
		slog.String("provider", r.name),
		slog.String("course", c.Name),
		slog.Int("records", len(records)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return records
}

// safeFetch はfetch内のpanicをErrPanicに変換する。
// 1コースのpanicでプロセス全体を落とさず、他コースの取得を継続させる。
func safeFetch(ctx context.Context, c model.GolfCourse, fetch fetchFunc) (records []model.TeeTime, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			records = nil
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return fetch(ctx, c)
}
