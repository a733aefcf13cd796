// Package catalog はゴルフコースカタログの読み込みと地理的な絞り込みを提供する。
// 読み込んだカタログは不変のスナップショットとして全リクエストで共有する。
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hitoshi/teetimes/internal/model"
)

// URLValidator はカタログ内のURLを検証するインターフェース。
type URLValidator interface {
	ValidateBaseURL(rawURL string) error
}

// TextCleaner はカタログ内の表示文字列からマークアップを除去するインターフェース。
type TextCleaner interface {
	Clean(raw string) string
}

// Loader はカタログの読み込み元を抽象化する。
type Loader interface {
	Load(ctx context.Context) ([]model.GolfCourse, error)
}

// FileLoader はJSONファイルからカタログを読み込む。
type FileLoader struct {
	Path string
}

// Load はファイルを開いてParseする。
func (l FileLoader) Load(_ context.Context) ([]model.GolfCourse, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", l.Path, err)
	}
	defer f.Close()

	courses, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
	}
	return courses, nil
}

// Parse はJSON配列形式のカタログを読み込む。
func Parse(r io.Reader) ([]model.GolfCourse, error) {
	var courses []model.GolfCourse
	if err := json.NewDecoder(r).Decode(&courses); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if courses == nil {
		courses = []model.GolfCourse{}
	}
	return courses, nil
}

// Catalog は読み込み済みコースの不変スナップショット。
type Catalog struct {
	courses []model.GolfCourse
}

// New はコース一覧のコピーを保持するCatalogを生成する。
func New(courses []model.GolfCourse) *Catalog {
	snapshot := make([]model.GolfCourse, len(courses))
	copy(snapshot, courses)
	return &Catalog{courses: snapshot}
}

// Load はloaderから読み込んだコースを正規化し、Catalogを生成する。
func Load(ctx context.Context, loader Loader, validator URLValidator, cleaner TextCleaner, logger *slog.Logger) (*Catalog, error) {
	courses, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	normalized := Normalize(courses, validator, cleaner, logger)

	logger.Info("コースカタログを読み込みました",
		slog.Int("loaded", len(courses)),
		slog.Int("accepted", len(normalized)),
	)
	return New(normalized), nil
}

// All はカタログ全体を返す。呼び出し側は結果を変更してはならない。
func (c *Catalog) All() []model.GolfCourse {
	return c.courses
}

// Len はコース数を返す。
func (c *Catalog) Len() int {
	return len(c.courses)
}

// Select はbox内のコースを返す。boxがnilの場合はDefaultBoundingBoxを使う。
func (c *Catalog) Select(box *model.BoundingBox) []model.GolfCourse {
	return Select(c.courses, box)
}

// Normalize はコース名からマークアップを除去し、verbose IDのURLが安全でないコースを除外する。
// 入力順は保持する。
func Normalize(courses []model.GolfCourse, validator URLValidator, cleaner TextCleaner, logger *slog.Logger) []model.GolfCourse {
	out := make([]model.GolfCourse, 0, len(courses))
	for _, c := range courses {
		if cleaner != nil {
			c.Name = cleaner.Clean(c.Name)
		}

		if v, ok := c.ID.Verbose(); ok && validator != nil {
			if err := validator.ValidateBaseURL(v.URL); err != nil {
				logger.Warn("安全でないURLを持つコースを除外しました",
					slog.String("course", c.Name),
					slog.String("url", v.URL),
					slog.String("error", err.Error()),
				)
				continue
			}
		}

		out = append(out, c)
	}
	return out
}
