package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
)

const (
	golfBackAPIBase  = "https://api.golfback.com/api/v1"
	golfBackReferer  = "https://golfback.com/"
	golfBackBookBase = "https://golfback.com/#/course"
)

// GolfBack はGolfBackのJSON POST APIを呼び出すアダプター。
type GolfBack struct {
	opts    Options
	runner  searchRunner
	apiBase string
}

// NewGolfBack はGolfBackアダプターを生成する。
func NewGolfBack(opts Options) *GolfBack {
	opts = opts.withDefaults()
	return &GolfBack{
		opts:    opts,
		runner:  newSearchRunner(SourceGolfBack, opts),
		apiBase: opts.baseURL(SourceGolfBack, golfBackAPIBase),
	}
}

// Name はsourceタグを返す。
func (p *GolfBack) Name() string { return SourceGolfBack }

// Search は対象コースを並列に検索する。
func (p *GolfBack) Search(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime {
	return p.runner.run(ctx, courses, func(ctx context.Context, c model.GolfCourse) ([]model.TeeTime, error) {
		return p.FetchOne(ctx, c, date, players)
	})
}

type golfBackRequest struct {
	Date     string `json:"date"`
	CourseID string `json:"course_id"`
	Players  int    `json:"players"`
}

type golfBackResponse struct {
	Data []golfBackTeeTime `json:"data"`
}

type golfBackTeeTime struct {
	ID         string         `json:"id"`
	DateTime   string         `json:"dateTime"`
	Holes      []int          `json:"holes"`
	PlayersMax int            `json:"playersMax"`
	Rates      []golfBackRate `json:"rates"`
}

type golfBackRate struct {
	Price      float64 `json:"price"`
	RatePlanID string  `json:"ratePlanId"`
}

// FetchOne は1コース分のティータイムを取得する。
// 料金は先頭のrateを採用し、rateが1件もないティータイムは除外する。
func (p *GolfBack) FetchOne(ctx context.Context, course model.GolfCourse, date string, players int) ([]model.TeeTime, error) {
	courseID := course.ID.String()

	payload, err := json.Marshal(golfBackRequest{Date: date, CourseID: courseID, Players: players})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", ErrPayload, err)
	}

	endpoint := fmt.Sprintf("%s/courses/%s/date/%s/teetimes",
		p.apiBase, url.PathEscape(courseID), url.PathEscape(date))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", golfBackReferer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := do(req, SourceGolfBack, p.opts)
	if err != nil {
		return nil, err
	}

	var parsed golfBackResponse
	if err := decodeJSON(body, &parsed); err != nil {
		return nil, err
	}

	records := make([]model.TeeTime, 0, len(parsed.Data))
	for _, tt := range parsed.Data {
		if len(tt.Rates) == 0 {
			continue
		}
		at, err := time.Parse(time.RFC3339, tt.DateTime)
		if err != nil {
			continue
		}
		rate := tt.Rates[0]

		bookURL := fmt.Sprintf("%s/%s/date/%s/teetime/%s?rateId=%s&holes=18&players=%d",
			golfBackBookBase, courseID, date, tt.ID, url.QueryEscape(rate.RatePlanID), players)

		records = append(records, model.NewTeeTime(course, at, rate.Price, tt.PlayersMax, maxHoles(tt.Holes), bookURL))
	}
	return records, nil
}

// maxHoles はホール数リストの最大値を返す。空の場合はnil。
func maxHoles(holes []int) *int {
	if len(holes) == 0 {
		return nil
	}
	m := holes[0]
	for _, h := range holes[1:] {
		if h > m {
			m = h
		}
	}
	return model.IntPtr(m)
}
