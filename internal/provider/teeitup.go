package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
)

const (
	teeItUpEndpoint = "https://phx-api-be-east-1b.kenna.io/v2/tee-times"
	// teeItUpFallbackLayout はRFC3339で解析できない場合の形式。UTCとして扱う。
	teeItUpFallbackLayout = "2006-01-02 15:04:05"
)

// TeeItUp はTeeItUp（Kenna）のAPIを呼び出すアダプター。
// テナントごとのURLとエイリアスをヘッダーに載せる必要があるため、verbose形式のコースIDが必須。
type TeeItUp struct {
	opts     Options
	runner   searchRunner
	endpoint string
}

// NewTeeItUp はTeeItUpアダプターを生成する。
func NewTeeItUp(opts Options) *TeeItUp {
	opts = opts.withDefaults()
	return &TeeItUp{
		opts:     opts,
		runner:   newSearchRunner(SourceTeeItUp, opts),
		endpoint: opts.baseURL(SourceTeeItUp, teeItUpEndpoint),
	}
}

// Name はsourceタグを返す。
func (p *TeeItUp) Name() string { return SourceTeeItUp }

// Search は対象コースを並列に検索する。
// verbose形式でないコースは問い合わせず、結果にも含めない。
func (p *TeeItUp) Search(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime {
	return p.runner.run(ctx, courses, func(ctx context.Context, c model.GolfCourse) ([]model.TeeTime, error) {
		if _, ok := c.ID.Verbose(); !ok {
			return []model.TeeTime{}, nil
		}
		return p.FetchOne(ctx, c, date, players)
	})
}

type teeItUpFacility struct {
	Teetimes []teeItUpTeeTime `json:"teetimes"`
}

type teeItUpTeeTime struct {
	Teetime    string        `json:"teetime"`
	MaxPlayers int           `json:"maxPlayers"`
	Rates      []teeItUpRate `json:"rates"`
}

type teeItUpRate struct {
	Holes        *int              `json:"holes"`
	GreenFeeCart *float64          `json:"greenFeeCart"`
	Promotion    *teeItUpPromotion `json:"promotion"`
}

type teeItUpPromotion struct {
	GreenFeeCart *float64 `json:"greenFeeCart"`
}

// priceCents はプロモーション価格を優先したカート込み料金（セント）を返す。
func (r teeItUpRate) priceCents() (float64, bool) {
	if r.Promotion != nil && r.Promotion.GreenFeeCart != nil {
		return *r.Promotion.GreenFeeCart, true
	}
	if r.GreenFeeCart != nil {
		return *r.GreenFeeCart, true
	}
	return 0, false
}

// FetchOne は1コース分のティータイムを取得する。
// 人数はAPIの絞り込み条件に含まれないため使用しない。
func (p *TeeItUp) FetchOne(ctx context.Context, course model.GolfCourse, date string, _ int) ([]model.TeeTime, error) {
	verbose, ok := course.ID.Verbose()
	if !ok {
		return nil, fmt.Errorf("%w: %s requires {id, url, alias}", ErrUnsupportedID, SourceTeeItUp)
	}
	facilityID := strconv.FormatInt(verbose.ID, 10)

	q := url.Values{}
	q.Set("date", date)
	q.Set("facilityIds", facilityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", verbose.URL)
	req.Header.Set("Referer", verbose.URL)
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("X-Be-Alias", verbose.Alias)

	body, err := do(req, SourceTeeItUp, p.opts)
	if err != nil {
		return nil, err
	}

	var facilities []json.RawMessage
	if err := decodeJSON(body, &facilities); err != nil {
		return nil, err
	}
	if len(facilities) == 0 {
		return []model.TeeTime{}, nil
	}

	var facility teeItUpFacility
	if err := decodeJSON(facilities[0], &facility); err != nil {
		return nil, err
	}

	bookURL := fmt.Sprintf("%s/?course=%s&date=%s&max=9999", verbose.URL, facilityID, date)

	records := make([]model.TeeTime, 0, len(facility.Teetimes))
	for _, tt := range facility.Teetimes {
		rate, cents, ok := firstPricedRate(tt.Rates)
		if !ok {
			continue
		}
		at, ok := parseTeeItUpTime(tt.Teetime)
		if !ok {
			continue
		}
		records = append(records, model.NewTeeTime(course, at, cents/100, tt.MaxPlayers, rate.Holes, bookURL))
	}
	return records, nil
}

// firstPricedRate は料金を持つ最初のrateを返す。料金のないrateは読み飛ばす。
func firstPricedRate(rates []teeItUpRate) (teeItUpRate, float64, bool) {
	for _, r := range rates {
		if cents, ok := r.priceCents(); ok {
			return r, cents, true
		}
	}
	return teeItUpRate{}, 0, false
}

func parseTeeItUpTime(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(teeItUpFallbackLayout, raw, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}
