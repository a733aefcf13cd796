package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
)

const (
	foreUpAPIBase = "https://foreupsoftware.com/index.php/api/booking/times"
	foreUpSite    = "https://foreupsoftware.com/index.php/booking"

	foreUpBookingClass = "14824"
	foreUpAPIKey       = "no_limits"

	// foreUpTimeLayout はtimeフィールドの形式。UTCの固定オフセットとして解釈する。
	foreUpTimeLayout = "2006-01-02 15:04"
	// foreUpDateLayout はクエリのdateパラメータの形式。
	foreUpDateLayout = "01-02-2006"
	inputDateLayout  = "2006-01-02"
)

// ForeUp はForeUpのJSON GET APIを呼び出すアダプター。
type ForeUp struct {
	opts    Options
	runner  searchRunner
	apiBase string
}

// NewForeUp はForeUpアダプターを生成する。
func NewForeUp(opts Options) *ForeUp {
	opts = opts.withDefaults()
	return &ForeUp{
		opts:    opts,
		runner:  newSearchRunner(SourceForeUp, opts),
		apiBase: opts.baseURL(SourceForeUp, foreUpAPIBase),
	}
}

// Name はsourceタグを返す。
func (p *ForeUp) Name() string { return SourceForeUp }

// Search は対象コースを並列に検索する。
// 日付はバッチ全体で共有されるため、変換に失敗した場合はどのコースも問い合わせずに空を返す。
func (p *ForeUp) Search(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime {
	queryDate, err := foreUpDate(date)
	if err != nil {
		p.opts.Metrics.RecordFetchFailure(SourceForeUp, FailureReason(err))
		p.opts.Logger.Error("日付の変換に失敗したため検索をスキップしました",
			slog.String("provider", SourceForeUp),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return []model.TeeTime{}
	}

	return p.runner.run(ctx, courses, func(ctx context.Context, c model.GolfCourse) ([]model.TeeTime, error) {
		return p.fetch(ctx, c, queryDate, players)
	})
}

// FetchOne は1コース分のティータイムを取得する。
func (p *ForeUp) FetchOne(ctx context.Context, course model.GolfCourse, date string, players int) ([]model.TeeTime, error) {
	queryDate, err := foreUpDate(date)
	if err != nil {
		return nil, err
	}
	return p.fetch(ctx, course, queryDate, players)
}

// foreUpDate はYYYY-MM-DDをMM-DD-YYYYに変換する。
func foreUpDate(date string) (string, error) {
	d, err := time.Parse(inputDateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInputDate, date, err)
	}
	return d.Format(foreUpDateLayout), nil
}

type foreUpTeeTime struct {
	Time           string      `json:"time"`
	GreenFee       float64     `json:"green_fee"`
	CartFee        float64     `json:"cart_fee"`
	AvailableSpots int         `json:"available_spots"`
	Holes          foreUpHoles `json:"holes"`
}

// foreUpHoles は数値または説明文字列で返されるホール数。
// フィールド自体が存在しない場合はsetがfalseのままになる。
type foreUpHoles struct {
	value int
	set   bool
}

// UnmarshalJSON は数値をそのまま受け入れ、文字列の場合は"18"を含めば18、それ以外は9とする。
// 数値・文字列以外（nullを含む）はエラー。
func (h *foreUpHoles) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty holes value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if strings.Contains(s, "18") {
			*h = foreUpHoles{value: 18, set: true}
		} else {
			*h = foreUpHoles{value: 9, set: true}
		}
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		v, err := strconv.ParseUint(string(trimmed), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid number for holes: %s", trimmed)
		}
		*h = foreUpHoles{value: int(v), set: true}
		return nil
	default:
		return fmt.Errorf("unexpected type for holes: %s", trimmed)
	}
}

func (p *ForeUp) fetch(ctx context.Context, course model.GolfCourse, queryDate string, players int) ([]model.TeeTime, error) {
	courseID := course.ID.String()

	q := url.Values{}
	q.Set("time", "all")
	q.Set("date", queryDate)
	q.Set("holes", "all")
	q.Set("players", strconv.Itoa(players))
	q.Set("booking_class", foreUpBookingClass)
	q.Set("schedule_id", courseID)
	q.Set("api_key", foreUpAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", fmt.Sprintf("%s/%s/7340", foreUpSite, courseID))
	req.Header.Set("Content-Type", "application/json")

	body, err := do(req, SourceForeUp, p.opts)
	if err != nil {
		return nil, err
	}

	var parsed []foreUpTeeTime
	if err := decodeJSON(body, &parsed); err != nil {
		return nil, err
	}

	bookURL := fmt.Sprintf("%s/22857/%s#/teetimes", foreUpSite, courseID)

	records := make([]model.TeeTime, 0, len(parsed))
	for _, tt := range parsed {
		at, err := time.ParseInLocation(foreUpTimeLayout, tt.Time, time.UTC)
		if err != nil {
			continue
		}
		var holes *int
		if tt.Holes.set {
			holes = model.IntPtr(tt.Holes.value)
		}
		records = append(records, model.NewTeeTime(course, at, tt.GreenFee+tt.CartFee, tt.AvailableSpots, holes, bookURL))
	}
	return records, nil
}
