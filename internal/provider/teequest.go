package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hitoshi/teetimes/internal/model"
)

const (
	teeQuestOrigin = "https://bookateetime.teequest.com"
	// teeQuestDateTimeLayout はdata-date-time属性の形式（YYYYMMDDHHMM、米国中部時間）。
	teeQuestDateTimeLayout = "200601021504"
)

// centralTime は米国中部時間。tzdataを埋め込んでいるため読み込みに失敗しない。
var centralTime = mustLoadLocation("America/Chicago")

var firstInteger = regexp.MustCompile(`\d+`)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load location %s: %v", name, err))
	}
	return loc
}

// TeeQuest はbookateetime.teequest.comの検索結果HTMLをスクレイピングするアダプター。
type TeeQuest struct {
	opts   Options
	runner searchRunner
	// baseURL は検索ページのオリジン。テストで差し替える。
	baseURL string
}

// NewTeeQuest はTeeQuestアダプターを生成する。
func NewTeeQuest(opts Options) *TeeQuest {
	opts = opts.withDefaults()
	return &TeeQuest{
		opts:    opts,
		runner:  newSearchRunner(SourceTeeQuest, opts),
		baseURL: opts.baseURL(SourceTeeQuest, teeQuestOrigin),
	}
}

// Name はsourceタグを返す。
func (p *TeeQuest) Name() string { return SourceTeeQuest }

// Search は対象コースを並列に検索する。
func (p *TeeQuest) Search(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime {
	return p.runner.run(ctx, courses, func(ctx context.Context, c model.GolfCourse) ([]model.TeeTime, error) {
		return p.FetchOne(ctx, c, date, players)
	})
}

// FetchOne は1コース分の検索ページを取得し、.tee-time要素ごとにレコードを生成する。
// 日時・料金・空き枠のいずれかを欠く要素は個別に読み飛ばす。
func (p *TeeQuest) FetchOne(ctx context.Context, course model.GolfCourse, date string, players int) ([]model.TeeTime, error) {
	q := url.Values{}
	q.Set("selectedPlayers", strconv.Itoa(players))
	q.Set("selectedHoles", "18")
	endpoint := fmt.Sprintf("%s/search/%s/%s?%s",
		p.baseURL, url.PathEscape(course.ID.String()), url.PathEscape(date), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	body, err := do(req, SourceTeeQuest, p.opts)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %w", ErrPayload, err)
	}

	records := make([]model.TeeTime, 0)
	doc.Find(".tee-time").Each(func(_ int, sel *goquery.Selection) {
		if tt, ok := p.parseTeeTime(course, sel); ok {
			records = append(records, tt)
		}
	})
	return records, nil
}

func (p *TeeQuest) parseTeeTime(course model.GolfCourse, sel *goquery.Selection) (model.TeeTime, bool) {
	rawTime, ok := sel.Attr("data-date-time")
	if !ok {
		return model.TeeTime{}, false
	}
	rawPrice, ok := sel.Attr("data-price")
	if !ok {
		return model.TeeTime{}, false
	}
	rawAvailable, ok := sel.Attr("data-available")
	if !ok {
		return model.TeeTime{}, false
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(rawPrice), 64)
	if err != nil {
		return model.TeeTime{}, false
	}
	available, err := strconv.ParseUint(strings.TrimSpace(rawAvailable), 10, 32)
	if err != nil {
		return model.TeeTime{}, false
	}
	at, ok := parseCentralWallClock(strings.TrimSpace(rawTime))
	if !ok {
		return model.TeeTime{}, false
	}

	href, _ := sel.Find("a.btn").First().Attr("href")

	return model.NewTeeTime(course, at, price, int(available), holesFromSpans(sel), teeQuestOrigin+href), true
}

// parseCentralWallClock は米国中部時間の壁時計時刻を絶対時刻に変換する。
// 夏時間の切り替えで存在しない時刻、または2回現れる時刻はokがfalseになる。
func parseCentralWallClock(raw string) (time.Time, bool) {
	wall, err := time.Parse(teeQuestDateTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}

	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), 0, 0, centralTime)
	if !sameWallClock(t, wall) {
		return time.Time{}, false
	}
	if sameWallClock(t.Add(time.Hour), wall) || sameWallClock(t.Add(-time.Hour), wall) {
		return time.Time{}, false
	}
	return t, true
}

func sameWallClock(t, wall time.Time) bool {
	y, mo, d := t.Date()
	wy, wmo, wd := wall.Date()
	return y == wy && mo == wmo && d == wd && t.Hour() == wall.Hour() && t.Minute() == wall.Minute()
}

// holesFromSpans はネストしたspanのテキストノードを走査し、最初に見つかった整数をホール数とする。
func holesFromSpans(sel *goquery.Selection) *int {
	var holes *int
	sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		for _, n := range span.Nodes {
			if v, ok := firstIntegerInText(n); ok {
				holes = model.IntPtr(v)
				return false
			}
		}
		return true
	})
	return holes
}

func firstIntegerInText(n *html.Node) (int, bool) {
	var text strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	m := firstInteger.FindString(text.String())
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}
