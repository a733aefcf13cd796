package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/teetimes/internal/catalog"
	"github.com/hitoshi/teetimes/internal/model"
)

// dateLayout はdateクエリパラメータの形式。
const dateLayout = "2006-01-02"

// CourseCatalog はハンドラーが必要とするコースカタログのインターフェース。
type CourseCatalog interface {
	// Select は範囲内のコースをカタログ順で返す。boxがnilの場合はデフォルト範囲を使う。
	Select(box *model.BoundingBox) []model.GolfCourse
	// Len はカタログに登録されたコース数を返す。
	Len() int
}

// TeeTimeSearcher は全プロバイダーへの検索を行うインターフェース。
type TeeTimeSearcher interface {
	GetTeeTimes(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime
}

// SearchDefaults はクエリパラメータが省略された場合の既定値。
type SearchDefaults struct {
	// Location は既定の日付（今日）を決めるタイムゾーン。
	Location *time.Location
	// Players は既定のプレー人数。
	Players int
}

// TeeTimeHandler はコース一覧とティータイム検索のHTTPハンドラー。
type TeeTimeHandler struct {
	catalog  CourseCatalog
	searcher TeeTimeSearcher
	defaults SearchDefaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewTeeTimeHandler はTeeTimeHandlerを生成する。
func NewTeeTimeHandler(catalog CourseCatalog, searcher TeeTimeSearcher, defaults SearchDefaults, logger *slog.Logger) *TeeTimeHandler {
	if defaults.Location == nil {
		defaults.Location = time.UTC
	}
	if defaults.Players < 0 {
		defaults.Players = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TeeTimeHandler{
		catalog:  catalog,
		searcher: searcher,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// ListCourses は範囲内のコース一覧を返す。
// GET /courses?coords={"min_lat":..,"max_lat":..,"min_lon":..,"max_lon":..}
func (h *TeeTimeHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	box := catalog.ParseBoundingBox(r.URL.Query().Get("coords"))
	courses := h.catalog.Select(box)
	if courses == nil {
		courses = []model.GolfCourse{}
	}
	writeJSON(w, http.StatusOK, courses)
}

// SearchTeeTimes は範囲内の全コースについて空き枠を検索する。
// GET /tee_times?coords=..&date=YYYY-MM-DD&players=N
// プロバイダーの失敗は結果から除外されるだけで、常に200とJSON配列を返す。
func (h *TeeTimeHandler) SearchTeeTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	box := catalog.ParseBoundingBox(q.Get("coords"))
	date := h.resolveDate(q.Get("date"))
	players := h.resolvePlayers(q.Get("players"))

	courses := h.catalog.Select(box)

	h.logger.Debug("tee time search",
		slog.String("date", date),
		slog.Int("players", players),
		slog.Int("courses", len(courses)),
		slog.Bool("default_box", box == nil),
	)

	teeTimes := h.searcher.GetTeeTimes(r.Context(), courses, date, players)
	if teeTimes == nil {
		teeTimes = []model.TeeTime{}
	}
	writeJSON(w, http.StatusOK, teeTimes)
}

// resolveDate はdateパラメータを返す。省略時は既定タイムゾーンでの今日の日付を使う。
// 形式の検証は行わず、そのままプロバイダーに渡す。
func (h *TeeTimeHandler) resolveDate(raw string) string {
	if raw = strings.TrimSpace(raw); raw != "" {
		return raw
	}
	return h.now().In(h.defaults.Location).Format(dateLayout)
}

// resolvePlayers はplayersパラメータを非負整数として解析する。
// 省略時・解析失敗時は既定値を使う。
func (h *TeeTimeHandler) resolvePlayers(raw string) int {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 31)
	if err != nil {
		return h.defaults.Players
	}
	return int(n)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
