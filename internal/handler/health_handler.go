package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker は依存先（データベース）の疎通確認を行うインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthResponse は/healthのレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Courses int    `json:"courses"`
}

// bannerText はルートパスで返す固定文字列。
const bannerText = "Tee time aggregator. Try /courses or /tee_times."

// Root はサービス名を返すだけの疎通確認用エンドポイント。
func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(bannerText))
}

// NewHealthHandler はヘルスチェックハンドラーを返す。
// checkerがnilの場合（JSONファイルからカタログを読み込んだ場合）はカタログの状態のみ返す。
func NewHealthHandler(catalog CourseCatalog, checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Courses: catalog.Len()}

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				resp.Status = "unavailable"
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
