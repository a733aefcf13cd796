package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/teetimes/internal/metrics"
	"github.com/hitoshi/teetimes/internal/middleware"
	"github.com/hitoshi/teetimes/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Catalog  CourseCatalog
	Searcher TeeTimeSearcher
	Defaults SearchDefaults

	// 任意。DBからカタログを読み込んだ場合に/healthで疎通確認する。
	HealthChecker HealthChecker
	// 任意。指定された場合は/metricsを公開する。
	MetricsGatherer prometheus.Gatherer

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TrustProxyHeaders bool

	Logger *slog.Logger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	(RealIP) → RequestID → Logging → Recovery → SecurityHeaders → CORS
//
// /courses と /tee_times には GeneralMiddleware、/tee_times にはさらに SearchMiddleware を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, model.NewMethodNotAllowedError(r.Method))
	})

	h := NewTeeTimeHandler(deps.Catalog, deps.Searcher, deps.Defaults, logger)

	// --- レート制限なし ---
	r.Get("/", Root)
	r.Get("/health", NewHealthHandler(deps.Catalog, deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}
		r.Get("/courses", h.ListCourses)
	})

	// ティータイム検索は常に200を返す。制限はRATE_LIMIT_SEARCHを指定した場合のみ
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.SearchMiddleware())
		}
		r.Get("/tee_times", h.SearchTeeTimes)
	})

	return r
}
