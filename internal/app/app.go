// Package app は設定・依存関係のワイヤリングとサーバーのライフサイクルを管理する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/teetimes/internal/aggregator"
	"github.com/hitoshi/teetimes/internal/catalog"
	"github.com/hitoshi/teetimes/internal/config"
	"github.com/hitoshi/teetimes/internal/database"
	"github.com/hitoshi/teetimes/internal/handler"
	"github.com/hitoshi/teetimes/internal/logger"
	"github.com/hitoshi/teetimes/internal/metrics"
	"github.com/hitoshi/teetimes/internal/middleware"
	"github.com/hitoshi/teetimes/internal/provider"
	"github.com/hitoshi/teetimes/internal/repository"
	"github.com/hitoshi/teetimes/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	log := logger.SetupDefault(w, cfg.LogLevel)

	return cfg, log, nil
}

// Components はサーバーと単発コマンドが共有する依存関係。
type Components struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Catalog    *catalog.Catalog
	Aggregator *aggregator.Aggregator

	// DB はDATABASE_URLが設定された場合のみ非nil。
	DB *sql.DB
}

// Build は設定から全依存関係を構築する。
// カタログはDATABASE_URLがあればPostgreSQLから、なければCATALOG_PATHのJSONファイルから読み込む。
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. セキュリティサービスの初期化
	guard := security.NewOutboundGuard()
	sanitizer := security.NewTextSanitizer()

	// 3. プロバイダーと集約
	providers := provider.DefaultSet(provider.Options{
		Client:        newProviderClient(cfg, guard),
		Logger:        log,
		Metrics:       collector,
		MaxConcurrent: cfg.ProviderMaxConcurrent,
		MaxBodySize:   cfg.ProviderMaxBodySize,
	})
	agg := aggregator.New(providers, log)

	// 4. カタログ
	comps := &Components{
		Config:     cfg,
		Logger:     log,
		Registry:   reg,
		Aggregator: agg,
	}

	var loader catalog.Loader = catalog.FileLoader{Path: cfg.CatalogPath}
	if cfg.DatabaseURL != "" {
		db, err := database.OpenAndPing(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("database connection established")
		comps.DB = db
		loader = repository.NewPostgresCourseRepo(db)
	}

	cat, err := catalog.Load(ctx, loader, guard, sanitizer, log)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to load course catalog: %w", err)
	}
	comps.Catalog = cat

	return comps, nil
}

// newProviderClient はプロバイダー用HTTPクライアントを生成する。
// PROVIDER_SAFE_CLIENT=false の場合はプライベートアドレス遮断を行わない（ローカルのスタブ相手の検証用）。
func newProviderClient(cfg *config.Config, guard security.OutboundGuard) *http.Client {
	if cfg.ProviderSafeClient {
		return guard.NewProviderClient(cfg.ProviderTimeout)
	}
	return &http.Client{Timeout: cfg.ProviderTimeout}
}

// Close は保持しているリソースを解放する。
func (c *Components) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// NewServer はルーターを組み立てたhttp.Serverを返す。
// rlがnilの場合はレート制限を行わない。
func NewServer(c *Components, rl *middleware.RateLimiter) *http.Server {
	deps := &handler.RouterDeps{
		Catalog:  c.Catalog,
		Searcher: c.Aggregator,
		Defaults: handler.SearchDefaults{
			Location: c.Config.Location,
			Players:  c.Config.DefaultPlayers,
		},
		MetricsGatherer:   c.Registry,
		CORSAllowedOrigin: c.Config.CORSAllowedOrigin,
		RateLimiter:       rl,
		TrustProxyHeaders: c.Config.TrustProxyHeaders,
		Logger:            c.Logger,
	}
	if c.DB != nil {
		deps.HealthChecker = c.DB
	}

	// 検索1回で全プロバイダーに問い合わせるため、書き込みタイムアウトはプロバイダーのタイムアウトより長く取る
	writeTimeout := c.Config.ProviderTimeout*2 + 15*time.Second

	return &http.Server{
		Addr:         ":" + c.Config.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// Serve はAPIサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func Serve(ctx context.Context, c *Components) error {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigFromPerMinute(
		c.Config.RateLimitGeneral, c.Config.RateLimitSearch,
	))
	defer rl.Stop()

	server := NewServer(c, rl)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("API server starting",
			slog.String("addr", ln.Addr().String()),
			slog.Int("courses", c.Catalog.Len()),
			slog.Any("providers", c.Aggregator.ProviderNames()),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	c.Logger.Info("API server stopped gracefully")
	return nil
}

// RunMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func RunMigrate(cfg *config.Config, log *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrations")
	}

	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	log.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// RunMigrateDown は適用済みのマイグレーションをすべて取り消す。
func RunMigrateDown(cfg *config.Config, log *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrations")
	}

	log.Warn("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	log.Info("database migrations rolled back")
	return nil
}

// ImportCatalog はJSONファイルのカタログを正規化してPostgreSQLに取り込む。
// 既存のカタログは置き換える。取り込んだコース数を返す。
func ImportCatalog(ctx context.Context, cfg *config.Config, log *slog.Logger, path string) (int, error) {
	if cfg.DatabaseURL == "" {
		return 0, errors.New("DATABASE_URL is required to import a catalog")
	}

	courses, err := catalog.FileLoader{Path: path}.Load(ctx)
	if err != nil {
		return 0, err
	}
	courses = catalog.Normalize(courses, security.NewOutboundGuard(), security.NewTextSanitizer(), log)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return 0, fmt.Errorf("migration failed: %w", err)
	}

	db, err := database.OpenAndPing(ctx, cfg.DatabaseURL)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	repo := repository.NewPostgresCourseRepo(db)
	if err := repo.ReplaceAll(ctx, courses); err != nil {
		return 0, err
	}

	log.Info("course catalog imported",
		slog.String("path", path),
		slog.Int("courses", len(courses)),
	)
	return len(courses), nil
}

// HealthcheckURL はローカルで動作するサーバーの/health URLを返す。
func HealthcheckURL(port string) string {
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// RunHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンドから呼ばれる。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func RunHealthcheck(ctx context.Context, healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("xxxxx")
	}
	u.RawQuery = ""
	return u.String()
}
