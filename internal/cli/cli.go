package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hitoshi/teetimes/internal/app"
	"github.com/hitoshi/teetimes/internal/catalog"
	"github.com/hitoshi/teetimes/internal/config"
	"github.com/hitoshi/teetimes/internal/logger"
	"github.com/hitoshi/teetimes/internal/model"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// NewRootCmd はルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして動作する。
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teetimes",
		Short: "Aggregate golf tee times across booking providers",
		Long: `teetimes searches several golf booking providers for open tee times
around a location and returns one normalized list.

Configuration is read from environment variables (CATALOG_PATH, DATABASE_URL,
TIMEZONE, PROVIDER_TIMEOUT, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newCoursesCmd(),
		newMigrateCmd(),
		newImportCatalogCmd(),
		newHealthcheckCmd(),
	)

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

// runServe はAPIサーバーを起動する。SIGINT/SIGTERMでグレースフルシャットダウンする。
func runServe(cmd *cobra.Command) error {
	cfg, log, err := app.Init(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer comps.Close()

	return app.Serve(ctx, comps)
}

type searchOptions struct {
	date    string
	players int
	coords  string
	format  string
	sort    string
	timeout time.Duration
	quiet   bool
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search all providers once and print the tee times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "Date to search (YYYY-MM-DD, default: today in TIMEZONE)")
	cmd.Flags().IntVar(&opts.players, "players", -1, "Number of players (default: DEFAULT_PLAYERS)")
	cmd.Flags().StringVar(&opts.coords, "coords", "", `Bounding box JSON, e.g. {"min_lat":38.7,"max_lat":39.4,"min_lon":-94.9,"max_lon":-94.2}`)
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.sort, "sort", "provider", "Sort order: provider, time, or price")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Overall search timeout")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress log output on stderr")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(opts.sort)
	if err != nil {
		return err
	}
	box, err := parseCoords(opts.coords)
	if err != nil {
		return err
	}

	// ログは標準エラーに出し、標準出力は結果のみにする
	cfg, log, err := initQuietable(cmd, opts.quiet)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	comps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer comps.Close()

	date := opts.date
	if date == "" {
		date = time.Now().In(cfg.Location).Format("2006-01-02")
	}
	players := opts.players
	if players < 0 {
		players = cfg.DefaultPlayers
	}

	courses := comps.Catalog.Select(box)
	teeTimes := comps.Aggregator.GetTeeTimes(ctx, courses, date, players)
	sortTeeTimes(teeTimes, order)

	return writeTeeTimes(cmd.OutOrStdout(), &SearchResult{
		Date:     date,
		Players:  players,
		Courses:  len(courses),
		TeeTimes: teeTimes,
	}, format, cfg.Location)
}

type coursesOptions struct {
	coords string
	format string
	quiet  bool
}

func newCoursesCmd() *cobra.Command {
	opts := &coursesOptions{}

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List catalog courses inside a bounding box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCourses(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.coords, "coords", "", "Bounding box JSON (default: Kansas City metro)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress log output on stderr")

	return cmd
}

func runCourses(cmd *cobra.Command, opts *coursesOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	box, err := parseCoords(opts.coords)
	if err != nil {
		return err
	}

	cfg, log, err := initQuietable(cmd, opts.quiet)
	if err != nil {
		return err
	}

	comps, err := app.Build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer comps.Close()

	return writeCourses(cmd.OutOrStdout(), comps.Catalog.Select(box), format)
}

// initQuietable は単発コマンド用にログを標準エラーへ向けて初期化する。
// quietの場合はすべてのログを破棄する。
func initQuietable(cmd *cobra.Command, quiet bool) (*config.Config, *slog.Logger, error) {
	cfg, log, err := app.Init(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("initialization failed: %w", err)
	}
	if quiet {
		log = logger.Discard()
		slog.SetDefault(log)
	}
	return cfg, log, nil
}

func newMigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back) the course catalog schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := app.Init(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			if down {
				return app.RunMigrateDown(cfg, log)
			}
			return app.RunMigrate(cfg, log)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back all migrations")

	return cmd
}

func newImportCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog [path]",
		Short: "Load a JSON course catalog into PostgreSQL",
		Long: `Reads a JSON course catalog (default: CATALOG_PATH), drops courses whose
booking URL is unsafe, and replaces the catalog stored in DATABASE_URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := app.Init(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			path := cfg.CatalogPath
			if len(args) == 1 {
				path = args[0]
			}

			n, err := app.ImportCatalog(cmd.Context(), cfg, log, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d courses from %s\n", n, path)
			return nil
		},
	}
}

func newHealthcheckCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local server's /health endpoint",
		Args:  cobra.NoArgs,
		// 軽量サブコマンドのため、フル初期化をスキップする
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = envOr("SERVER_PORT", envOr("PORT", "8080"))
			}
			return app.RunHealthcheck(cmd.Context(), app.HealthcheckURL(port))
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Server port (default: SERVER_PORT or 8080)")

	return cmd
}

// parseCoords はフラグで渡された範囲を解析する。
// HTTP APIと異なり、CLIでは不正な値を黙って無視せずエラーにする。
func parseCoords(raw string) (*model.BoundingBox, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	box := catalog.ParseBoundingBox(raw)
	if box == nil {
		return nil, fmt.Errorf("invalid --coords: %s (need min_lat, max_lat, min_lon, max_lon)", raw)
	}
	return box, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Execute はCLIを実行し、終了コードを返す。
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
