package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Catalog
	CatalogPath string
	DatabaseURL string

	// Provider
	ProviderTimeout       time.Duration
	ProviderMaxBodySize   int64
	ProviderMaxConcurrent int
	ProviderSafeClient    bool

	// Search defaults
	DefaultPlayers int
	Timezone       string
	Location       *time.Location

	// Rate Limit (req/min/client)。0は無制限
	RateLimitGeneral int
	RateLimitSearch  int

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// リバースプロキシ配下でX-Forwarded-For / X-Real-IPを信頼するか
	TrustProxyHeaders bool
}

// Load は環境変数からConfigを読み込む。
// カタログの読み込み元が指定されていない場合、またはタイムゾーン・ログレベルが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.CatalogPath = getEnvString("CATALOG_PATH", "data/golf_courses.json")
	if cfg.DatabaseURL == "" && strings.TrimSpace(cfg.CatalogPath) == "" {
		return nil, fmt.Errorf("required environment variables are not set: one of [CATALOG_PATH DATABASE_URL]")
	}

	cfg.Timezone = getEnvString("TIMEZONE", "America/Chicago")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	level, err := ParseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Optional fields with defaults
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second)
	cfg.ProviderMaxBodySize = getEnvInt64("PROVIDER_MAX_BODY_SIZE", 5242880)
	cfg.ProviderMaxConcurrent = getEnvInt("PROVIDER_MAX_CONCURRENT", 10)
	cfg.ProviderSafeClient = getEnvBool("PROVIDER_SAFE_CLIENT", true)
	cfg.DefaultPlayers = getEnvInt("DEFAULT_PLAYERS", 4)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSearch = getEnvInt("RATE_LIMIT_SEARCH", 0)
	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "8080"))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)

	if cfg.DefaultPlayers < 0 {
		cfg.DefaultPlayers = 4
	}

	return cfg, nil
}

// ParseLogLevel はLOG_LEVELの値をslog.Levelに変換する。
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
