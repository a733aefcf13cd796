// Package provider は外部ティータイム予約プラットフォームごとのアダプターを提供する。
// 各アダプターはコース・日付・人数からプロバイダー固有のリクエストを組み立て、
// レスポンスを model.TeeTime に正規化する。
package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/teetimes/internal/metrics"
	"github.com/hitoshi/teetimes/internal/model"
)

// プロバイダーのsourceタグ。カタログのGolfCourse.Sourceと一致したコースのみ検索対象となる。
const (
	SourceTeeQuest = "bookateetime"
	SourceGolfBack = "golfback"
	SourceForeUp   = "foreup"
	SourceTeeItUp  = "teeitup"
)

// Provider はプロバイダーアダプターの共通インターフェース。
// Search はエラーを返さない。コース単位の失敗はログとメトリクスにのみ記録され、
// そのコースの結果が空になる。
type Provider interface {
	Name() string
	Search(ctx context.Context, courses []model.GolfCourse, date string, players int) []model.TeeTime
}

// 失敗原因の分類。メトリクスのreasonラベルに使用する。
var (
	// ErrTransport は接続・タイムアウト・名前解決などの通信エラー。
	ErrTransport = errors.New("transport error")
	// ErrStatus はプロバイダーが2xx以外のステータスを返したことを表す。
	ErrStatus = errors.New("unexpected status")
	// ErrPayload はレスポンスが期待する構造でないことを表す。
	ErrPayload = errors.New("malformed payload")
	// ErrInputDate は入力された日付文字列が不正なことを表す。
	ErrInputDate = errors.New("invalid date")
	// ErrUnsupportedID はコースIDの形状がプロバイダーの要求を満たさないことを表す。
	ErrUnsupportedID = errors.New("unsupported course id")
	// ErrPanic はアダプター内部でpanicが発生したことを表す。
	ErrPanic = errors.New("adapter panic")
)

// FailureReason はエラーをメトリクス用の原因ラベルに変換する。
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrPayload):
		return "payload"
	case errors.Is(err, ErrInputDate):
		return "input"
	case errors.Is(err, ErrUnsupportedID):
		return "unsupported_id"
	case errors.Is(err, ErrPanic):
		return "panic"
	default:
		return "unknown"
	}
}

const (
	defaultTimeout       = 15 * time.Second
	defaultMaxBodySize   = 5 * 1024 * 1024
	defaultMaxConcurrent = 10

	// browserUserAgent はブラウザ以外のクライアントを拒否するプロバイダー向けの固定値。
	browserUserAgent = "Mozilla/5.0"
)

// Options はアダプター共通の依存関係と制限値。
type Options struct {
	// Client はプロバイダーへのHTTPクライアント。nilの場合はタイムアウト付きの標準クライアントを使用する。
	Client *http.Client
	Logger *slog.Logger
	// Metrics がnilの場合は記録しない。
	Metrics metrics.MetricsCollector
	// MaxConcurrent は1プロバイダーあたりの同時リクエスト数の上限。
	MaxConcurrent int
	// MaxBodySize はレスポンスボディの最大読み取りバイト数。
	MaxBodySize int64
	// BaseURLs はsourceタグごとのAPIベースURLの上書き。未指定のプロバイダーは本番URLを使う。
	BaseURLs map[string]string
}

// baseURL はsourceタグに対応する上書きURLがあればそれを、なければdefaultURLを返す。
func (o Options) baseURL(source, defaultURL string) string {
	if u, ok := o.BaseURLs[source]; ok && u != "" {
		return u
	}
	return defaultURL
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: defaultTimeout}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = defaultMaxConcurrent
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = defaultMaxBodySize
	}
	return o
}

// DefaultSet は集約時の固定順序（TeeQuest, GolfBack, ForeUp, TeeItUp）でアダプターを返す。
func DefaultSet(opts Options) []Provider {
	return []Provider{
		NewTeeQuest(opts),
		NewGolfBack(opts),
		NewForeUp(opts),
		NewTeeItUp(opts),
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordFetchSuccess(string, int) {}
func (nopMetrics) RecordFetchFailure(string, string) {}
func (nopMetrics) RecordHTTPStatus(string, int) {}
func (nopMetrics) RecordFetchLatency(string, time.Duration) {}
