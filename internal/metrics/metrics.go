// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// プロバイダーアダプターから利用する。
type MetricsCollector interface {
	RecordFetchSuccess(provider string, records int)
	RecordFetchFailure(provider string, reason string)
	RecordHTTPStatus(provider string, statusCode int)
	RecordFetchLatency(provider string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess   *prometheus.CounterVec
	fetchFail      *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	recordsFetched *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teetimes_provider_fetch_success_total",
			Help: "コース単位のプロバイダーフェッチ成功数",
		}, []string{"provider"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teetimes_provider_fetch_fail_total",
			Help: "コース単位のプロバイダーフェッチ失敗数（原因別）",
		}, []string{"provider", "reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teetimes_provider_http_status_total",
			Help: "プロバイダー別・HTTPステータスコード別のレスポンス数",
		}, []string{"provider", "status_code"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teetimes_provider_fetch_latency_seconds",
			Help:    "コース単位のプロバイダーフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		recordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teetimes_provider_records_total",
			Help: "プロバイダーから取得したティータイムの合計数",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.httpStatus,
		c.fetchLatency,
		c.recordsFetched,
	)

	return c
}

// RecordFetchSuccess はフェッチ成功と取得件数を記録する。
func (c *Collector) RecordFetchSuccess(provider string, records int) {
	c.fetchSuccess.WithLabelValues(provider).Inc()
	c.recordsFetched.WithLabelValues(provider).Add(float64(records))
}

// RecordFetchFailure はフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure(provider string, reason string) {
	c.fetchFail.WithLabelValues(provider, reason).Inc()
}

// RecordHTTPStatus はプロバイダーが返したHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(provider string, statusCode int) {
	c.httpStatus.WithLabelValues(provider, strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(provider string, duration time.Duration) {
	c.fetchLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
