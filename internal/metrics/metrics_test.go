package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルに一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordFetchSuccess_IncrementsCounters は成功カウンタと取得件数が増加することを検証する。
func TestRecordFetchSuccess_IncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchSuccess("foreup", 4)
	c.RecordFetchSuccess("foreup", 6)

	m := findMetric(t, reg, "teetimes_provider_fetch_success_total", map[string]string{"provider": "foreup"})
	if m == nil {
		t.Fatal("teetimes_provider_fetch_success_total{provider=foreup} not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("fetch_success_total = %v, want 2", got)
	}

	m = findMetric(t, reg, "teetimes_provider_records_total", map[string]string{"provider": "foreup"})
	if m == nil {
		t.Fatal("teetimes_provider_records_total{provider=foreup} not found")
	}
	if got := m.GetCounter().GetValue(); got != 10 {
		t.Errorf("records_total = %v, want 10", got)
	}
}

// TestRecordFetchFailure_IncrementsCounterWithReason は失敗カウンタが原因ラベル付きで増加することを検証する。
func TestRecordFetchFailure_IncrementsCounterWithReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchFailure("teeitup", "transport")
	c.RecordFetchFailure("teeitup", "payload")
	c.RecordFetchFailure("teeitup", "payload")

	m := findMetric(t, reg, "teetimes_provider_fetch_fail_total", map[string]string{"provider": "teeitup", "reason": "payload"})
	if m == nil {
		t.Fatal("fetch_fail_total{reason=payload} not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("fetch_fail_total{reason=payload} = %v, want 2", got)
	}

	m = findMetric(t, reg, "teetimes_provider_fetch_fail_total", map[string]string{"provider": "teeitup", "reason": "transport"})
	if m == nil {
		t.Fatal("fetch_fail_total{reason=transport} not found")
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("fetch_fail_total{reason=transport} = %v, want 1", got)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別カウンタを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus("golfback", 200)
	c.RecordHTTPStatus("golfback", 200)
	c.RecordHTTPStatus("golfback", 503)

	m := findMetric(t, reg, "teetimes_provider_http_status_total", map[string]string{"provider": "golfback", "status_code": "200"})
	if m == nil {
		t.Fatal("http_status_total{status_code=200} not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("http_status_total{200} = %v, want 2", got)
	}

	m = findMetric(t, reg, "teetimes_provider_http_status_total", map[string]string{"provider": "golfback", "status_code": "503"})
	if m == nil {
		t.Fatal("http_status_total{status_code=503} not found")
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("http_status_total{503} = %v, want 1", got)
	}
}

// TestRecordFetchLatency_ObservesHistogram はレイテンシのヒストグラムを検証する。
func TestRecordFetchLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchLatency("bookateetime", 250*time.Millisecond)
	c.RecordFetchLatency("bookateetime", 750*time.Millisecond)

	m := findMetric(t, reg, "teetimes_provider_fetch_latency_seconds", map[string]string{"provider": "bookateetime"})
	if m == nil {
		t.Fatal("fetch_latency_seconds not found")
	}
	h := m.GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if h.GetSampleSum() != 1.0 {
		t.Errorf("sample sum = %v, want 1.0", h.GetSampleSum())
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はインターフェース適合を検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
}

// TestMultipleCollectors_IndependentRegistries はレジストリごとに独立して登録できることを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordFetchSuccess("foreup", 1)

	if m := findMetric(t, reg2, "teetimes_provider_fetch_success_total", map[string]string{"provider": "foreup"}); m != nil {
		t.Error("reg2 must not observe reg1's samples")
	}
}
