package provider

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
)

// newTestLogger はテスト用のJSONロガーを生成する。
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mockMetrics はMetricsCollectorのテスト用モック。
type mockMetrics struct {
	mu        sync.Mutex
	successes map[string]int
	records   map[string]int
	failures  map[string][]string
	statuses  map[string][]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		successes: make(map[string]int),
		records:   make(map[string]int),
		failures:  make(map[string][]string),
		statuses:  make(map[string][]int),
	}
}

func (m *mockMetrics) RecordFetchSuccess(provider string, records int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes[provider]++
	m.records[provider] += records
}

func (m *mockMetrics) RecordFetchFailure(provider string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[provider] = append(m.failures[provider], reason)
}

func (m *mockMetrics) RecordHTTPStatus(provider string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[provider] = append(m.statuses[provider], statusCode)
}

func (m *mockMetrics) RecordFetchLatency(string, time.Duration) {}

// testOptions はhttptestサーバー向けのOptionsを返す。
func testOptions(client *http.Client, buf *bytes.Buffer, m *mockMetrics) Options {
	opts := Options{
		Client: client,
		Logger: newTestLogger(buf),
	}
	if m != nil {
		opts.Metrics = m
	}
	return opts
}

func numberCourse(id int64, name, source string) model.GolfCourse {
	return model.GolfCourse{
		ID:     model.NewNumberCourseID(id),
		Name:   name,
		Lat:    39.0,
		Lon:    -94.5,
		Source: source,
	}
}
