package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// counterValue は指定メトリクスのカウンタ値を返す。ラベルはsource用。
func counterValue(t *testing.T, reg *prometheus.Registry, name, source string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if source == "" {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetName() == "source" && l.GetValue() == source {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestRecordProviderSuccess_IncrementsCounter はプロバイダー成功カウンタが
// source別に増加することを検証する。
func TestRecordProviderSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProviderSuccess("igdb")
	c.RecordProviderSuccess("igdb")
	c.RecordProviderSuccess("rawg")

	if got := counterValue(t, reg, "gamedex_provider_fetch_success_total", "igdb"); got != 2 {
		t.Errorf("igdb success = %v, want 2", got)
	}
	if got := counterValue(t, reg, "gamedex_provider_fetch_success_total", "rawg"); got != 1 {
		t.Errorf("rawg success = %v, want 1", got)
	}
}

// TestRecordProviderFailure_IncrementsCounter はプロバイダー失敗カウンタが増加することを検証する。
func TestRecordProviderFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProviderFailure("rawg", "timeout")

	if got := counterValue(t, reg, "gamedex_provider_fetch_fail_total", "rawg"); got != 1 {
		t.Errorf("rawg fail = %v, want 1", got)
	}
}

// TestRecordGamesInserted_AddsCount は挿入件数が加算されることを検証する。
func TestRecordGamesInserted_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGamesInserted(12)
	c.RecordGamesInserted(8)

	if got := counterValue(t, reg, "gamedex_games_inserted_total", ""); got != 20 {
		t.Errorf("games_inserted_total = %v, want 20", got)
	}
}

// TestRecordHTTPStatus_CountsByStatusCode はステータスコード別に集計されることを検証する。
func TestRecordHTTPStatus_CountsByStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(502)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range metrics {
		if mf.GetName() != "gamedex_http_status_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status_code" {
					counts[l.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}

	if counts["200"] != 2 {
		t.Errorf("status 200 count = %v, want 2", counts["200"])
	}
	if counts["502"] != 1 {
		t.Errorf("status 502 count = %v, want 1", counts["502"])
	}
}

// TestRecordProviderLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordProviderLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProviderLatency("igdb", 150*time.Millisecond)
	c.RecordProviderLatency("igdb", 300*time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "gamedex_provider_fetch_latency_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
				t.Errorf("sample count = %d, want 2", count)
			}
		}
	}
	if !found {
		t.Error("gamedex_provider_fetch_latency_seconds metric not found")
	}
}

// CollectorはMetricsCollectorインターフェースを満たすことを検証
var _ MetricsCollector = (*Collector)(nil)
