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
// カタログサービスやミドルウェアから利用する。
type MetricsCollector interface {
	RecordProviderSuccess(source string)
	RecordProviderFailure(source string, reason string)
	RecordProviderLatency(source string, duration time.Duration)
	RecordGamesInserted(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	providerSuccess *prometheus.CounterVec
	providerFail    *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	gamesInserted   prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamedex_provider_fetch_success_total",
			Help: "プロバイダー別のゲーム取得成功の合計数",
		}, []string{"source"}),
		providerFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamedex_provider_fetch_fail_total",
			Help: "プロバイダー別のゲーム取得失敗の合計数",
		}, []string{"source"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gamedex_provider_fetch_latency_seconds",
			Help:    "プロバイダーAPIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		gamesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamedex_games_inserted_total",
			Help: "カタログに挿入されたゲームの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamedex_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.providerSuccess,
		c.providerFail,
		c.providerLatency,
		c.gamesInserted,
		c.httpStatus,
	)

	return c
}

// RecordProviderSuccess はプロバイダーからの取得成功を記録する。
func (c *Collector) RecordProviderSuccess(source string) {
	c.providerSuccess.WithLabelValues(source).Inc()
}

// RecordProviderFailure はプロバイダーからの取得失敗を記録する。
func (c *Collector) RecordProviderFailure(source string, reason string) {
	c.providerFail.WithLabelValues(source).Inc()
}

// RecordProviderLatency はプロバイダーAPIのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(source string, duration time.Duration) {
	c.providerLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordGamesInserted は挿入されたゲーム数を記録する。
func (c *Collector) RecordGamesInserted(count int) {
	c.gamesInserted.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
