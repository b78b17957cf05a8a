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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure(stage string)
	RecordPinCreated()
	RecordPathCreated()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	loginSuccess    prometheus.Counter
	loginFail       *prometheus.CounterVec
	pinsCreated     prometheus.Counter
	pathsCreated    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pinmap_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pinmap_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pinmap_login_fail_total",
			Help: "ログイン失敗の段階別合計数",
		}, []string{"stage"}),
		pinsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_pins_created_total",
			Help: "作成されたピンの合計数",
		}),
		pathsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_paths_created_total",
			Help: "作成された経路の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.loginSuccess,
		c.loginFail,
		c.pinsCreated,
		c.pathsCreated,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を失敗段階のラベル付きで記録する。
func (c *Collector) RecordLoginFailure(stage string) {
	c.loginFail.WithLabelValues(stage).Inc()
}

// RecordPinCreated はピンの作成を記録する。
func (c *Collector) RecordPinCreated() {
	c.pinsCreated.Inc()
}

// RecordPathCreated は経路の作成を記録する。
func (c *Collector) RecordPathCreated() {
	c.pathsCreated.Inc()
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
