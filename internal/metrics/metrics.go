// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordAuthSuccess(operation string)
	RecordAuthFailure(operation string)
	RecordToolCall(tool string)
	RecordToolError(tool string)
	RecordToolLatency(duration time.Duration)
	RecordPartitionFlush()
	RecordSessionsSwept(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authSuccess    *prometheus.CounterVec
	authFailure    *prometheus.CounterVec
	toolCalls      *prometheus.CounterVec
	toolErrors     *prometheus.CounterVec
	toolLatency    prometheus.Histogram
	partitionFlush prometheus.Counter
	sessionsSwept  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memgraph_auth_success_total",
			Help: "認証操作成功の合計数",
		}, []string{"operation"}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memgraph_auth_failure_total",
			Help: "認証操作失敗の合計数",
		}, []string{"operation"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memgraph_tool_calls_total",
			Help: "メモリツール呼び出しの合計数",
		}, []string{"tool"}),
		toolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memgraph_tool_errors_total",
			Help: "メモリツール呼び出し失敗の合計数",
		}, []string{"tool"}),
		toolLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memgraph_tool_latency_seconds",
			Help:    "メモリツール呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		partitionFlush: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memgraph_partition_flush_total",
			Help: "ユーザーパーティションのディスク書き込み回数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memgraph_sessions_swept_total",
			Help: "掃除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFailure,
		c.toolCalls,
		c.toolErrors,
		c.toolLatency,
		c.partitionFlush,
		c.sessionsSwept,
	)

	return c
}

// RecordAuthSuccess は認証操作の成功を記録する。
func (c *Collector) RecordAuthSuccess(operation string) {
	c.authSuccess.WithLabelValues(operation).Inc()
}

// RecordAuthFailure は認証操作の失敗を記録する。
func (c *Collector) RecordAuthFailure(operation string) {
	c.authFailure.WithLabelValues(operation).Inc()
}

// RecordToolCall はツール呼び出しを記録する。
func (c *Collector) RecordToolCall(tool string) {
	c.toolCalls.WithLabelValues(tool).Inc()
}

// RecordToolError はツール呼び出しの失敗を記録する。
func (c *Collector) RecordToolError(tool string) {
	c.toolErrors.WithLabelValues(tool).Inc()
}

// RecordToolLatency はツール呼び出しのレイテンシを記録する。
func (c *Collector) RecordToolLatency(duration time.Duration) {
	c.toolLatency.Observe(duration.Seconds())
}

// RecordPartitionFlush はパーティションのディスク書き込みを記録する。
func (c *Collector) RecordPartitionFlush() {
	c.partitionFlush.Inc()
}

// RecordSessionsSwept は掃除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int) {
	c.sessionsSwept.Add(float64(count))
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
