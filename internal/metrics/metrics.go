// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/taskhub/internal/item"
)

// resultOK は成功した操作のresultラベル値。
const resultOK = "ok"

// Collector はPrometheusメトリクスを収集する実装。
// item.EventSinkとして項目操作を、HTTPミドルウェアからリクエストを記録する。
type Collector struct {
	itemOps      *prometheus.CounterVec
	listResults  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		itemOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_item_operations_total",
			Help: "種別・操作・結果別の項目操作数",
		}, []string{"kind", "action", "result"}),
		listResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_list_results",
			Help:    "一覧取得1回あたりの件数",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.itemOps,
		c.listResults,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// Record は項目操作イベントを記録する。item.EventSinkを実装する。
func (c *Collector) Record(_ context.Context, ev item.Event) {
	result := resultOK
	if !ev.Succeeded() {
		result = strings.ToLower(ev.ErrCode)
	}
	c.itemOps.WithLabelValues(string(ev.Kind), string(ev.Action), result).Inc()

	if ev.Action == item.ActionList && ev.Succeeded() {
		c.listResults.WithLabelValues(string(ev.Kind)).Observe(float64(ev.Count))
	}
}

// RecordHTTPRequest はHTTPリクエストのステータスコードと処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ item.EventSink = (*Collector)(nil)
