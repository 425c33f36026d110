package prometheus

import (
	"strconv"
	"time"

	"aceitubank/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var _ metrics.Collector = (*PrometheusCollector)(nil)

// PrometheusCollector 以 Prometheus 實作 metrics.Collector。
type PrometheusCollector struct {
	namespace string

	// 轉帳
	transfersTotal   *prometheus.CounterVec
	transferVolume   prometheus.Counter
	transferDuration *prometheus.HistogramVec

	// 登入
	loginsTotal *prometheus.CounterVec

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewPrometheusCollector 建立 Prometheus 指標收集器。
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		transfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of transfer attempts by outcome",
			},
			[]string{"outcome"},
		),
		transferVolume: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_volume_total",
				Help:      "Sum of amounts moved by completed transfers",
			},
		),
		transferDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer procedure latency, including row locking",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"outcome"},
		),
		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register 將所有指標註冊到指定的 registry。
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.transfersTotal,
		pc.transferVolume,
		pc.transferDuration,
		pc.loginsTotal,
		pc.httpRequestsTotal,
		pc.httpRequestDuration,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordTransfer 記錄一次轉帳嘗試。
func (pc *PrometheusCollector) RecordTransfer(outcome string, amount float64, duration time.Duration) {
	pc.transfersTotal.WithLabelValues(outcome).Inc()
	if outcome == metrics.OutcomeCompleted && amount > 0 {
		pc.transferVolume.Add(amount)
	}
	pc.transferDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordLogin 記錄一次登入嘗試。
func (pc *PrometheusCollector) RecordLogin(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	pc.loginsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest 記錄一個已處理的 HTTP 請求。
func (pc *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	pc.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pc.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
