// Package metrics exposes Prometheus collectors for the ledger and its
// background workers. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "committee"

// Outcomes used as the "result" label.
const (
	ResultRecorded     = "recorded"
	ResultInvalid      = "invalid"
	ResultUnauthorized = "unauthorized"
	ResultOK           = "ok"
	ResultError        = "error"
	ResultDuplicate    = "duplicate"
)

type Metrics struct {
	registry *prometheus.Registry

	transactions    *prometheus.CounterVec
	funds           *prometheus.GaugeVec
	publishFailures prometheus.Counter
	backups         *prometheus.CounterVec
	mirrored        *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions submitted to the ledger, by result.",
		}, []string{"result"}),
		funds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "funds_kd",
			Help:      "Current balance, emergency reserve and available funds in KD.",
		}, []string{"kind"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Ledger events that could not be published.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backup attempts, by result.",
		}, []string{"result"}),
		mirrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirrored_rows_total",
			Help:      "Transactions mirrored to the spreadsheet, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(
		m.transactions, m.funds, m.publishFailures, m.backups, m.mirrored,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TransactionSubmitted(result string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(result).Inc()
}

func (m *Metrics) SetFunds(balance, reserve, available decimal.Decimal) {
	if m == nil {
		return
	}
	m.funds.WithLabelValues("balance").Set(balance.InexactFloat64())
	m.funds.WithLabelValues("reserve").Set(reserve.InexactFloat64())
	m.funds.WithLabelValues("available").Set(available.InexactFloat64())
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Metrics) BackupDone(result string) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(result).Inc()
}

func (m *Metrics) RowMirrored(result string) {
	if m == nil {
		return
	}
	m.mirrored.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
