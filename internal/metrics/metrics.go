// Package metrics содержит метрики Prometheus цикла событий монитора.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics метрики монитора
type Metrics struct {
	EventsTotal     *prometheus.CounterVec // labels: type
	EventsDropped   *prometheus.CounterVec // labels: type
	QueueDepth      prometheus.Gauge
	HandlerDuration *prometheus.HistogramVec // labels: type

	IndicatorComputeDur prometheus.Histogram
	CandlesStored       prometheus.Gauge

	PrimeTriggers prometheus.Counter
	PrimeExpired  prometheus.Counter
	PrimesActive  prometheus.Gauge

	OrdersTotal *prometheus.CounterVec // labels: source, result

	WSReconnects *prometheus.CounterVec // labels: stream

	registry *prometheus.Registry
}

// New создает и регистрирует метрики в собственном реестре
func New() *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bfmon_events_total",
			Help: "Обработанные события по типам",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bfmon_events_dropped_total",
			Help: "События, отброшенные при переполнении очереди",
		}, []string{"type"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bfmon_queue_depth",
			Help: "Длина очереди событий",
		}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bfmon_handler_duration_seconds",
			Help:    "Время обработки события",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bfmon_indicator_compute_duration_seconds",
			Help:    "Время полного пересчета индикатора",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		CandlesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bfmon_candles_stored",
			Help: "Количество свечей в памяти",
		}),
		PrimeTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bfmon_prime_triggers_total",
			Help: "Срабатывания праймов",
		}),
		PrimeExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bfmon_prime_expired_total",
			Help: "Праймы, удаленные по истечении срока",
		}),
		PrimesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bfmon_primes_active",
			Help: "Активные праймы",
		}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bfmon_orders_total",
			Help: "Отправленные ордера",
		}, []string{"source", "result"}),
		WSReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bfmon_ws_reconnects_total",
			Help: "Переподключения потоков биржи",
		}, []string{"stream"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.EventsTotal,
		m.EventsDropped,
		m.QueueDepth,
		m.HandlerDuration,
		m.IndicatorComputeDur,
		m.CandlesStored,
		m.PrimeTriggers,
		m.PrimeExpired,
		m.PrimesActive,
		m.OrdersTotal,
		m.WSReconnects,
	)

	return m
}

// Registry реестр с метриками монитора
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP-обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
