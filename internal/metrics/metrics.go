package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	UpdatesProcessed *prometheus.CounterVec
	JobsStarted      *prometheus.CounterVec
	JobItems         *prometheus.CounterVec
	FloodWaits       *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	Clicks           prometheus.Counter
	ActiveClients    prometheus.Gauge
	HandlerDuration  *prometheus.HistogramVec
}

// New creates metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		UpdatesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reydbot_updates_processed_total",
			Help: "Total number of processed bot updates by route",
		}, []string{"route"}),

		JobsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reydbot_jobs_started_total",
			Help: "Total number of started background jobs",
		}, []string{"kind"}),

		JobItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reydbot_job_items_total",
			Help: "Processed job items by kind and result",
		}, []string{"kind", "result"}),

		FloodWaits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reydbot_flood_waits_total",
			Help: "Flood wait and abuse responses by job kind",
		}, []string{"kind", "type"}),

		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reydbot_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),

		Clicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "reydbot_watcher_clicks_total",
			Help: "Total number of buttons clicked by the watcher",
		}),

		ActiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reydbot_active_clients",
			Help: "Number of connected user accounts",
		}),

		HandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reydbot_handler_duration_seconds",
			Help:    "Duration of update handling",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
