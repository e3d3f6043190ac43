package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusObserver struct {
	onlineGauge     prometheus.Gauge
	pushCounter     prometheus.Counter
	pushLatency     prometheus.Histogram
	eventLagGauge   prometheus.Gauge
	publishCounter  prometheus.Counter
	conflictCounter prometheus.Counter
}

var (
	onlineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mergeflow_online_clients",
		Help: "Number of online MergeFlow stream clients",
	})
	pushCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mergeflow_push_total",
		Help: "Total number of live config pushes",
	})
	pushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mergeflow_push_latency_seconds",
		Help:    "Latency from publish to client push",
		Buckets: prometheus.DefBuckets,
	})
	eventLagGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mergeflow_event_lag",
		Help: "Replay buffer lag of the slowest client",
	})
	publishCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mergeflow_publish_total",
		Help: "Total number of successful revision publishes",
	})
	conflictCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mergeflow_merge_conflict_total",
		Help: "Total number of publishes rejected due to merge conflicts",
	})
)

func NewPrometheusObserver() *prometheusObserver {
	return &prometheusObserver{
		onlineGauge:     onlineGauge,
		pushCounter:     pushCounter,
		pushLatency:     pushLatency,
		eventLagGauge:   eventLagGauge,
		publishCounter:  publishCounter,
		conflictCounter: conflictCounter,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusObserver) IncOnline() {
	p.onlineGauge.Inc()
}

func (p *prometheusObserver) DecOnline() {
	p.onlineGauge.Dec()
}

func (p *prometheusObserver) RecordPush() {
	p.pushCounter.Inc()
}

func (p *prometheusObserver) ObservePushLatency(duration float64) {
	p.pushLatency.Observe(duration)
}

func (p *prometheusObserver) UpdateEventLag(lag int) {
	p.eventLagGauge.Set(float64(lag))
}

func (p *prometheusObserver) RecordPublish() {
	p.publishCounter.Inc()
}

func (p *prometheusObserver) RecordMergeConflict() {
	p.conflictCounter.Inc()
}
