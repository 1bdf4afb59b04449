package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    prometheus.Histogram
	rateLimited prometheus.Counter
	badges      *prometheus.CounterVec
	uploads     *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maple",
			Name:      "http_requests_total",
			Help:      "HTTP requests by status code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maple",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "maple",
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		badges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maple",
			Name:      "badges_rendered_total",
			Help:      "Badge cards rendered, by request kind.",
		}, []string{"kind"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maple",
			Name:      "photo_uploads_total",
			Help:      "Employee photo uploads by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(
		c.requests, c.duration, c.rateLimited, c.badges, c.uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.duration.Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) RecordBadges(kind string, cards int) {
	if c == nil {
		return
	}
	c.badges.WithLabelValues(kind).Add(float64(cards))
}

func (c *Collector) RecordUpload(ok bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.uploads.WithLabelValues(outcome).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
