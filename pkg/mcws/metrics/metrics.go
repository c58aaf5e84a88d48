// Package metrics exports MCWS client activity as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
)

const namespace = "mcws"

// Collector implements endpoint.Observer. It is safe for concurrent use;
// a nil *Collector records nothing.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	probesTotal        *prometheus.CounterVec
}

var _ endpoint.Observer = (*Collector)(nil)

// NewCollector registers the MCWS metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of MCWS requests by extension and HTTP status (0 for network errors)",
			},
			[]string{"extension", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of MCWS requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"extension"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of requests retried after re-resolving",
			},
			[]string{"extension"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed MCWS requests by error code",
			},
			[]string{"extension", "code"},
		),
		resolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of access key resolutions by resulting strategy and outcome",
			},
			[]string{"strategy", "result"},
		),
		resolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Duration of access key resolutions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of reachability probes by path (local, remote) and result",
			},
			[]string{"path", "result"},
		),
	}
}

func (c *Collector) ObserveRequest(extension string, status int, duration time.Duration, err error) {
	if c == nil {
		return
	}

	c.requestsTotal.WithLabelValues(extension, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(extension).Observe(duration.Seconds())
	if err != nil {
		c.errorsTotal.WithLabelValues(extension, string(mcwserr.CodeOf(err))).Inc()
	}
}

func (c *Collector) ObserveRetry(extension string) {
	if c == nil {
		return
	}

	c.retriesTotal.WithLabelValues(extension).Inc()
}

func (c *Collector) ObserveResolve(strategy endpoint.Strategy, duration time.Duration, err error) {
	if c == nil {
		return
	}

	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case strategy == endpoint.StrategyUnreachable:
		result = "unreachable"
	}
	c.resolutionsTotal.WithLabelValues(strategy.String(), result).Inc()
	c.resolutionDuration.WithLabelValues(strategy.String()).Observe(duration.Seconds())
}

func (c *Collector) ObserveProbe(path string, ok bool) {
	if c == nil {
		return
	}

	result := "ok"
	if !ok {
		result = "failed"
	}
	c.probesTotal.WithLabelValues(path, result).Inc()
}
