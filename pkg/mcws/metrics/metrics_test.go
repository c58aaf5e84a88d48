package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/mcws-go/internal/mcwstest"
	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/mcwserr"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveRequest("Alive", 200, 10*time.Millisecond, nil)
	c.ObserveRequest("Playback/Info", 0, time.Millisecond, &mcwserr.TransportError{Extension: "Playback/Info", Err: errors.New("refused")})
	c.ObserveRetry("Playback/Info")
	c.ObserveResolve(endpoint.StrategyRemote, time.Second, nil)
	c.ObserveResolve(endpoint.StrategyUnreachable, time.Second, nil)
	c.ObserveResolve(endpoint.StrategyUnknown, time.Second, &mcwserr.UnresolvableKeyError{Key: "X"})
	c.ObserveProbe("local", false)
	c.ObserveProbe("remote", true)

	require.Equal(t, 1.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("Alive", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("Playback/Info", "0")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("Playback/Info", "TRANSPORT_ERROR")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.retriesTotal.WithLabelValues("Playback/Info")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.resolutionsTotal.WithLabelValues("remote", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.resolutionsTotal.WithLabelValues("unreachable", "unreachable")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.resolutionsTotal.WithLabelValues("unknown", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.probesTotal.WithLabelValues("local", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.probesTotal.WithLabelValues("remote", "ok")))
	require.Equal(t, 2, testutil.CollectAndCount(c.requestDuration))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.ObserveRequest("Alive", 200, time.Millisecond, nil)
		c.ObserveRetry("Alive")
		c.ObserveResolve(endpoint.StrategyLocal, time.Millisecond, nil)
		c.ObserveProbe("local", true)
	})
}

func TestCollectorObservesResolver(t *testing.T) {
	fake := mcwstest.NewServer(t)
	lookup := mcwstest.NewLookupServer(t, mcwstest.LookupReply(
		"KEY", fake.Host(), fake.Port(), []string{fake.Host()}, "", nil,
	))
	c := NewCollector(prometheus.NewRegistry())
	r := endpoint.New("KEY", "", "", endpoint.WithLookupURL(lookup.LookupURL()), endpoint.WithObserver(c))

	_, err := r.Send(context.Background(), "Missing", nil)
	require.Error(t, err)

	require.Equal(t, 2.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("Missing", "404")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("Missing", "TRANSPORT_ERROR")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.retriesTotal.WithLabelValues("Missing")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.resolutionsTotal.WithLabelValues("local", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.probesTotal.WithLabelValues("local", "ok")))
}
