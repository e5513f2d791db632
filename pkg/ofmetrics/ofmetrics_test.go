package ofmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gotest.tools/v3/assert"
)

func collect(t *testing.T, c *Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric, 32)
	c.Collect(ch)
	close(ch)

	var out []*dto.Metric
	for m := range ch {
		var pb dto.Metric
		assert.NilError(t, m.Write(&pb))
		out = append(out, &pb)
	}
	return out
}

func TestDescribeEmitsEveryMetric(t *testing.T) {
	c := New(nil)
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, n, 8)
}

func TestObserveCountersAccumulate(t *testing.T) {
	c := New(prometheus.Labels{"vconn": "test"})
	c.ObserveSend("tcp")
	c.ObserveSend("tcp")
	c.ObserveRecv("tcp")
	c.ObserveError("ssl")
	c.ObserveDpifTransaction(5 * time.Millisecond)
	c.ObserveEnobufsRetry()
	c.ObserveVlogAuthRejection()

	metrics := collect(t, c)
	assert.Assert(t, len(metrics) > 0)

	var sawSendCounter, sawLatency bool
	for _, m := range metrics {
		if m.Counter != nil && m.Counter.GetValue() == 2 {
			sawSendCounter = true
		}
		if m.Gauge != nil && m.Gauge.GetValue() > 0 {
			sawLatency = true
		}
	}
	assert.Assert(t, sawSendCounter)
	assert.Assert(t, sawLatency)
}
