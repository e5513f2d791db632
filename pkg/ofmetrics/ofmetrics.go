// Package ofmetrics exposes Prometheus collectors over pkg/vconn, pkg/dpif
// and pkg/vlog: ambient process observability carried regardless of
// spec.md's Non-goal on flow/port statistics policy (that Non-goal is
// about state inside the datapath, not this process's own health).
// Grounded on pkg/exporter.TCPInfoCollector's Describe/Collect shape, a
// mutex-guarded map plus a NewXCollector(...) constructor taking a
// const-label set.
package ofmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks counts and latencies across every vconn carrier, dpif
// handle and vlog server this process has touched. The zero value is not
// usable; construct with New.
type Collector struct {
	mu sync.Mutex

	sendTotal   map[string]uint64 // keyed by vconn carrier type
	recvTotal   map[string]uint64
	acceptTotal map[string]uint64
	errorTotal  map[string]uint64

	dpifTransactions uint64
	dpifTransactionNs []int64
	dpifEnobufsRetry  uint64

	vlogAuthRejections uint64

	sendDesc        *prometheus.Desc
	recvDesc        *prometheus.Desc
	acceptDesc      *prometheus.Desc
	errorDesc       *prometheus.Desc
	transactDesc    *prometheus.Desc
	transactLatency *prometheus.Desc
	enobufsDesc     *prometheus.Desc
	vlogRejectDesc  *prometheus.Desc
}

// New constructs a Collector. constLabels attaches process-wide labels
// (e.g. a datapath name or controller instance id) to every metric,
// matching NewTCPInfoCollector's constLabels parameter.
func New(constLabels prometheus.Labels) *Collector {
	return &Collector{
		sendTotal:   make(map[string]uint64),
		recvTotal:   make(map[string]uint64),
		acceptTotal: make(map[string]uint64),
		errorTotal:  make(map[string]uint64),

		sendDesc: prometheus.NewDesc("ofcore_vconn_send_total",
			"Total vconn Send calls that transferred buffer ownership.",
			[]string{"carrier"}, constLabels),
		recvDesc: prometheus.NewDesc("ofcore_vconn_recv_total",
			"Total vconn Recv calls that returned a complete message.",
			[]string{"carrier"}, constLabels),
		acceptDesc: prometheus.NewDesc("ofcore_vconn_accept_total",
			"Total vconn Accept calls that returned a new active connection.",
			[]string{"carrier"}, constLabels),
		errorDesc: prometheus.NewDesc("ofcore_vconn_errors_total",
			"Total non-Again errors returned by any vconn operation, by carrier.",
			[]string{"carrier"}, constLabels),
		transactDesc: prometheus.NewDesc("ofcore_dpif_transactions_total",
			"Total dpif request/reply transactions completed.",
			nil, constLabels),
		transactLatency: prometheus.NewDesc("ofcore_dpif_transaction_latency_seconds",
			"Observed dpif transaction round-trip latency.",
			nil, constLabels),
		enobufsDesc: prometheus.NewDesc("ofcore_dpif_enobufs_retries_total",
			"Total netlink ENOBUFS retries across all dpif handles.",
			nil, constLabels),
		vlogRejectDesc: prometheus.NewDesc("ofcore_vlog_auth_rejections_total",
			"Total vlog control socket requests rejected on credential checks.",
			nil, constLabels),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.sendDesc
	descs <- c.recvDesc
	descs <- c.acceptDesc
	descs <- c.errorDesc
	descs <- c.transactDesc
	descs <- c.transactLatency
	descs <- c.enobufsDesc
	descs <- c.vlogRejectDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for carrier, n := range c.sendTotal {
		metrics <- prometheus.MustNewConstMetric(c.sendDesc, prometheus.CounterValue, float64(n), carrier)
	}
	for carrier, n := range c.recvTotal {
		metrics <- prometheus.MustNewConstMetric(c.recvDesc, prometheus.CounterValue, float64(n), carrier)
	}
	for carrier, n := range c.acceptTotal {
		metrics <- prometheus.MustNewConstMetric(c.acceptDesc, prometheus.CounterValue, float64(n), carrier)
	}
	for carrier, n := range c.errorTotal {
		metrics <- prometheus.MustNewConstMetric(c.errorDesc, prometheus.CounterValue, float64(n), carrier)
	}
	metrics <- prometheus.MustNewConstMetric(c.transactDesc, prometheus.CounterValue, float64(c.dpifTransactions))
	metrics <- prometheus.MustNewConstMetric(c.transactLatency, prometheus.GaugeValue, latestLatencySeconds(c.dpifTransactionNs))
	metrics <- prometheus.MustNewConstMetric(c.enobufsDesc, prometheus.CounterValue, float64(c.dpifEnobufsRetry))
	metrics <- prometheus.MustNewConstMetric(c.vlogRejectDesc, prometheus.CounterValue, float64(c.vlogAuthRejections))
}

func latestLatencySeconds(samples []int64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return float64(samples[len(samples)-1]) / float64(time.Second)
}

// ObserveSend records a successful Send on the named carrier ("tcp",
// "ptcp", "nl", "ssl", "pssl").
func (c *Collector) ObserveSend(carrier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendTotal[carrier]++
}

// ObserveRecv records a successful Recv on the named carrier.
func (c *Collector) ObserveRecv(carrier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvTotal[carrier]++
}

// ObserveAccept records a successful Accept on the named carrier.
func (c *Collector) ObserveAccept(carrier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acceptTotal[carrier]++
}

// ObserveError records a non-Again error returned by any vconn operation
// on the named carrier.
func (c *Collector) ObserveError(carrier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorTotal[carrier]++
}

// ObserveDpifTransaction records one completed dpif request/reply
// transaction and its round-trip latency.
func (c *Collector) ObserveDpifTransaction(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dpifTransactions++
	c.dpifTransactionNs = append(c.dpifTransactionNs, int64(d))
	if len(c.dpifTransactionNs) > 1024 {
		c.dpifTransactionNs = c.dpifTransactionNs[len(c.dpifTransactionNs)-1024:]
	}
}

// ObserveEnobufsRetry records one ENOBUFS-triggered netlink re-read.
func (c *Collector) ObserveEnobufsRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dpifEnobufsRetry++
}

// ObserveVlogAuthRejection records one vlog control-socket request
// rejected by the credential or stat()-based check.
func (c *Collector) ObserveVlogAuthRejection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vlogAuthRejections++
}
