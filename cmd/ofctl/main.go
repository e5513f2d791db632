// Command ofctl is a minimal example wiring together this core's pieces:
// it opens a vconn, speaks the OFPT_HELLO/ECHO keepalive handshake,
// exposes a vlog control socket and a Prometheus /metrics endpoint. It is
// not a CLI front-end for flow descriptions (spec.md's Non-goal); it is
// the shortest program that exercises every component end to end.
package main

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"openflow.sockstats.dev/ofcore/pkg/dpif"
	"openflow.sockstats.dev/ofcore/pkg/of10"
	"openflow.sockstats.dev/ofcore/pkg/ofmetrics"
	"openflow.sockstats.dev/ofcore/pkg/vconn"
	"openflow.sockstats.dev/ofcore/pkg/vlog"
)

func main() {
	of10.Warnf = logrus.Warnf
	dpif.Warnf = logrus.Warnf

	name := "tcp:127.0.0.1:975"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	metrics := ofmetrics.New(prometheus.Labels{"vconn": name})
	prometheus.MustRegister(metrics)

	levels := vlog.NewLevelTable()
	server, err := vlog.Listen("", levels.Set, levels.List)
	if err != nil {
		logrus.Fatalf("ofctl: vlog listen: %v", err)
	}
	defer server.Close()
	go serveControlSocket(server)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logrus.Fatalf("ofctl: metrics server: %v", http.ListenAndServe(":18080", nil))
	}()

	carrier, err := DialWithBackoff(name, 5)
	if err != nil {
		logrus.Fatalf("ofctl: %s: %v", name, err)
	}
	defer carrier.Close()

	active, ok := carrier.(vconn.ActiveVconn)
	if !ok {
		logrus.Fatalf("ofctl: %s: not an active vconn", carrier.Name())
	}

	runController(active, metrics)
}

func serveControlSocket(server *vlog.Server) {
	for {
		if err := server.ServeOne(); err != nil {
			logrus.Errorf("vlog: %v", err)
			return
		}
	}
}

// runController speaks the simplest possible OpenFlow 1.0 session: send a
// CONTROL_HELLO, then loop answering ECHO_REQUESTs and logging anything
// else received, until the peer closes the connection.
func runController(v vconn.ActiveVconn, metrics *ofmetrics.Collector) {
	hello := of10.Encode(of10.ControlHello{Xid: 0, Version: uint32(of10.Version)})
	if err := vconn.SendWait(v, hello.Bytes()); err != nil {
		logrus.Fatalf("ofctl: sending hello: %v", err)
	}
	metrics.ObserveSend(v.Type())

	for {
		data, err := vconn.RecvWait(v)
		if errors.Is(err, io.EOF) {
			logrus.Infof("ofctl: %s: peer closed connection", v.Name())
			return
		}
		if err != nil {
			metrics.ObserveError(v.Type())
			logrus.Errorf("ofctl: recv: %v", err)
			return
		}
		metrics.ObserveRecv(v.Type())

		msg, err := of10.Decode(data)
		if err != nil {
			logrus.Warnf("ofctl: dropping malformed message: %v", err)
			continue
		}

		switch m := msg.(type) {
		case of10.EchoRequest:
			reply := of10.MakeEchoReply(m.Xid, m.Data)
			if err := vconn.SendWait(v, reply.Bytes()); err != nil {
				logrus.Errorf("ofctl: echo reply: %v", err)
				return
			}
			metrics.ObserveSend(v.Type())
		default:
			logrus.Infof("ofctl: received message type %d", msg.Type())
		}
	}
}

// DialWithBackoff retries vconn.Open with exponential backoff (capped at
// 8 seconds, plus 0-20% random jitter), grounded in NewHTTPClientWithSockStats's
// dialer-wrapping pattern and vconn.c's retry-oriented design (spec.md
// section 3's supplemented reconnect-backoff feature).
func DialWithBackoff(name string, maxAttempts int) (vconn.Vconn, error) {
	var lastErr error
	backoff := 100 * time.Millisecond
	const maxBackoff = 8 * time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := vconn.Open(name)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(backoff) / 5))
		logrus.Warnf("ofctl: dial %s attempt %d/%d failed: %v, retrying in %s", name, attempt, maxAttempts, err, backoff)
		time.Sleep(backoff + jitter)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, lastErr
}
