package vconn

import (
	"testing"

	"gotest.tools/v3/assert"

	"openflow.sockstats.dev/ofcore/pkg/of10"
)

func TestPassiveAcceptWaitRoundTrip(t *testing.T) {
	ln, err := openPassiveTCPOnDefault("0", DefaultTCPPort, "ptcp")
	assert.NilError(t, err)
	defer ln.Close()

	passive := ln.(*ptcpListener)
	addr := passive.ln.Addr().String()

	dialed := make(chan Vconn, 1)
	dialErr := make(chan error, 1)
	go func() {
		v, err := Open("tcp:" + addr)
		if err != nil {
			dialErr <- err
			return
		}
		dialed <- v
	}()

	accepted, err := AcceptWait(passive)
	assert.NilError(t, err)
	defer accepted.Close()

	var client Vconn
	select {
	case client = <-dialed:
	case err := <-dialErr:
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	msg := of10.Encode(of10.EchoRequest{Xid: 3, Data: []byte("hi")}).Bytes()
	assert.NilError(t, SendWait(client.(ActiveVconn), msg))

	got, err := RecvWait(accepted)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, msg)
}

func TestSplitHostPortDefaultsPort(t *testing.T) {
	host, port, err := splitHostPort("10.0.0.1", DefaultTCPPort)
	assert.NilError(t, err)
	assert.Equal(t, host, "10.0.0.1")
	assert.Equal(t, port, DefaultTCPPort)

	host, port, err = splitHostPort("10.0.0.1:6633", DefaultTCPPort)
	assert.NilError(t, err)
	assert.Equal(t, host, "10.0.0.1")
	assert.Equal(t, port, 6633)
}
