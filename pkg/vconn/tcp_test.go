package vconn

import (
	"net"
	"testing"

	"gotest.tools/v3/assert"

	"openflow.sockstats.dev/ofcore/pkg/of10"
)

func pipeTCPConns(t *testing.T) (*tcpConn, *tcpConn) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.NilError(t, err)
	defer ln.Close()

	acceptCh := make(chan *net.TCPConn, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := ln.AcceptTCP()
		if err != nil {
			errCh <- err
			return
		}
		acceptCh <- c
	}()

	clientConn, err := net.DialTCP("tcp", nil, ln.Addr().(*net.TCPAddr))
	assert.NilError(t, err)

	var serverConn *net.TCPConn
	select {
	case serverConn = <-acceptCh:
	case err := <-errCh:
		t.Fatalf("accept: %v", err)
	}

	client, err := wrapTCP("tcp:client", clientConn)
	assert.NilError(t, err)
	server, err := wrapTCP("tcp:server", serverConn)
	assert.NilError(t, err)
	return client, server
}

// TestRecvAcrossShortReads exercises the scenario where a message arrives
// split across more than one read: the first recv calls must return
// ErrAgain until the full length-prefixed message has been buffered.
func TestRecvAcrossShortReads(t *testing.T) {
	client, server := pipeTCPConns(t)
	defer client.Close()
	defer server.Close()

	hello := of10.Encode(of10.ControlHello{Xid: 7, Version: uint32(of10.Version)})
	full := hello.Bytes()
	assert.Assert(t, len(full) > 4)

	// Write the header's first few bytes only, then the rest, to force
	// drainFramed to observe an incomplete buffer more than once.
	_, err := client.conn.Write(full[:2])
	assert.NilError(t, err)

	_, err = server.Recv()
	assert.ErrorIs(t, err, ErrAgain)

	_, err = client.conn.Write(full[2:4])
	assert.NilError(t, err)

	_, err = server.Recv()
	assert.ErrorIs(t, err, ErrAgain)

	_, err = client.conn.Write(full[4:])
	assert.NilError(t, err)

	var data []byte
	for i := 0; i < 20; i++ {
		data, err = server.Recv()
		if err == nil {
			break
		}
		if err != ErrAgain {
			t.Fatalf("Recv: %v", err)
		}
	}
	assert.NilError(t, err)
	assert.DeepEqual(t, data, full)
}

func TestSendRecvRoundTrip(t *testing.T) {
	client, server := pipeTCPConns(t)
	defer client.Close()
	defer server.Close()

	msg := of10.Encode(of10.EchoRequest{Xid: 1, Data: []byte("ping")}).Bytes()
	assert.NilError(t, SendWait(client, msg))

	got, err := RecvWait(server)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, msg)
}
