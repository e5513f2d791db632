package vconn

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	Register("ssl", openActiveSSL)
	Register("pssl", openPassiveSSL)
}

// Config is the process-wide TLS configuration used by the ssl/pssl
// carriers. Certificate loading is out of scope for this core (spec.md
// section 1 names it as an external collaborator); callers populate this
// before opening any "ssl:"/"pssl:" vconn.
var Config *tls.Config

// sslConn wraps a stream socket with a TLS engine. Unlike tcpConn, its
// Prepoll/Postpoll are non-trivial: the handshake may need a write to
// complete a pending read or vice versa, and data already decrypted into
// the TLS engine's internal buffer can't be observed by poll(2) at all.
type sslConn struct {
	*tcpConn
	tls *tls.Conn

	handshakeDone bool
	sslTx         []byte // unsent plaintext remainder; never the raw tcpConn.tx path, which would bypass encryption
}

func openActiveSSL(args string) (Vconn, error) {
	host, port, err := splitHostPort(args, DefaultTLSPort)
	if err != nil {
		return nil, err
	}
	tc, err := dialTCP("ssl:"+args, host, port)
	if err != nil {
		return nil, err
	}
	cfg := Config
	if cfg == nil {
		cfg = &tls.Config{}
	}
	return &sslConn{tcpConn: tc, tls: tls.Client(tc.conn, cfg)}, nil
}

func (c *sslConn) Name() string { return c.tcpConn.name }
func (c *sslConn) Type() string { return "ssl" }
func (c *sslConn) Close() error { return c.tls.Close() }

// Prepoll asks the TLS engine (via a non-blocking handshake attempt) what
// the kernel socket should be polled for, since the engine's own state
// (wants more ciphertext, or needs to flush outgoing handshake bytes)
// doesn't map 1:1 onto the caller's WANT_RECV/WANT_SEND request.
func (c *sslConn) Prepoll(want Want) PollHint {
	if !c.handshakeDone {
		// The handshake can need either direction regardless of what the
		// caller asked for; crypto/tls.Conn.Handshake drives both sides
		// internally, so polling both is the safe superset rather than
		// trying to predict which one it wants next.
		if err := c.attemptHandshake(); err != nil && !errors.Is(err, ErrAgain) {
			return PollHint{Fd: c.tcpConn.fd, Events: unix.POLLIN | unix.POLLOUT}
		}
		if !c.handshakeDone {
			return PollHint{Fd: c.tcpConn.fd, Events: unix.POLLIN | unix.POLLOUT}
		}
	}
	if len(c.sslTx) > 0 {
		want |= WantSend
	}
	return c.tcpConn.Prepoll(want)
}

// Postpoll returns revents unchanged, both during and after the
// handshake. It does not promote handshake completion, or plaintext
// already buffered by the TLS engine or in the reassembly buffer, into
// POLLIN; poll(2) only reports readiness on the raw socket.
func (c *sslConn) Postpoll(revents uint32) uint32 {
	if !c.handshakeDone {
		return revents
	}
	return c.tcpConn.Postpoll(revents)
}

func (c *sslConn) attemptHandshake() error {
	if err := c.tcpConn.conn.SetDeadline(time.Now()); err != nil {
		return err
	}
	err := c.tls.Handshake()
	if err == nil {
		c.handshakeDone = true
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrAgain
	}
	return fmt.Errorf("vconn: ssl handshake: %w", err)
}

// Send behaves like tcpConn.Send but through the TLS engine, so the wire
// bytes are ciphertext while the framing contract (whole-message
// ownership transfer) is unchanged.
func (c *sslConn) Send(data []byte) error {
	if !c.handshakeDone {
		if err := c.attemptHandshake(); err != nil {
			return err
		}
		if !c.handshakeDone {
			return ErrAgain
		}
	}
	if len(c.sslTx) > 0 {
		n, err := c.sslWrite(c.sslTx)
		if err != nil && !errors.Is(err, ErrAgain) {
			return err
		}
		c.sslTx = c.sslTx[n:]
		if len(c.sslTx) > 0 {
			return ErrAgain
		}
	}
	n, err := c.sslWrite(data)
	if err != nil {
		if errors.Is(err, ErrAgain) && n > 0 {
			c.sslTx = append([]byte(nil), data[n:]...)
			return nil
		}
		return err
	}
	return nil
}

func (c *sslConn) sslWrite(data []byte) (int, error) {
	if err := c.tcpConn.conn.SetWriteDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := c.tls.Write(data)
	if err == nil {
		return n, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return n, ErrAgain
	}
	return n, fmt.Errorf("vconn: ssl send: %w", err)
}

// Recv behaves like tcpConn.Recv but decrypts through the TLS engine
// before the same length-prefixed reassembly logic applies.
func (c *sslConn) Recv() ([]byte, error) {
	if !c.handshakeDone {
		if err := c.attemptHandshake(); err != nil {
			return nil, err
		}
		if !c.handshakeDone {
			return nil, ErrAgain
		}
	}
	if err := c.tcpConn.conn.SetReadDeadline(time.Now()); err != nil {
		return nil, err
	}
	buf := make([]byte, 64*1024)
	n, err := c.tls.Read(buf)
	if n > 0 {
		c.tcpConn.rx = append(c.tcpConn.rx, buf[:n]...)
	}
	if err != nil {
		var ne net.Error
		isTimeout := errors.As(err, &ne) && ne.Timeout()
		if !isTimeout {
			if errors.Is(err, io.EOF) && len(c.tcpConn.rx) == 0 {
				return nil, io.EOF
			}
			if len(c.tcpConn.rx) == 0 {
				return nil, fmt.Errorf("vconn: ssl recv: %w", err)
			}
		}
	}
	return c.tcpConn.drainFramed()
}

// pssl mirrors ptcp, accepting TLS connections instead of plain ones.
type psslListener struct {
	*ptcpListener
}

func openPassiveSSL(args string) (Vconn, error) {
	pl, err := openPassiveTCPOnDefault(args, DefaultTLSPort, "pssl")
	if err != nil {
		return nil, err
	}
	return &psslListener{ptcpListener: pl.(*ptcpListener)}, nil
}

func (p *psslListener) Type() string { return "pssl" }

func (p *psslListener) Accept() (ActiveVconn, error) {
	conn, err := p.ptcpListener.Accept()
	if err != nil {
		return nil, err
	}
	tc := conn.(*tcpConn)
	cfg := Config
	if cfg == nil {
		cfg = &tls.Config{}
	}
	return &sslConn{tcpConn: tc, tls: tls.Server(tc.conn, cfg)}, nil
}
