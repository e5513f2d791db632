package vconn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"

	"openflow.sockstats.dev/ofcore/pkg/of10"
)

// DefaultTCPPort is the default controller listening port (spec.md
// section 6); DefaultTLSPort is the TLS-wrapped equivalent.
const (
	DefaultTCPPort = 975
	DefaultTLSPort = 976
)

func init() {
	Register("tcp", openActiveTCP)
	Register("ptcp", openPassiveTCP)
}

// tcpConn is the active TCP carrier: a connected stream socket plus the
// reassembly buffer spec.md section 4.F describes. Receive accumulates
// bytes across short reads until a full OfpHeader-framed message is
// present; Send queues a short write's remainder rather than blocking.
type tcpConn struct {
	name string
	conn *net.TCPConn
	fd   int

	rx []byte // bytes read so far toward the in-flight message
	tx []byte // unwritten remainder of the most recent Send
}

// dialTCP opens a new connection; wrapTCP wraps one handed back by
// Accept. Both share the same carrier type since, once connected, an
// accepted and a dialed TCP vconn behave identically.
func dialTCP(name, host string, port int) (*tcpConn, error) {
	raddr := net.JoinHostPort(host, strconv.Itoa(port))
	c, err := net.Dial("tcp", raddr)
	if err != nil {
		return nil, fmt.Errorf("vconn: tcp:%s: %w", name, err)
	}
	tc := c.(*net.TCPConn)
	return wrapTCP(name, tc)
}

func wrapTCP(name string, tc *net.TCPConn) (*tcpConn, error) {
	return &tcpConn{name: name, conn: tc, fd: netfd.GetFdFromConn(tc)}, nil
}

func openActiveTCP(args string) (Vconn, error) {
	host, port, err := splitHostPort(args, DefaultTCPPort)
	if err != nil {
		return nil, err
	}
	return dialTCP("tcp:"+args, host, port)
}

func splitHostPort(args string, defaultPort int) (string, int, error) {
	if args == "" {
		return "", 0, fmt.Errorf("vconn: tcp: empty host")
	}
	host, portStr, err := net.SplitHostPort(args)
	if err != nil {
		// No ":port" suffix: the whole string is the host, default port.
		return args, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("vconn: %q: bad port: %w", args, err)
	}
	_ = host
	return host, port, nil
}

func (c *tcpConn) Name() string { return c.name }
func (c *tcpConn) Type() string { return "tcp" }

func (c *tcpConn) Close() error { return c.conn.Close() }

// Prepoll reports the carrier's raw fd and the caller's wanted interest
// translated to poll(2) event bits, so an external poll loop can wait on
// several vconns alongside each other.
func (c *tcpConn) Prepoll(want Want) PollHint {
	var events uint32
	if want&WantRecv != 0 {
		events |= unix.POLLIN
	}
	if want&WantSend != 0 || len(c.tx) > 0 {
		events |= unix.POLLOUT
	}
	return PollHint{Fd: c.fd, Events: events}
}

// Postpoll is the identity translation for plain TCP: there's no
// protocol-level readiness to promote or mask, unlike the TLS carrier.
func (c *tcpConn) Postpoll(revents uint32) uint32 { return revents }

// Send attempts one non-blocking write. A full write transfers ownership
// of data and returns nil. A short write buffers the remainder internally
// and still returns nil (ownership transferred; Prepoll reports WANT_SEND
// until the remainder drains on a later Send/flush). If there is already
// a buffered remainder from a prior short write, new sends are refused
// with ErrAgain until it clears — only one outstanding write at a time.
func (c *tcpConn) Send(data []byte) error {
	if len(c.tx) > 0 {
		if err := c.flush(); err != nil {
			return err
		}
		if len(c.tx) > 0 {
			return ErrAgain
		}
	}
	n, err := c.nonblockingWrite(data)
	if err != nil && (!errors.Is(err, ErrAgain) || n == 0) {
		return err
	}
	if n < len(data) {
		c.tx = append([]byte(nil), data[n:]...)
	}
	return nil
}

func (c *tcpConn) flush() error {
	n, err := c.nonblockingWrite(c.tx)
	c.tx = c.tx[n:]
	if err != nil && !errors.Is(err, ErrAgain) {
		return err
	}
	return nil
}

func (c *tcpConn) nonblockingWrite(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	// A deadline already in the past fails the Write without attempting
	// it, so the attempt gets a one-millisecond window instead.
	if err := c.conn.SetWriteDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return 0, err
	}
	n, err := c.conn.Write(data)
	if err == nil {
		return n, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return n, ErrAgain
	}
	return n, fmt.Errorf("vconn: tcp send: %w", err)
}

// Recv attempts one read (bounded by a one-millisecond deadline, so it
// never blocks longer than that), appends whatever arrived to the
// reassembly buffer, and hands over a complete message once header.length
// bytes are available. Short reads leave bytes buffered for the next
// call; EOF mid-message is a protocol error, EOF at a message boundary
// returns io.EOF unchanged.
func (c *tcpConn) Recv() ([]byte, error) {
	_, err := c.nonblockingRead()
	if err != nil && !errors.Is(err, ErrAgain) {
		if errors.Is(err, io.EOF) {
			if len(c.rx) == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("vconn: tcp recv: %w: connection closed mid-message", of10.ErrTruncated)
		}
		return nil, err
	}
	return c.drainFramed()
}

// drainFramed inspects the reassembly buffer and hands over a complete
// OfpHeader-framed message if one has fully arrived, leaving any trailing
// partial message buffered. Shared with the TLS carrier, which appends
// decrypted plaintext to the same c.rx buffer before calling this.
func (c *tcpConn) drainFramed() ([]byte, error) {
	if len(c.rx) < of10.HeaderLen {
		return nil, ErrAgain
	}
	want, perr := of10.PeekLength(c.rx)
	if perr != nil {
		// Bad length in the framing prefix: drop the buffered bytes
		// per spec.md section 7 (protocol errors drop the buffer, not
		// the connection).
		c.rx = nil
		return nil, perr
	}
	if len(c.rx) < want {
		return nil, ErrAgain
	}
	msg := c.rx[:want]
	c.rx = append([]byte(nil), c.rx[want:]...)
	return msg, nil
}

func (c *tcpConn) nonblockingRead() (int, error) {
	// Same one-millisecond window as nonblockingWrite: a past deadline
	// would fail the Read without attempting it.
	if err := c.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return 0, err
	}
	buf := make([]byte, 64*1024)
	n, err := c.conn.Read(buf)
	if n > 0 {
		c.rx = append(c.rx, buf[:n]...)
	}
	if err == nil {
		return n, nil
	}
	if errors.Is(err, net.ErrClosed) {
		return n, fmt.Errorf("vconn: tcp recv: %w", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return n, ErrAgain
	}
	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	return n, fmt.Errorf("vconn: tcp recv: %w", err)
}
