package vconn

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// ptcpListener is the passive TCP carrier: it implements PassiveVconn
// only, never ActiveVconn, per spec.md's invariant that a vconn is
// exactly one polarity.
type ptcpListener struct {
	name string
	ln   *net.TCPListener
	fd   int
}

func openPassiveTCP(args string) (Vconn, error) {
	return openPassiveTCPOnDefault(args, DefaultTCPPort, "ptcp")
}

// openPassiveTCPOnDefault parses a "[port]" argument against defaultPort
// and binds a listener; className labels the resulting name/error strings
// so ptcp and pssl (which share this listener shape, differing only in
// default port and the TLS wrap Accept applies) report accurately.
func openPassiveTCPOnDefault(args string, defaultPort int, className string) (Vconn, error) {
	port := defaultPort
	if args != "" {
		p, err := strconv.Atoi(args)
		if err != nil {
			return nil, fmt.Errorf("vconn: %s:%s: bad port: %w", className, args, err)
		}
		port = p
	}
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("vconn: %s:%s: %w", className, args, err)
	}
	fd, err := listenerFd(ln)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("vconn: %s:%s: %w", className, args, err)
	}
	return &ptcpListener{name: className + ":" + args, ln: ln, fd: fd}, nil
}

// listenerFd recovers the raw descriptor behind a TCPListener without
// duplicating it (unlike (*net.TCPListener).File, which dups and would
// leave the original blocking). higebu/netfd (used for connections
// elsewhere in this package) has no listener equivalent, so this mirrors
// its SyscallConn-based approach for the listener case.
func listenerFd(ln *net.TCPListener) (int, error) {
	sc, err := ln.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	ctrlErr := sc.Control(func(f uintptr) { fd = int(f) })
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}

func (p *ptcpListener) Name() string { return p.name }
func (p *ptcpListener) Type() string { return "ptcp" }
func (p *ptcpListener) Close() error { return p.ln.Close() }

func (p *ptcpListener) Prepoll(want Want) PollHint {
	var events uint32
	if want&WantAccept != 0 {
		events |= unix.POLLIN
	}
	return PollHint{Fd: p.fd, Events: events}
}

func (p *ptcpListener) Postpoll(revents uint32) uint32 { return revents }

// Accept performs one accept attempt bounded by a one-millisecond
// deadline, returning ErrAgain if no connection is queued. (A deadline
// already in the past would fail the accept without attempting it.)
func (p *ptcpListener) Accept() (ActiveVconn, error) {
	if err := p.ln.SetDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return nil, err
	}
	c, err := p.ln.AcceptTCP()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, ErrAgain
		}
		return nil, fmt.Errorf("vconn: ptcp accept: %w", err)
	}
	return wrapTCP(fmt.Sprintf("tcp:%s", c.RemoteAddr()), c)
}
