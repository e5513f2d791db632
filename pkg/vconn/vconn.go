// Package vconn is the polymorphic transport layer a controller uses to
// exchange OpenFlow messages with a peer: a class registry dispatches
// "type:args" names to concrete carriers (stream TCP, a TCP listener, the
// kernel datapath channel, optional TLS), all speaking the same
// send/recv/accept contract so callers never special-case the carrier.
package vconn

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Want is the poll interest a caller asks Prepoll to configure for.
type Want uint32

const (
	WantAccept Want = 1 << iota
	WantRecv
	WantSend
)

// ErrAgain is returned by Send/Recv/Accept when the operation would
// block; callers drive a poll loop (or SendWait/RecvWait below) instead
// of blocking inside the carrier.
var ErrAgain = errors.New("vconn: operation would block")

// ErrClassNotFound is returned by Open for an unregistered carrier type.
var ErrClassNotFound = errors.New("vconn: no such carrier class")

// PollHint is Prepoll's result: the file descriptor and poll events the
// caller's external poll loop should wait on, plus a flag telling the
// caller to skip polling and call Send/Recv directly. Only the nl carrier
// sets SkipPollNow (always); the TCP and TLS carriers never set it, even
// when the TLS engine holds decrypted plaintext. Fd is -1 for carriers
// with no single waitable descriptor.
type PollHint struct {
	Fd          int
	Events      uint32
	SkipPollNow bool
}

// Vconn is the capability set every carrier implements regardless of
// polarity (active vs. passive).
type Vconn interface {
	Name() string
	Type() string
	Close() error
	Prepoll(want Want) PollHint
	Postpoll(revents uint32) uint32
}

// ActiveVconn is a bidirectional carrier: exactly one of ActiveVconn or
// PassiveVconn is implemented by any concrete carrier, never both.
type ActiveVconn interface {
	Vconn
	Send(data []byte) error
	Recv() ([]byte, error)
}

// PassiveVconn is a listening carrier that yields new ActiveVconns.
type PassiveVconn interface {
	Vconn
	Accept() (ActiveVconn, error)
}

// OpenFunc constructs a carrier from the argument string following the
// "type:" prefix vconn_open splits off.
type OpenFunc func(args string) (Vconn, error)

var registry = map[string]OpenFunc{}

// Register adds a carrier class to the registry; carriers call this from
// an init() func, mirroring the original's static class-table entries.
func Register(class string, open OpenFunc) {
	registry[class] = open
}

// Open parses "type:args", looks up type in the class registry, and
// dispatches to its OpenFunc.
func Open(name string) (Vconn, error) {
	class, args, ok := strings.Cut(name, ":")
	if !ok {
		return nil, fmt.Errorf("vconn: %q: missing \"type:\" prefix", name)
	}
	open, ok := registry[class]
	if !ok {
		return nil, fmt.Errorf("vconn: %q: %w", class, ErrClassNotFound)
	}
	return open(args)
}

// pollOnce drives a single poll(2) call for v's wanted interest, honoring
// PollHint.SkipPollNow by treating it as an immediate, already-ready
// descriptor.
func pollOnce(v Vconn, want Want) (uint32, error) {
	hint := v.Prepoll(want)
	if hint.SkipPollNow {
		return v.Postpoll(uint32(hint.Events)), nil
	}
	if hint.Fd < 0 {
		return v.Postpoll(0), nil
	}
	fds := []unix.PollFd{{Fd: int32(hint.Fd), Events: int16(hint.Events)}}
	if _, err := unix.Poll(fds, -1); err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("vconn: poll: %w", err)
	}
	return v.Postpoll(uint32(fds[0].Revents)), nil
}

// SendWait calls Send in a loop, blocking on a poll(2) of v's send
// readiness between attempts, until the buffer is accepted or a non-Again
// error occurs. It is the blocking convenience spec.md section 4.E
// describes layered over the non-blocking Send primitive.
func SendWait(v ActiveVconn, data []byte) error {
	for {
		err := v.Send(data)
		if !errors.Is(err, ErrAgain) {
			return err
		}
		if _, err := pollOnce(v, WantSend); err != nil {
			return err
		}
	}
}

// RecvWait calls Recv in a loop, blocking on a poll(2) of v's receive
// readiness between attempts, until a message arrives or a non-Again error
// occurs (including io.EOF at a message boundary).
func RecvWait(v ActiveVconn) ([]byte, error) {
	for {
		data, err := v.Recv()
		if !errors.Is(err, ErrAgain) {
			return data, err
		}
		if _, err := pollOnce(v, WantRecv); err != nil {
			return nil, err
		}
	}
}

// AcceptWait is RecvWait's passive-side counterpart: it blocks on accept
// readiness between non-blocking Accept attempts.
func AcceptWait(v PassiveVconn) (ActiveVconn, error) {
	for {
		conn, err := v.Accept()
		if !errors.Is(err, ErrAgain) {
			return conn, err
		}
		if _, err := pollOnce(v, WantAccept); err != nil {
			return nil, err
		}
	}
}
