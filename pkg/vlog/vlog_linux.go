//go:build linux

package vlog

import (
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// enablePassCred turns on SO_PASSCRED so every datagram received on conn
// carries the sender's SCM_CREDENTIALS ancillary data (original's
// make_unix_socket's passcred argument).
func enablePassCred(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var setErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return setErr
}

// recvVerified reads one datagram plus its ancillary data and checks the
// SCM_CREDENTIALS the kernel attached (recv_with_creds's #ifdef
// SCM_CREDENTIALS branch): the sender's uid must be 0 or this process's
// own uid. Any SCM_RIGHTS file descriptors are closed immediately
// regardless of the credential outcome, since an attacker who can send us
// a directly accepted datagram can otherwise exhaust our fd table.
func recvVerified(conn *net.UnixConn, buf []byte) (n int, from *net.UnixAddr, ok bool, err error) {
	oob := make([]byte, 256)
	n, oobn, _, addr, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return 0, nil, false, fmt.Errorf("vlog: recv: %w", err)
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return 0, nil, false, fmt.Errorf("vlog: parsing control message: %w", err)
	}

	var cred *unix.Ucred
	for i := range scms {
		switch scms[i].Header.Type {
		case unix.SCM_CREDENTIALS:
			c, err := unix.ParseUnixCredentials(&scms[i])
			if err == nil {
				cred = c
			}
		case unix.SCM_RIGHTS:
			fds, err := unix.ParseUnixRights(&scms[i])
			if err == nil {
				for _, fd := range fds {
					unix.Close(fd)
				}
			}
		}
	}

	if cred == nil {
		logrus.Warnf("vlog: config message from %v lacks credentials", addr)
		return n, addr, false, nil
	}
	if cred.Uid != 0 && cred.Uid != uint32(os.Getuid()) {
		logrus.Warnf("vlog: config message uid=%d is not 0 or %d", cred.Uid, os.Getuid())
		return n, addr, false, nil
	}
	return n, addr, true, nil
}

// sendRequest sends request with the caller's SCM_CREDENTIALS attached,
// matching vlog_client_send's SCM_CREDENTIALS branch (explicit even though
// the kernel would fill in truthful credentials regardless, since the
// original always attaches them rather than relying on ambient recvmsg
// behavior).
func sendRequest(conn *net.UnixConn, request string) error {
	cred := &unix.Ucred{Pid: int32(os.Getpid()), Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
	oob := unix.UnixCredentials(cred)
	_, _, err := conn.WriteMsgUnix([]byte(request), oob, nil)
	if err != nil {
		return fmt.Errorf("vlog: send: %w", err)
	}
	return nil
}
