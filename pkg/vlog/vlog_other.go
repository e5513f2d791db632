//go:build !linux

package vlog

import (
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// enablePassCred is a no-op off Linux: SO_PASSCRED/SCM_CREDENTIALS aren't
// portable, so this build relies entirely on the stat()-based fallback in
// recvVerified (spec.md section 4.G item 1, "the fallback exists to keep
// non-Linux builds functional and is explicitly looser").
func enablePassCred(conn *net.UnixConn) error { return nil }

// recvVerified authenticates the sender by stat()ing its bound socket
// path instead of reading kernel-attached credentials: the path must name
// a socket, owned by root or this process's uid, touched within the last
// 30 seconds (recv_with_creds's #else branch).
func recvVerified(conn *net.UnixConn, buf []byte) (n int, from *net.UnixAddr, ok bool, err error) {
	n, addr, err := conn.ReadFromUnix(buf)
	if err != nil {
		return 0, nil, false, fmt.Errorf("vlog: recv: %w", err)
	}
	if addr == nil || addr.Name == "" {
		logrus.Warnf("vlog: config message from unbound sender rejected")
		return n, addr, false, nil
	}
	info, err := os.Stat(addr.Name)
	if err != nil {
		logrus.Warnf("vlog: config message from inaccessible socket %s: %v", addr.Name, err)
		return n, addr, false, nil
	}
	if info.Mode()&os.ModeSocket == 0 {
		logrus.Warnf("vlog: config message not from a socket: %s", addr.Name)
		return n, addr, false, nil
	}
	if !withinLast30Seconds(info) {
		logrus.Warnf("vlog: config socket %s too old", addr.Name)
		return n, addr, false, nil
	}
	if !ownedByRootOrSelf(info) {
		logrus.Warnf("vlog: config message from %s not owned by root or this process", addr.Name)
		return n, addr, false, nil
	}
	return n, addr, true, nil
}

func withinLast30Seconds(info os.FileInfo) bool {
	return time.Since(info.ModTime()) < 30*time.Second
}

func ownedByRootOrSelf(info os.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return st.Uid == 0 || int(st.Uid) == os.Getuid()
}

// sendRequest sends request with no ancillary credentials: the fallback
// authentication path reads the sender's bound socket path instead
// (vlog_client_send's #else branch).
func sendRequest(conn *net.UnixConn, request string) error {
	if _, err := conn.Write([]byte(request)); err != nil {
		return fmt.Errorf("vlog: send: %w", err)
	}
	return nil
}
