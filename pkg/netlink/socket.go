package netlink

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Socket is a bound AF_NETLINK/NETLINK_GENERIC datagram socket.
type Socket struct {
	fd  int
	pid uint32
}

// Open creates and binds a generic-netlink socket. If groups is non-zero
// it also joins the given multicast group bitmask at bind time.
func Open(groups uint32) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_GENERIC)
	if err != nil {
		return nil, fmt.Errorf("netlink: socket: %w", err)
	}
	sa := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: groups}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: bind: %w", err)
	}
	local, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: getsockname: %w", err)
	}
	nl, ok := local.(*unix.SockaddrNetlink)
	if !ok {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: unexpected sockaddr type")
	}
	return &Socket{fd: fd, pid: nl.Pid}, nil
}

// Close releases the socket.
func (s *Socket) Close() error { return unix.Close(s.fd) }

// Pid is this socket's netlink port id, used to address builder-produced
// messages and to recognize unicast replies.
func (s *Socket) Pid() uint32 { return s.pid }

// Send transmits one complete, already-framed message.
func (s *Socket) Send(msg []byte) error {
	return unix.Sendto(s.fd, msg, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
}

// SendScatter transmits a message assembled from the given segments, one
// iovec each (empty segments are skipped), without copying them into one
// contiguous buffer first. dpif passes three: the headers plus attribute
// prefix, an opaque payload (a whole OpenFlow message), and the
// alignment padding. This mirrors the original dpif's
// 3-iovec sendmsg, which exists specifically so the embedded OpenFlow
// bytes never get copied on the send path.
func (s *Socket) SendScatter(segments ...[]byte) error {
	iovs := make([]unix.Iovec, 0, len(segments))
	for i := range segments {
		if len(segments[i]) == 0 {
			continue
		}
		iovs = append(iovs, unix.Iovec{Base: &segments[i][0], Len: uint64(len(segments[i]))})
	}
	if len(iovs) == 0 {
		return nil
	}
	sa := unix.RawSockaddrNetlink{Family: unix.AF_NETLINK}
	msg := unix.Msghdr{
		Name:    (*byte)(unsafe.Pointer(&sa)),
		Namelen: uint32(unsafe.Sizeof(sa)),
		Iov:     &iovs[0],
		Iovlen:  uint64(len(iovs)),
	}
	_, _, errno := unix.Syscall(unix.SYS_SENDMSG, uintptr(s.fd), uintptr(unsafe.Pointer(&msg)), 0)
	if errno != 0 {
		return fmt.Errorf("netlink: sendmsg: %w", errno)
	}
	return nil
}

// SetRecvBuffer raises the socket's receive buffer size. Linux doubles
// whatever value is requested via SO_RCVBUF for bookkeeping overhead, so
// large dump replies need this set well above their expected size.
func (s *Socket) SetRecvBuffer(bytes int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes); err != nil {
		return fmt.Errorf("netlink: setsockopt SO_RCVBUF: %w", err)
	}
	return nil
}

// Recv reads one datagram (which may contain several netlink messages)
// into buf and returns the bytes actually received. ENOBUFS means the
// socket's receive queue overflowed before we could drain it (the peer
// is producing multicast traffic faster than we're reading); Recv
// retries with a fresh read rather than treating it as fatal.
func (s *Socket) Recv(buf []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(s.fd, buf, 0)
		if err == unix.ENOBUFS {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("netlink: recvfrom: %w", err)
		}
		return n, nil
	}
}

// Generic-netlink controller family/command constants (GENL_ID_CTRL is
// always family 0x10 on Linux; CTRL_CMD_GETFAMILY and its attributes are
// stable uapi values).
const (
	genlIDCtrl          = unix.GENL_ID_CTRL
	ctrlCmdGetfamily    = 3
	ctrlAttrFamilyID    = 1
	ctrlAttrFamilyName  = 2
	ctrlAttrMcastGroups = 7

	ctrlAttrMcastGrpName = 1
	ctrlAttrMcastGrpID   = 2
)

// LookupFamily resolves a generic-netlink family name to its numeric id
// and the id of one named multicast group it advertises (groupName may
// be empty if the caller doesn't need multicast).
func LookupFamily(sock *Socket, name, groupName string) (familyID uint16, groupID uint32, err error) {
	b := NewBuilder(genlIDCtrl, unix.NLM_F_REQUEST|unix.NLM_F_ACK, 1)
	b.SetPid(sock.Pid())
	b.PutGenlHeader(ctrlCmdGetfamily, 1)
	b.PutAttrString(ctrlAttrFamilyName, name)
	if err := sock.Send(b.Bytes()); err != nil {
		return 0, 0, err
	}

	buf := make([]byte, 64*1024)
	n, err := sock.Recv(buf)
	if err != nil {
		return 0, 0, err
	}
	msgs, err := ParseMessages(buf[:n])
	if err != nil {
		return 0, 0, err
	}
	for _, m := range msgs {
		if m.Header.Type == unix.NLMSG_ERROR {
			return 0, 0, ErrNoSuchFamily
		}
		if m.Attrs == nil {
			continue
		}
		idRaw, ok := m.Attrs[ctrlAttrFamilyID]
		if !ok || len(idRaw) < 2 {
			continue
		}
		familyID = binary.LittleEndian.Uint16(idRaw)
		if groupName == "" {
			return familyID, 0, nil
		}
		groups, ok := m.Attrs[ctrlAttrMcastGroups]
		if !ok {
			return familyID, 0, nil
		}
		gid, found := parseMcastGroups(groups, groupName)
		if !found {
			return familyID, 0, ErrNoSuchFamily
		}
		return familyID, gid, nil
	}
	return 0, 0, ErrNoSuchFamily
}

// parseMcastGroups walks the nested CTRL_ATTR_MCAST_GROUPS attribute
// (an array of nested attributes, each holding a name/id pair) looking
// for groupName.
func parseMcastGroups(data []byte, groupName string) (uint32, bool) {
	entries, err := ParseAttrs(data)
	if err != nil {
		return 0, false
	}
	for _, entry := range entries {
		fields, err := ParseAttrs(entry)
		if err != nil {
			continue
		}
		nameRaw, ok := fields[ctrlAttrMcastGrpName]
		if !ok {
			continue
		}
		if trimNul(nameRaw) != groupName {
			continue
		}
		idRaw, ok := fields[ctrlAttrMcastGrpID]
		if !ok || len(idRaw) < 4 {
			continue
		}
		return binary.LittleEndian.Uint32(idRaw), true
	}
	return 0, false
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
