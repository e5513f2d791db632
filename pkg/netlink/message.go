// Package netlink builds and parses generic-netlink messages: the
// nlmsghdr/genlmsghdr framing and the attribute TLV stream nested inside
// it. It does not speak rtnetlink; dpif is the only consumer.
package netlink

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// align rounds n up to the next multiple of unix.NLA_ALIGNTO (4), the
// alignment both nlmsghdr and attribute TLVs use.
func align(n int) int {
	const to = unix.NLA_ALIGNTO
	return (n + to - 1) &^ (to - 1)
}

// GenlHeaderLen is sizeof(struct genlmsghdr): cmd(1) + version(1) + pad(2).
const GenlHeaderLen = 4

// Builder assembles one netlink message: an nlmsghdr, a genlmsghdr, and a
// stream of attribute TLVs, each padded to 4-byte alignment.
type Builder struct {
	msgType uint16
	flags   uint16
	seq     uint32
	pid     uint32
	buf     []byte
}

// NewBuilder starts a generic-netlink request addressed to familyID,
// reserving room for the nlmsghdr and genlmsghdr.
func NewBuilder(familyID uint16, flags uint16, seq uint32) *Builder {
	b := &Builder{msgType: familyID, flags: flags, seq: seq}
	b.buf = make([]byte, unix.SizeofNlMsghdr, 128)
	return b
}

// PutGenlHeader appends the generic-netlink command header.
func (b *Builder) PutGenlHeader(cmd, version uint8) {
	b.buf = append(b.buf, cmd, version, 0, 0)
}

// PutAttr appends one attribute TLV, padding the previous attribute (if
// any) up to 4-byte alignment first.
func (b *Builder) PutAttr(typ uint16, data []byte) {
	b.padToAlign()
	length := 4 + len(data)
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(length))
	binary.LittleEndian.PutUint16(hdr[2:4], typ)
	b.buf = append(b.buf, hdr...)
	b.buf = append(b.buf, data...)
}

func (b *Builder) PutAttrU8(typ uint16, v uint8)   { b.PutAttr(typ, []byte{v}) }
func (b *Builder) PutAttrU16(typ uint16, v uint16) { d := make([]byte, 2); binary.LittleEndian.PutUint16(d, v); b.PutAttr(typ, d) }
func (b *Builder) PutAttrU32(typ uint16, v uint32) { d := make([]byte, 4); binary.LittleEndian.PutUint32(d, v); b.PutAttr(typ, d) }
func (b *Builder) PutAttrString(typ uint16, s string) {
	b.PutAttr(typ, append([]byte(s), 0))
}

// PutRaw appends an already-framed opaque blob (used by dpif to embed a
// whole OpenFlow message as a single attribute's payload without an
// intermediate copy at the caller).
func (b *Builder) PutRaw(typ uint16, data []byte) { b.PutAttr(typ, data) }

func (b *Builder) padToAlign() {
	if pad := align(len(b.buf)) - len(b.buf); pad > 0 {
		b.buf = append(b.buf, make([]byte, pad)...)
	}
}

// SetPid fills in the sending socket's port id, which Open learns only
// after binding.
func (b *Builder) SetPid(pid uint32) { b.pid = pid }

// Bytes finishes the message: pads the last attribute, patches the
// nlmsghdr fields, and returns the wire bytes.
func (b *Builder) Bytes() []byte {
	b.padToAlign()
	binary.LittleEndian.PutUint32(b.buf[0:4], uint32(len(b.buf)))
	binary.LittleEndian.PutUint16(b.buf[4:6], b.msgType)
	binary.LittleEndian.PutUint16(b.buf[6:8], b.flags)
	binary.LittleEndian.PutUint32(b.buf[8:12], b.seq)
	binary.LittleEndian.PutUint32(b.buf[12:16], b.pid)
	return b.buf
}

// Message is one parsed generic-netlink message: its nlmsghdr, genlmsghdr
// (when present), and the raw attribute stream.
type Message struct {
	Header  Header
	Cmd     uint8
	Version uint8
	Attrs   map[uint16][]byte
}

// Header is the decoded nlmsghdr.
type Header struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

const nlmsghdrLen = unix.SizeofNlMsghdr

// ParseMessages splits a received datagram into its constituent netlink
// messages (a single recv may carry a batch, e.g. from NLM_F_DUMP).
func ParseMessages(data []byte) ([]Message, error) {
	var out []Message
	for len(data) >= nlmsghdrLen {
		h := Header{
			Len:   binary.LittleEndian.Uint32(data[0:4]),
			Type:  binary.LittleEndian.Uint16(data[4:6]),
			Flags: binary.LittleEndian.Uint16(data[6:8]),
			Seq:   binary.LittleEndian.Uint32(data[8:12]),
			Pid:   binary.LittleEndian.Uint32(data[12:16]),
		}
		if int(h.Len) < nlmsghdrLen || int(h.Len) > len(data) {
			return nil, ErrBadLength
		}
		body := data[nlmsghdrLen:h.Len]
		m := Message{Header: h}
		if h.Type != unix.NLMSG_ERROR && h.Type != unix.NLMSG_DONE && h.Type != unix.NLMSG_NOOP {
			if len(body) < GenlHeaderLen {
				return nil, ErrTruncated
			}
			m.Cmd = body[0]
			m.Version = body[1]
			attrs, err := ParseAttrs(body[GenlHeaderLen:])
			if err != nil {
				return nil, err
			}
			m.Attrs = attrs
		}
		out = append(out, m)
		data = data[align(int(h.Len)):]
	}
	return out, nil
}

// ParseAttrs walks a flat attribute TLV stream with no policy validation;
// callers that need length-bound checks should use ParseAttrsWithPolicy.
func ParseAttrs(data []byte) (map[uint16][]byte, error) {
	attrs := make(map[uint16][]byte)
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, ErrTruncated
		}
		length := int(binary.LittleEndian.Uint16(data[0:2]))
		typ := binary.LittleEndian.Uint16(data[2:4]) &^ nlaFNested &^ nlaFNetByteOrder
		if length < 4 || length > len(data) {
			return nil, ErrBadLength
		}
		attrs[typ] = data[4:length]
		data = data[align(length):]
	}
	return attrs, nil
}

const (
	nlaFNested       = 1 << 15
	nlaFNetByteOrder = 1 << 14
)

// AttrPolicy constrains one attribute's accepted length range; a MaxLen
// of 0 means unbounded.
type AttrPolicy struct {
	MinLen int
	MaxLen int
}

// ParseAttrsWithPolicy parses attrs and rejects anything that violates
// policy for its type; attributes with no policy entry are passed
// through unchecked (the dpif binary-protocol stays forward compatible
// with kernels that add new optional attributes). Only lengths are
// checked: the policy carries no expected data type, and an attribute
// that is absent is not reported as an error.
func ParseAttrsWithPolicy(data []byte, policy map[uint16]AttrPolicy) (map[uint16][]byte, error) {
	attrs, err := ParseAttrs(data)
	if err != nil {
		return nil, err
	}
	for typ, v := range attrs {
		p, ok := policy[typ]
		if !ok {
			continue
		}
		if len(v) < p.MinLen || (p.MaxLen > 0 && len(v) > p.MaxLen) {
			return nil, ErrPolicyViolation
		}
	}
	return attrs, nil
}
