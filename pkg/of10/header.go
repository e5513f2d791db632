// Package of10 implements the OpenFlow 1.0 wire format: message framing,
// the 40-byte match structure, actions, and the fixed-size message bodies
// defined in section 5 of the OpenFlow 1.0 specification.
package of10

import (
	"encoding/binary"
	"fmt"

	"openflow.sockstats.dev/ofcore/pkg/ofpbuf"
)

// Version is the only OpenFlow wire version this package speaks.
const Version uint8 = 1

// Type enumerates the message kinds this core understands. The numeric
// values 0-14 follow the OFPT_* enum in original_source/include/openflow.h
// exactly; EchoRequest/EchoReply are appended at 15/16 as a keepalive
// supplement that original_source's minimal enum omitted.
type Type uint8

const (
	TypeControlHello     Type = 0
	TypeDataHello        Type = 1
	TypePacketIn         Type = 2
	TypePacketOut        Type = 3
	TypeFlowMod          Type = 4
	TypeFlowExpired      Type = 5
	TypeTable            Type = 6
	TypePortMod          Type = 7
	TypePortStatus       Type = 8
	TypeFlowStatRequest  Type = 9
	TypeFlowStatReply    Type = 10
	TypeTableStatRequest Type = 11
	TypeTableStatReply   Type = 12
	TypePortStatRequest  Type = 13
	TypePortStatReply    Type = 14
	TypeEchoRequest      Type = 15
	TypeEchoReply        Type = 16
)

func (t Type) String() string {
	switch t {
	case TypeControlHello:
		return "CONTROL_HELLO"
	case TypeDataHello:
		return "DATA_HELLO"
	case TypeEchoRequest:
		return "ECHO_REQUEST"
	case TypeEchoReply:
		return "ECHO_REPLY"
	case TypePacketIn:
		return "PACKET_IN"
	case TypePacketOut:
		return "PACKET_OUT"
	case TypeFlowMod:
		return "FLOW_MOD"
	case TypeFlowExpired:
		return "FLOW_EXPIRED"
	case TypeTable:
		return "TABLE"
	case TypePortMod:
		return "PORT_MOD"
	case TypePortStatus:
		return "PORT_STATUS"
	case TypeFlowStatRequest:
		return "FLOW_STAT_REQUEST"
	case TypeFlowStatReply:
		return "FLOW_STAT_REPLY"
	case TypeTableStatRequest:
		return "TABLE_STAT_REQUEST"
	case TypeTableStatReply:
		return "TABLE_STAT_REPLY"
	case TypePortStatRequest:
		return "PORT_STAT_REQUEST"
	case TypePortStatReply:
		return "PORT_STAT_REPLY"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

func isKnownType(t Type) bool {
	switch t {
	case TypeControlHello, TypeDataHello, TypeEchoRequest, TypeEchoReply,
		TypePacketIn, TypePacketOut, TypeFlowMod, TypeFlowExpired, TypeTable,
		TypePortMod, TypePortStatus, TypeFlowStatRequest, TypeFlowStatReply,
		TypeTableStatRequest, TypeTableStatReply, TypePortStatRequest,
		TypePortStatReply:
		return true
	}
	return false
}

// HeaderLen is sizeof(struct ofp_header) on the wire.
const HeaderLen = 8

// Header is the 8-byte prefix of every OpenFlow message.
type Header struct {
	Version uint8
	Type    Type
	Length  uint16
	Xid     uint32
}

// PutHeader writes a placeholder header (Length left as zero) and returns
// the byte offset of the Length field so the caller can patch it once the
// full message size is known.
func putHeader(b *ofpbuf.Buffer, typ Type, xid uint32) (lengthOffset int) {
	b.PutU8(Version)
	b.PutU8(uint8(typ))
	lengthOffset = b.Size()
	b.PutU16(0)
	b.PutU32(xid)
	return lengthOffset
}

// finishMessage patches the header's Length field with the final buffer
// size, satisfying invariant 2 in spec.md section 8.
func finishMessage(b *ofpbuf.Buffer, lengthOffset int) {
	binary.BigEndian.PutUint16(b.Bytes()[lengthOffset:], uint16(b.Size()))
}

// PeekLength reads just the length field out of a buffered prefix, for
// transports (pkg/vconn's stream carriers) that need to know how many
// bytes a framed message spans before the rest of it has arrived. It does
// not validate version or type; full validation happens in Decode once the
// whole message is buffered.
func PeekLength(headerPrefix []byte) (int, error) {
	if len(headerPrefix) < HeaderLen {
		return 0, ErrTruncated
	}
	length := binary.BigEndian.Uint16(headerPrefix[2:4])
	if int(length) < HeaderLen {
		return 0, ErrBadLength
	}
	return int(length), nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderLen {
		return Header{}, ErrTruncated
	}
	h := Header{
		Version: data[0],
		Type:    Type(data[1]),
		Length:  binary.BigEndian.Uint16(data[2:4]),
		Xid:     binary.BigEndian.Uint32(data[4:8]),
	}
	if h.Version != Version {
		return h, ErrBadVersion
	}
	if !isKnownType(h.Type) {
		return h, ErrBadType
	}
	if int(h.Length) < HeaderLen {
		return h, ErrBadLength
	}
	return h, nil
}
