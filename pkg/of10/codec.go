package of10

import "openflow.sockstats.dev/ofcore/pkg/ofpbuf"

// Message is any decoded OpenFlow message; Type reports the concrete wire
// kind so callers can type-switch without a reflection-based dispatch.
type Message interface {
	Type() Type
}

// Decode parses a single OpenFlow message out of data, which must contain
// exactly one message modulo a trailing overrun: if header.length is
// shorter than data, the excess is truncated away and Warnf is called
// (spec.md section 4.B); if header.length is longer than data, the message
// is rejected with ErrBadLength. Validation order follows spec.md section
// 4.B: version, then type, then length.
func Decode(data []byte) (Message, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if int(h.Length) > len(data) {
		return nil, ErrBadLength
	}
	if int(h.Length) < len(data) {
		Warnf("of10: decode: %s length=%d buffer=%d bytes, truncating", h.Type, h.Length, len(data))
	}
	body := data[HeaderLen:h.Length]
	switch h.Type {
	case TypeControlHello:
		return decodeControlHello(h, body)
	case TypeDataHello:
		return decodeDataHello(h, body)
	case TypePacketIn:
		return decodePacketIn(h, body)
	case TypePacketOut:
		return decodePacketOut(h, body)
	case TypeFlowMod:
		return decodeFlowMod(h, body)
	case TypeFlowExpired:
		return decodeFlowExpired(h, body)
	case TypeTable:
		return decodeTable(h, body)
	case TypePortMod:
		return decodePortMod(h, body)
	case TypePortStatus:
		return decodePortStatus(h, body)
	case TypeFlowStatRequest:
		return decodeFlowStatRequest(h, body)
	case TypeFlowStatReply:
		return decodeFlowStatReply(h, body)
	case TypeTableStatRequest:
		return decodeTableStatRequest(h, body)
	case TypeTableStatReply:
		return decodeTableStatReply(h, body)
	case TypePortStatRequest:
		return decodePortStatRequest(h, body)
	case TypePortStatReply:
		return decodePortStatReply(h, body)
	case TypeEchoRequest:
		return decodeEchoRequest(h, body)
	case TypeEchoReply:
		return decodeEchoReply(h, body)
	}
	return nil, ErrBadType
}

// Encode serializes any Message back to its wire form.
func Encode(m Message) *ofpbuf.Buffer {
	switch v := m.(type) {
	case ControlHello:
		return encodeControlHello(v)
	case DataHello:
		return encodeDataHello(v)
	case PacketIn:
		return encodePacketIn(v)
	case PacketOut:
		return encodePacketOut(v)
	case FlowMod:
		return encodeFlowMod(v)
	case FlowExpired:
		return encodeFlowExpired(v)
	case Table:
		return encodeTable(v)
	case PortMod:
		return encodePortMod(v)
	case PortStatus:
		return encodePortStatus(v)
	case FlowStatRequest:
		return encodeFlowStatRequest(v)
	case FlowStatReply:
		return encodeFlowStatReply(v)
	case TableStatRequest:
		return encodeTableStatRequest(v)
	case TableStatReply:
		return encodeTableStatReply(v)
	case PortStatRequest:
		return encodePortStatRequest(v)
	case PortStatReply:
		return encodePortStatReply(v)
	case EchoRequest:
		return encodeEchoRequest(v)
	case EchoReply:
		return encodeEchoReply(v)
	}
	panic("of10: Encode: unrecognized message type")
}

// MakeAddSimpleFlow builds a FLOW_MOD ADD with a single OUTPUT action,
// mirroring the original's make_add_simple_flow helper.
func MakeAddSimpleFlow(xid uint32, match Match, bufferID uint32, outPort uint16) *ofpbuf.Buffer {
	return Encode(FlowMod{
		Xid:      xid,
		Match:    match,
		Command:  FlowModAdd,
		MaxIdle:  MaxIdlePermanent,
		BufferID: bufferID,
		Actions: []Action{
			{Type: ActionOutput, Port: outPort, MaxLen: 0},
		},
	})
}

// MakePacketOut builds a PACKET_OUT carrying either a buffered packet
// reference or raw frame data, plus the actions to apply.
func MakePacketOut(xid uint32, bufferID uint32, inPort uint16, actions []Action, data []byte) *ofpbuf.Buffer {
	return Encode(PacketOut{
		Xid:      xid,
		BufferID: bufferID,
		InPort:   inPort,
		OutPort:  PortNone,
		Actions:  actions,
		Data:     data,
	})
}

// MakeEchoRequest builds a keepalive ECHO_REQUEST carrying an opaque
// payload the peer must return unchanged.
func MakeEchoRequest(xid uint32, data []byte) *ofpbuf.Buffer {
	return Encode(EchoRequest{Xid: xid, Data: data})
}

// MakeEchoReply builds the ECHO_REPLY answering xid, echoing data back.
func MakeEchoReply(xid uint32, data []byte) *ofpbuf.Buffer {
	return Encode(EchoReply{Xid: xid, Data: data})
}
