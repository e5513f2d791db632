package of10

import (
	"encoding/binary"
	"testing"

	"gotest.tools/v3/assert"

	"openflow.sockstats.dev/ofcore/pkg/ofpbuf"
)

func macOf(b0, b1, b2, b3, b4, b5 byte) [6]byte {
	return [6]byte{b0, b1, b2, b3, b4, b5}
}

// TestFlowModAddWireSize covers scenario S1: a FLOW_MOD ADD with one
// OUTPUT action must be exactly 80 bytes on the wire and round-trip to
// an identical structure.
func TestFlowModAddWireSize(t *testing.T) {
	match := Match{
		Wildcards: 0,
		InPort:    1,
		DlSrc:     macOf(0x02, 0, 0, 0, 0, 1),
		DlDst:     macOf(0x02, 0, 0, 0, 0, 2),
		DlVlan:    0xffff,
		DlType:    0x0800,
		NwSrc:     0x0a000001,
		NwDst:     0x0a000002,
		NwProto:   6,
		TpSrc:     1000,
		TpDst:     80,
	}
	fm := FlowMod{
		Xid:      42,
		Match:    match,
		Command:  FlowModAdd,
		MaxIdle:  60,
		BufferID: NoBufferedPacket,
		Actions: []Action{
			{Type: ActionOutput, Port: 2, MaxLen: 0},
		},
	}

	buf := Encode(fm)
	assert.Equal(t, buf.Size(), 80)

	wire := buf.Bytes()
	assert.Equal(t, wire[2], byte(0)) // length high byte
	assert.Equal(t, wire[3], byte(80))

	decoded, err := Decode(wire)
	assert.NilError(t, err)
	got, ok := decoded.(FlowMod)
	assert.Assert(t, ok)
	assert.DeepEqual(t, got.Match, match)
	assert.Equal(t, got.Command, FlowModAdd)
	assert.Equal(t, got.MaxIdle, uint16(60))
	assert.Equal(t, got.BufferID, NoBufferedPacket)
	assert.DeepEqual(t, got.Actions, fm.Actions)
}

func TestMatchRoundTripPreservesPad(t *testing.T) {
	m := Match{
		Wildcards: WildcardAll,
		InPort:    7,
		DlSrc:     macOf(1, 2, 3, 4, 5, 6),
		DlDst:     macOf(6, 5, 4, 3, 2, 1),
		DlVlan:    100,
		DlType:    0x0800,
		NwSrc:     0xc0a80001,
		NwDst:     0xc0a80002,
		NwProto:   17,
		TpSrc:     53,
		TpDst:     5353,
	}
	buf := ofpbuf.New(64)
	putMatch(buf, m)
	assert.Equal(t, buf.Size(), MatchLen)
	wire := buf.Bytes()
	// the 2-byte alignment pad and the 3-byte trailing pad must both be
	// zero on send.
	assert.DeepEqual(t, wire[22:24], []byte{0, 0})
	assert.DeepEqual(t, wire[33:36], []byte{0, 0, 0})
	assert.DeepEqual(t, parseMatch(wire), m)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	hello := Encode(ControlHello{Xid: 1, Version: 1, MissSendLen: MissSendLenUnchanged})
	wire := hello.Bytes()
	wire[0] = 2
	_, err := Decode(wire)
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	hello := Encode(ControlHello{Xid: 1, Version: 1, MissSendLen: MissSendLenUnchanged})
	wire := hello.Bytes()
	wire[1] = 200
	_, err := Decode(wire)
	assert.ErrorIs(t, err, ErrBadType)
}

func TestDecodeRejectsLengthBeyondBuffer(t *testing.T) {
	hello := Encode(ControlHello{Xid: 1, Version: 1, MissSendLen: MissSendLenUnchanged})
	wire := hello.Bytes()
	wire[3] = wire[3] + 10
	_, err := Decode(wire)
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestDecodeTruncatesWhenLengthShorterThanBuffer(t *testing.T) {
	hello := Encode(ControlHello{Xid: 1, Version: 1, MissSendLen: MissSendLenUnchanged})
	wire := append(hello.Bytes(), 0xde, 0xad, 0xbe, 0xef)
	decoded, err := Decode(wire)
	assert.NilError(t, err)
	_, ok := decoded.(ControlHello)
	assert.Assert(t, ok)
}

func TestDataHelloPortsTailCount(t *testing.T) {
	ports := []PhyPort{
		{PortNo: 1, Name: "eth0", Flags: 0, Speed: 1000, Features: 0},
		{PortNo: 2, Name: "eth1", Flags: 0, Speed: 1000, Features: 0},
	}
	hello := DataHello{Xid: 5, DatapathID: 0x1122334455667788, Ports: ports}
	wire := Encode(hello).Bytes()

	decoded, err := Decode(wire)
	assert.NilError(t, err)
	got, ok := decoded.(DataHello)
	assert.Assert(t, ok)
	assert.Equal(t, len(got.Ports), 2)
	assert.Equal(t, got.Ports[0].Name, "eth0")
	assert.Equal(t, got.Ports[1].PortNo, uint16(2))
}

func TestDataHelloBadAlignment(t *testing.T) {
	hello := DataHello{Xid: 5}
	wire := Encode(hello).Bytes()
	// append a partial port entry
	wire = append(wire, make([]byte, PhyPortLen-1)...)
	binary.BigEndian.PutUint16(wire[2:4], uint16(len(wire)))
	_, err := Decode(wire)
	assert.ErrorIs(t, err, ErrBadAlignment)
}

func TestPacketInAlignsDataAfterPad(t *testing.T) {
	pkt := PacketIn{
		Xid:      9,
		BufferID: 1,
		TotalLen: 64,
		InPort:   3,
		Reason:   ReasonNoMatch,
		Data:     []byte{0x45, 0x00, 0x00, 0x3c},
	}
	wire := Encode(pkt).Bytes()
	decoded, err := Decode(wire)
	assert.NilError(t, err)
	got, ok := decoded.(PacketIn)
	assert.Assert(t, ok)
	assert.DeepEqual(t, got.Data, pkt.Data)
	// fixed prefix is 8 header + 10 body = 18 bytes, two past a multiple of
	// 4, so an IP header after a 14-byte Ethernet header starts 4-aligned.
	assert.Equal(t, (HeaderLen+packetInFixedLen)%4, 2)
}

func TestPacketInUnknownReason(t *testing.T) {
	pkt := PacketIn{Xid: 1, Reason: 9}
	wire := Encode(pkt).Bytes()
	_, err := Decode(wire)
	assert.ErrorIs(t, err, ErrUnknownReason)
}

func TestPacketOutBufferedVsRaw(t *testing.T) {
	buffered := PacketOut{
		Xid:      1,
		BufferID: 77,
		InPort:   PortNone,
		OutPort:  2,
		Actions:  []Action{{Type: ActionOutput, Port: 2}},
	}
	wire := Encode(buffered).Bytes()
	decoded, err := Decode(wire)
	assert.NilError(t, err)
	got := decoded.(PacketOut)
	assert.Equal(t, len(got.Actions), 1)
	assert.Equal(t, len(got.Data), 0)

	raw := PacketOut{
		Xid:      2,
		BufferID: NoBufferedPacket,
		InPort:   PortNone,
		OutPort:  2,
		Data:     []byte{1, 2, 3, 4, 5},
	}
	wire2 := Encode(raw).Bytes()
	decoded2, err := Decode(wire2)
	assert.NilError(t, err)
	got2 := decoded2.(PacketOut)
	assert.DeepEqual(t, got2.Data, raw.Data)
	assert.Equal(t, len(got2.Actions), 0)
}

func TestEchoRequestReplyRoundTrip(t *testing.T) {
	req := MakeEchoRequest(3, []byte("ping"))
	decoded, err := Decode(req.Bytes())
	assert.NilError(t, err)
	gotReq := decoded.(EchoRequest)
	assert.DeepEqual(t, gotReq.Data, []byte("ping"))

	reply := MakeEchoReply(gotReq.Xid, gotReq.Data)
	decoded2, err := Decode(reply.Bytes())
	assert.NilError(t, err)
	gotReply := decoded2.(EchoReply)
	assert.Equal(t, gotReply.Xid, uint32(3))
	assert.DeepEqual(t, gotReply.Data, []byte("ping"))
}

func TestFlowStatReplyEmptyFlowsTerminatesDump(t *testing.T) {
	reply := FlowStatReply{Xid: 1}
	wire := Encode(reply).Bytes()
	decoded, err := Decode(wire)
	assert.NilError(t, err)
	got := decoded.(FlowStatReply)
	assert.Equal(t, len(got.Flows), 0)
}

func TestActionSetDlSrcWireSize(t *testing.T) {
	a := Action{Type: ActionSetDlSrc, DlAddr: macOf(1, 2, 3, 4, 5, 6)}
	buf := ofpbuf.New(64)
	putAction(buf, a)
	assert.Equal(t, buf.Size(), 12)
	got, n, err := parseAction(buf.Bytes())
	assert.NilError(t, err)
	assert.Equal(t, n, 12)
	assert.DeepEqual(t, got.DlAddr, a.DlAddr)
}

func TestActionUnknownType(t *testing.T) {
	buf := ofpbuf.New(64)
	buf.PutU16(99)
	buf.PutU16(8)
	buf.PutU32(0)
	_, _, err := parseAction(buf.Bytes())
	assert.ErrorIs(t, err, ErrUnknownAction)
}
