package of10

import "openflow.sockstats.dev/ofcore/pkg/ofpbuf"

// Flow-mod commands (ofp_flow_mod_command).
const (
	FlowModAdd          uint16 = 0
	FlowModDelete       uint16 = 1
	FlowModDeleteStrict uint16 = 2
)

// Why a packet was sent to the controller (ofp_reason).
const (
	ReasonNoMatch uint8 = 0
	ReasonAction  uint8 = 1
)

// What changed about a physical port (ofp_port_reason).
const (
	PortReasonAdd    uint8 = 0
	PortReasonDelete uint8 = 1
	PortReasonMod    uint8 = 2
)

// Flow stats request scope (ofp_flow_stats_request type).
const (
	FlowStatsIndiv     uint8 = 0
	FlowStatsAggregate uint8 = 1
)

// Datapath capability bits (ofp_capabilities).
const (
	CapFlowStats  uint32 = 1 << 0
	CapTableStats uint32 = 1 << 1
	CapPortStats  uint32 = 1 << 2
	CapSTP        uint32 = 1 << 3
	CapMultiPhyTx uint32 = 1 << 4
)

const (
	MaxTableNameLen = 32
	MaxPortNameLen  = 16
)

// ControlHello is sent controller -> datapath at connection setup.
type ControlHello struct {
	Xid         uint32
	Version     uint32
	Flags       uint16
	MissSendLen uint16
}

func (m ControlHello) Type() Type { return TypeControlHello }

func encodeControlHello(m ControlHello) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + 8)
	off := putHeader(b, TypeControlHello, m.Xid)
	b.PutU32(m.Version)
	b.PutU16(m.Flags)
	b.PutU16(m.MissSendLen)
	finishMessage(b, off)
	return b
}

func decodeControlHello(h Header, body []byte) (ControlHello, error) {
	if len(body) < 8 {
		return ControlHello{}, ErrTruncated
	}
	return ControlHello{
		Xid:         h.Xid,
		Version:     be32(body[0:4]),
		Flags:       be16(body[4:6]),
		MissSendLen: be16(body[6:8]),
	}, nil
}

// DataHello is sent datapath -> controller at connection setup; Ports is
// the variable tail whose count is derived from header.length.
type DataHello struct {
	Xid           uint32
	DatapathID    uint64
	NExact        uint32
	NMacOnly      uint32
	NCompression  uint32
	NGeneral      uint32
	BufferMB      uint32
	NBuffers      uint32
	Capabilities  uint32
	Actions       uint32
	MissSendLen   uint16
	Ports         []PhyPort
}

func (m DataHello) Type() Type { return TypeDataHello }

const dataHelloFixedLen = 8 + 4*8 + 2 + 2 // datapath_id + 8 u32s + miss_send_len + 2 pad

func encodeDataHello(m DataHello) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + dataHelloFixedLen + len(m.Ports)*PhyPortLen)
	off := putHeader(b, TypeDataHello, m.Xid)
	b.PutU64(m.DatapathID)
	b.PutU32(m.NExact)
	b.PutU32(m.NMacOnly)
	b.PutU32(m.NCompression)
	b.PutU32(m.NGeneral)
	b.PutU32(m.BufferMB)
	b.PutU32(m.NBuffers)
	b.PutU32(m.Capabilities)
	b.PutU32(m.Actions)
	b.PutU16(m.MissSendLen)
	b.PutZeros(2)
	for _, p := range m.Ports {
		putPhyPort(b, p)
	}
	finishMessage(b, off)
	return b
}

func decodeDataHello(h Header, body []byte) (DataHello, error) {
	if len(body) < dataHelloFixedLen {
		return DataHello{}, ErrTruncated
	}
	m := DataHello{
		Xid:          h.Xid,
		DatapathID:   be64(body[0:8]),
		NExact:       be32(body[8:12]),
		NMacOnly:     be32(body[12:16]),
		NCompression: be32(body[16:20]),
		NGeneral:     be32(body[20:24]),
		BufferMB:     be32(body[24:28]),
		NBuffers:     be32(body[28:32]),
		Capabilities: be32(body[32:36]),
		Actions:      be32(body[36:40]),
		MissSendLen:  be16(body[40:42]),
	}
	tail := body[dataHelloFixedLen:]
	if len(tail)%PhyPortLen != 0 {
		return DataHello{}, ErrBadAlignment
	}
	for i := 0; i+PhyPortLen <= len(tail); i += PhyPortLen {
		m.Ports = append(m.Ports, parsePhyPort(tail[i:i+PhyPortLen]))
	}
	return m, nil
}

// FlowMod installs, deletes, or strictly deletes a flow entry. The fixed
// prefix after Match carries Cookie and Priority in addition to the
// original_source fields (Command, MaxIdle, BufferID, GroupID), so the
// wire size matches the real OpenFlow 1.0 ofp_flow_mod layout: header(8)
// + match(40) + 24 = 72 bytes before any actions.
type FlowMod struct {
	Xid      uint32
	Match    Match
	Cookie   uint64
	Command  uint16
	MaxIdle  uint16
	BufferID uint32
	GroupID  uint32
	Priority uint16
	Actions  []Action
}

func (m FlowMod) Type() Type { return TypeFlowMod }

const flowModFixedLen = MatchLen + 8 + 2 + 2 + 4 + 4 + 2 + 2 // match + cookie + command + max_idle + buffer_id + group_id + priority + pad

func encodeFlowMod(m FlowMod) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + flowModFixedLen + len(m.Actions)*ActionLen)
	off := putHeader(b, TypeFlowMod, m.Xid)
	putMatch(b, m.Match)
	b.PutU64(m.Cookie)
	b.PutU16(m.Command)
	b.PutU16(m.MaxIdle)
	b.PutU32(m.BufferID)
	b.PutU32(m.GroupID)
	b.PutU16(m.Priority)
	b.PutZeros(2)
	putActions(b, m.Actions)
	finishMessage(b, off)
	return b
}

func decodeFlowMod(h Header, body []byte) (FlowMod, error) {
	if len(body) < flowModFixedLen {
		return FlowMod{}, ErrTruncated
	}
	m := FlowMod{Xid: h.Xid, Match: parseMatch(body[0:MatchLen])}
	p := body[MatchLen:]
	m.Cookie = be64(p[0:8])
	m.Command = be16(p[8:10])
	m.MaxIdle = be16(p[10:12])
	m.BufferID = be32(p[12:16])
	m.GroupID = be32(p[16:20])
	m.Priority = be16(p[20:22])
	actions, err := parseActions(body[flowModFixedLen:])
	if err != nil {
		return FlowMod{}, err
	}
	m.Actions = actions
	return m, nil
}

// FlowExpired reports a flow entry aged out of the table.
type FlowExpired struct {
	Xid         uint32
	Match       Match
	Duration    uint32
	PacketCount uint64
	ByteCount   uint64
}

func (m FlowExpired) Type() Type { return TypeFlowExpired }

const flowExpiredFixedLen = MatchLen + 4 + 8 + 8

func encodeFlowExpired(m FlowExpired) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + flowExpiredFixedLen)
	off := putHeader(b, TypeFlowExpired, m.Xid)
	putMatch(b, m.Match)
	b.PutU32(m.Duration)
	b.PutU64(m.PacketCount)
	b.PutU64(m.ByteCount)
	finishMessage(b, off)
	return b
}

func decodeFlowExpired(h Header, body []byte) (FlowExpired, error) {
	if len(body) < flowExpiredFixedLen {
		return FlowExpired{}, ErrTruncated
	}
	return FlowExpired{
		Xid:         h.Xid,
		Match:       parseMatch(body[0:MatchLen]),
		Duration:    be32(body[MatchLen : MatchLen+4]),
		PacketCount: be64(body[MatchLen+4 : MatchLen+12]),
		ByteCount:   be64(body[MatchLen+12 : MatchLen+20]),
	}, nil
}

// Table reports per-table runtime attributes. Name is NUL-padded to
// MaxTableNameLen on the wire.
type Table struct {
	Xid      uint32
	Name     string
	TableID  uint16
	NFlows   uint64
	MaxFlows uint64
}

func (m Table) Type() Type { return TypeTable }

const tableFixedLen = MaxTableNameLen + 2 + 8 + 8

func encodeTable(m Table) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + tableFixedLen)
	off := putHeader(b, TypeTable, m.Xid)
	nameBuf := make([]byte, MaxTableNameLen)
	copy(nameBuf, m.Name)
	b.PutBytes(nameBuf)
	b.PutU16(m.TableID)
	b.PutU64(m.NFlows)
	b.PutU64(m.MaxFlows)
	finishMessage(b, off)
	return b
}

func decodeTable(h Header, body []byte) (Table, error) {
	if len(body) < tableFixedLen {
		return Table{}, ErrTruncated
	}
	nameBytes := body[0:MaxTableNameLen]
	n := MaxTableNameLen
	for i, c := range nameBytes {
		if c == 0 {
			n = i
			break
		}
	}
	return Table{
		Xid:      h.Xid,
		Name:     string(nameBytes[:n]),
		TableID:  be16(body[MaxTableNameLen : MaxTableNameLen+2]),
		NFlows:   be64(body[MaxTableNameLen+2 : MaxTableNameLen+10]),
		MaxFlows: be64(body[MaxTableNameLen+10 : MaxTableNameLen+18]),
	}, nil
}

// PortMod requests a change to a physical port's configuration.
type PortMod struct {
	Xid  uint32
	Desc PhyPort
}

func (m PortMod) Type() Type { return TypePortMod }

func encodePortMod(m PortMod) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + PhyPortLen)
	off := putHeader(b, TypePortMod, m.Xid)
	putPhyPort(b, m.Desc)
	finishMessage(b, off)
	return b
}

func decodePortMod(h Header, body []byte) (PortMod, error) {
	if len(body) < PhyPortLen {
		return PortMod{}, ErrTruncated
	}
	return PortMod{Xid: h.Xid, Desc: parsePhyPort(body[:PhyPortLen])}, nil
}

// PortStatus reports a physical port change (datapath -> controller).
type PortStatus struct {
	Xid    uint32
	Reason uint8
	Desc   PhyPort
}

func (m PortStatus) Type() Type { return TypePortStatus }

const portStatusFixedLen = 4 + PhyPortLen // reason(1) + pad(3) + desc

func encodePortStatus(m PortStatus) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + portStatusFixedLen)
	off := putHeader(b, TypePortStatus, m.Xid)
	b.PutU8(m.Reason)
	b.PutZeros(3)
	putPhyPort(b, m.Desc)
	finishMessage(b, off)
	return b
}

func decodePortStatus(h Header, body []byte) (PortStatus, error) {
	if len(body) < portStatusFixedLen {
		return PortStatus{}, ErrTruncated
	}
	if !isKnownPortReason(body[0]) {
		return PortStatus{}, ErrUnknownReason
	}
	return PortStatus{
		Xid:    h.Xid,
		Reason: body[0],
		// body[1:4] is pad, ignored on receive.
		Desc: parsePhyPort(body[4 : 4+PhyPortLen]),
	}, nil
}

func isKnownPortReason(r uint8) bool {
	return r == PortReasonAdd || r == PortReasonDelete || r == PortReasonMod
}

// PacketIn delivers a captured frame to the controller. Data starts at
// offset 18, two bytes past a 4-byte boundary, so that, after the 14-byte
// Ethernet header, any IP header inside is 32-bit aligned.
type PacketIn struct {
	Xid      uint32
	BufferID uint32
	TotalLen uint16
	InPort   uint16
	Reason   uint8
	Data     []byte
}

func (m PacketIn) Type() Type { return TypePacketIn }

const packetInFixedLen = 4 + 2 + 2 + 1 + 1 // buffer_id + total_len + in_port + reason + pad

func encodePacketIn(m PacketIn) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + packetInFixedLen + len(m.Data))
	off := putHeader(b, TypePacketIn, m.Xid)
	b.PutU32(m.BufferID)
	b.PutU16(m.TotalLen)
	b.PutU16(m.InPort)
	b.PutU8(m.Reason)
	b.PutZeros(1)
	b.PutBytes(m.Data)
	finishMessage(b, off)
	return b
}

func decodePacketIn(h Header, body []byte) (PacketIn, error) {
	if len(body) < packetInFixedLen {
		return PacketIn{}, ErrTruncated
	}
	if body[8] != ReasonNoMatch && body[8] != ReasonAction {
		return PacketIn{}, ErrUnknownReason
	}
	return PacketIn{
		Xid:      h.Xid,
		BufferID: be32(body[0:4]),
		TotalLen: be16(body[4:6]),
		InPort:   be16(body[6:8]),
		Reason:   body[8],
		// body[9] is pad.
		Data: append([]byte(nil), body[packetInFixedLen:]...),
	}, nil
}

// PacketOut sends a packet to the datapath, either by buffer_id or with
// the raw frame attached, plus the actions to apply to it.
type PacketOut struct {
	Xid      uint32
	BufferID uint32
	InPort   uint16
	OutPort  uint16
	Actions  []Action
	Data     []byte // only meaningful when BufferID == NoBufferedPacket
}

func (m PacketOut) Type() Type { return TypePacketOut }

const packetOutFixedLen = 4 + 2 + 2

func encodePacketOut(m PacketOut) *ofpbuf.Buffer {
	tailLen := len(m.Actions) * ActionLen
	if m.BufferID == NoBufferedPacket {
		tailLen = len(m.Data)
	}
	b := ofpbuf.New(HeaderLen + packetOutFixedLen + tailLen)
	off := putHeader(b, TypePacketOut, m.Xid)
	b.PutU32(m.BufferID)
	b.PutU16(m.InPort)
	b.PutU16(m.OutPort)
	if m.BufferID == NoBufferedPacket {
		b.PutBytes(m.Data)
	} else {
		putActions(b, m.Actions)
	}
	finishMessage(b, off)
	return b
}

func decodePacketOut(h Header, body []byte) (PacketOut, error) {
	if len(body) < packetOutFixedLen {
		return PacketOut{}, ErrTruncated
	}
	m := PacketOut{
		Xid:      h.Xid,
		BufferID: be32(body[0:4]),
		InPort:   be16(body[4:6]),
		OutPort:  be16(body[6:8]),
	}
	tail := body[packetOutFixedLen:]
	if m.BufferID == NoBufferedPacket {
		m.Data = append([]byte(nil), tail...)
		return m, nil
	}
	actions, err := parseActions(tail)
	if err != nil {
		return PacketOut{}, err
	}
	m.Actions = actions
	return m, nil
}

// FlowStatRequest asks for flow entries matching Match.
type FlowStatRequest struct {
	Xid   uint32
	Match Match
	Scope uint8
}

func (m FlowStatRequest) Type() Type { return TypeFlowStatRequest }

const flowStatRequestFixedLen = MatchLen + 4 // scope(1) + pad(3)

func encodeFlowStatRequest(m FlowStatRequest) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + flowStatRequestFixedLen)
	off := putHeader(b, TypeFlowStatRequest, m.Xid)
	putMatch(b, m.Match)
	b.PutU8(m.Scope)
	b.PutZeros(3)
	finishMessage(b, off)
	return b
}

func decodeFlowStatRequest(h Header, body []byte) (FlowStatRequest, error) {
	if len(body) < flowStatRequestFixedLen {
		return FlowStatRequest{}, ErrTruncated
	}
	return FlowStatRequest{
		Xid:   h.Xid,
		Match: parseMatch(body[0:MatchLen]),
		Scope: body[MatchLen],
	}, nil
}

// FlowStats is one entry of a FlowStatReply.
type FlowStats struct {
	Match       Match
	Duration    uint32
	PacketCount uint64
	ByteCount   uint64
}

const flowStatsLen = MatchLen + 4 + 8 + 8

func putFlowStats(b *ofpbuf.Buffer, s FlowStats) {
	putMatch(b, s.Match)
	b.PutU32(s.Duration)
	b.PutU64(s.PacketCount)
	b.PutU64(s.ByteCount)
}

func parseFlowStats(data []byte) FlowStats {
	return FlowStats{
		Match:       parseMatch(data[0:MatchLen]),
		Duration:    be32(data[MatchLen : MatchLen+4]),
		PacketCount: be64(data[MatchLen+4 : MatchLen+12]),
		ByteCount:   be64(data[MatchLen+12 : MatchLen+20]),
	}
}

// FlowStatReply carries zero or more FlowStats; an empty Flows slice
// terminates a multi-message dump.
type FlowStatReply struct {
	Xid   uint32
	Flows []FlowStats
}

func (m FlowStatReply) Type() Type { return TypeFlowStatReply }

func encodeFlowStatReply(m FlowStatReply) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + len(m.Flows)*flowStatsLen)
	off := putHeader(b, TypeFlowStatReply, m.Xid)
	for _, s := range m.Flows {
		putFlowStats(b, s)
	}
	finishMessage(b, off)
	return b
}

func decodeFlowStatReply(h Header, body []byte) (FlowStatReply, error) {
	if len(body)%flowStatsLen != 0 {
		return FlowStatReply{}, ErrBadAlignment
	}
	m := FlowStatReply{Xid: h.Xid}
	for i := 0; i+flowStatsLen <= len(body); i += flowStatsLen {
		m.Flows = append(m.Flows, parseFlowStats(body[i:i+flowStatsLen]))
	}
	return m, nil
}

// TableStatRequest has no body beyond the header.
type TableStatRequest struct{ Xid uint32 }

func (m TableStatRequest) Type() Type { return TypeTableStatRequest }

func encodeTableStatRequest(m TableStatRequest) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen)
	off := putHeader(b, TypeTableStatRequest, m.Xid)
	finishMessage(b, off)
	return b
}

func decodeTableStatRequest(h Header, body []byte) (TableStatRequest, error) {
	return TableStatRequest{Xid: h.Xid}, nil
}

// TableStats is one entry of a TableStatReply.
type TableStats struct {
	TableID  uint16
	Name     string
	NFlows   uint64
	MaxFlows uint64
}

const tableStatsLen = 2 + 2 + MaxTableNameLen + 8 + 8

func putTableStats(b *ofpbuf.Buffer, s TableStats) {
	b.PutU16(s.TableID)
	b.PutZeros(2)
	nameBuf := make([]byte, MaxTableNameLen)
	copy(nameBuf, s.Name)
	b.PutBytes(nameBuf)
	b.PutU64(s.NFlows)
	b.PutU64(s.MaxFlows)
}

func parseTableStats(data []byte) TableStats {
	nameBytes := data[4 : 4+MaxTableNameLen]
	n := MaxTableNameLen
	for i, c := range nameBytes {
		if c == 0 {
			n = i
			break
		}
	}
	off := 4 + MaxTableNameLen
	return TableStats{
		TableID:  be16(data[0:2]),
		Name:     string(nameBytes[:n]),
		NFlows:   be64(data[off : off+8]),
		MaxFlows: be64(data[off+8 : off+16]),
	}
}

// TableStatReply carries per-table runtime attributes.
type TableStatReply struct {
	Xid    uint32
	Tables []TableStats
}

func (m TableStatReply) Type() Type { return TypeTableStatReply }

func encodeTableStatReply(m TableStatReply) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + len(m.Tables)*tableStatsLen)
	off := putHeader(b, TypeTableStatReply, m.Xid)
	for _, s := range m.Tables {
		putTableStats(b, s)
	}
	finishMessage(b, off)
	return b
}

func decodeTableStatReply(h Header, body []byte) (TableStatReply, error) {
	if len(body)%tableStatsLen != 0 {
		return TableStatReply{}, ErrBadAlignment
	}
	m := TableStatReply{Xid: h.Xid}
	for i := 0; i+tableStatsLen <= len(body); i += tableStatsLen {
		m.Tables = append(m.Tables, parseTableStats(body[i:i+tableStatsLen]))
	}
	return m, nil
}

// PortStatRequest asks for counters on one port, or all ports when
// PortNo == PortNone.
type PortStatRequest struct {
	Xid    uint32
	PortNo uint16
}

func (m PortStatRequest) Type() Type { return TypePortStatRequest }

const portStatRequestFixedLen = 2 + 6 // port_no + pad

func encodePortStatRequest(m PortStatRequest) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + portStatRequestFixedLen)
	off := putHeader(b, TypePortStatRequest, m.Xid)
	b.PutU16(m.PortNo)
	b.PutZeros(6)
	finishMessage(b, off)
	return b
}

func decodePortStatRequest(h Header, body []byte) (PortStatRequest, error) {
	if len(body) < portStatRequestFixedLen {
		return PortStatRequest{}, ErrTruncated
	}
	return PortStatRequest{Xid: h.Xid, PortNo: be16(body[0:2])}, nil
}

// PortStats is one entry of a PortStatReply.
type PortStats struct {
	PortNo    uint16
	RxPackets uint64
	TxPackets uint64
	RxBytes   uint64
	TxBytes   uint64
	RxDropped uint64
	TxDropped uint64
}

const portStatsLen = 2 + 6 + 8*6

func putPortStats(b *ofpbuf.Buffer, s PortStats) {
	b.PutU16(s.PortNo)
	b.PutZeros(6)
	b.PutU64(s.RxPackets)
	b.PutU64(s.TxPackets)
	b.PutU64(s.RxBytes)
	b.PutU64(s.TxBytes)
	b.PutU64(s.RxDropped)
	b.PutU64(s.TxDropped)
}

func parsePortStats(data []byte) PortStats {
	off := 8
	return PortStats{
		PortNo:    be16(data[0:2]),
		RxPackets: be64(data[off : off+8]),
		TxPackets: be64(data[off+8 : off+16]),
		RxBytes:   be64(data[off+16 : off+24]),
		TxBytes:   be64(data[off+24 : off+32]),
		RxDropped: be64(data[off+32 : off+40]),
		TxDropped: be64(data[off+40 : off+48]),
	}
}

// PortStatReply carries per-port counters.
type PortStatReply struct {
	Xid   uint32
	Ports []PortStats
}

func (m PortStatReply) Type() Type { return TypePortStatReply }

func encodePortStatReply(m PortStatReply) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + len(m.Ports)*portStatsLen)
	off := putHeader(b, TypePortStatReply, m.Xid)
	for _, s := range m.Ports {
		putPortStats(b, s)
	}
	finishMessage(b, off)
	return b
}

func decodePortStatReply(h Header, body []byte) (PortStatReply, error) {
	if len(body)%portStatsLen != 0 {
		return PortStatReply{}, ErrBadAlignment
	}
	m := PortStatReply{Xid: h.Xid}
	for i := 0; i+portStatsLen <= len(body); i += portStatsLen {
		m.Ports = append(m.Ports, parsePortStats(body[i:i+portStatsLen]))
	}
	return m, nil
}

// EchoRequest/EchoReply are a keepalive pair appended beyond
// original_source's enum (see SPEC_FULL.md). Data is opaque and echoed
// back verbatim by the receiver of a request.
type EchoRequest struct {
	Xid  uint32
	Data []byte
}

func (m EchoRequest) Type() Type { return TypeEchoRequest }

func encodeEchoRequest(m EchoRequest) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + len(m.Data))
	off := putHeader(b, TypeEchoRequest, m.Xid)
	b.PutBytes(m.Data)
	finishMessage(b, off)
	return b
}

func decodeEchoRequest(h Header, body []byte) (EchoRequest, error) {
	return EchoRequest{Xid: h.Xid, Data: append([]byte(nil), body...)}, nil
}

type EchoReply struct {
	Xid  uint32
	Data []byte
}

func (m EchoReply) Type() Type { return TypeEchoReply }

func encodeEchoReply(m EchoReply) *ofpbuf.Buffer {
	b := ofpbuf.New(HeaderLen + len(m.Data))
	off := putHeader(b, TypeEchoReply, m.Xid)
	b.PutBytes(m.Data)
	finishMessage(b, off)
	return b
}

func decodeEchoReply(h Header, body []byte) (EchoReply, error) {
	return EchoReply{Xid: h.Xid, Data: append([]byte(nil), body...)}, nil
}
