package of10

import "openflow.sockstats.dev/ofcore/pkg/ofpbuf"

// MatchLen is sizeof(struct ofp_match): 40 bytes, fixed.
const MatchLen = 40

// Wildcard bits for Match.Wildcards; a set bit excludes that field from
// matching. Bit order follows OFPFW_* in original_source/include/openflow.h.
const (
	WildcardInPort  uint32 = 1 << 0
	WildcardDlVlan  uint32 = 1 << 1
	WildcardDlSrc   uint32 = 1 << 2
	WildcardDlDst   uint32 = 1 << 3
	WildcardDlType  uint32 = 1 << 4
	WildcardNwSrc   uint32 = 1 << 5
	WildcardNwDst   uint32 = 1 << 6
	WildcardNwProto uint32 = 1 << 7
	WildcardTpSrc   uint32 = 1 << 8
	WildcardTpDst   uint32 = 1 << 9
	WildcardAll     uint32 = (1 << 10) - 1
)

// Match is the fixed 40-byte ofp_match structure. Wildcards is carried as a
// full word so the struct's natural layout lands on 40 bytes: a 2-byte pad
// falls between DlType and NwSrc to bring NwSrc to a 4-byte boundary, and a
// further 3-byte pad follows NwProto. All integer fields are network byte
// order on the wire; both pad regions must be zero on send and are ignored
// on receive.
type Match struct {
	Wildcards uint32
	InPort    uint16
	DlSrc     [6]byte
	DlDst     [6]byte
	DlVlan    uint16
	DlType    uint16
	NwSrc     uint32
	NwDst     uint32
	NwProto   uint8
	TpSrc     uint16
	TpDst     uint16
}

func putMatch(b *ofpbuf.Buffer, m Match) {
	b.PutU32(m.Wildcards)
	b.PutU16(m.InPort)
	b.PutBytes(m.DlSrc[:])
	b.PutBytes(m.DlDst[:])
	b.PutU16(m.DlVlan)
	b.PutU16(m.DlType)
	b.PutZeros(2)
	b.PutU32(m.NwSrc)
	b.PutU32(m.NwDst)
	b.PutU8(m.NwProto)
	b.PutZeros(3)
	b.PutU16(m.TpSrc)
	b.PutU16(m.TpDst)
}

func parseMatch(data []byte) Match {
	var m Match
	m.Wildcards = be32(data[0:4])
	m.InPort = be16(data[4:6])
	copy(m.DlSrc[:], data[6:12])
	copy(m.DlDst[:], data[12:18])
	m.DlVlan = be16(data[18:20])
	m.DlType = be16(data[20:22])
	// data[22:24] is alignment pad, ignored on receive.
	m.NwSrc = be32(data[24:28])
	m.NwDst = be32(data[28:32])
	m.NwProto = data[32]
	// data[33:36] is pad, ignored on receive.
	m.TpSrc = be16(data[36:38])
	m.TpDst = be16(data[38:40])
	return m
}
