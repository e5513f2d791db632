package of10

import (
	"bytes"

	"openflow.sockstats.dev/ofcore/pkg/ofpbuf"
)

// Port number sentinels from spec.md section 3.
const (
	PortMaxNormal uint16 = 0x00ff // highest non-reserved port number; ports 0x100..0xfff9 are reserved
	PortNormal    uint16 = 0xfffa
	PortFlood     uint16 = 0xfffb
	PortAll       uint16 = 0xfffc
	PortController uint16 = 0xfffd
	PortLocal     uint16 = 0xfffe
	PortNone      uint16 = 0xffff
)

// VlanNone means "no VLAN set" in a match, or "strip the VLAN header" in an
// action.
const VlanNone uint16 = 0xffff

// EthertypeCutoff distinguishes an 802.3 length field from an Ethernet II
// ethertype.
const EthertypeCutoff uint16 = 0x0600

// EthertypeNone means "frame has no ethertype".
const EthertypeNone uint16 = 0x05ff

// MaxIdlePermanent means the flow never ages out.
const MaxIdlePermanent uint16 = 0

// NoBufferedPacket is the sentinel buffer_id meaning "no buffered packet".
const NoBufferedPacket uint32 = 0xffffffff

// MissSendLenUnchanged means "leave the current miss_send_len unchanged".
const MissSendLenUnchanged uint16 = 0xffff

// PhyPortLen is sizeof(struct ofp_phy_port): port_no(2) + hw_addr(6) +
// name(16) + flags(4) + speed(4) + features(4).
const PhyPortLen = 36

// PhyPort describes one switch port as reported in DATA_HELLO/FEATURES and
// PORT_STATUS messages.
type PhyPort struct {
	PortNo   uint16
	HWAddr   [6]byte
	Name     string // NUL-terminated on the wire, max 16 bytes including NUL
	Flags    uint32
	Speed    uint32
	Features uint32
}

func putPhyPort(b *ofpbuf.Buffer, p PhyPort) {
	b.PutU16(p.PortNo)
	b.PutBytes(p.HWAddr[:])
	nameBuf := make([]byte, 16)
	copy(nameBuf, p.Name)
	b.PutBytes(nameBuf)
	b.PutU32(p.Flags)
	b.PutU32(p.Speed)
	b.PutU32(p.Features)
}

func parsePhyPort(data []byte) PhyPort {
	var p PhyPort
	p.PortNo = be16(data[0:2])
	copy(p.HWAddr[:], data[2:8])
	nameBytes := data[8:24]
	if i := bytes.IndexByte(nameBytes, 0); i >= 0 {
		nameBytes = nameBytes[:i]
	}
	p.Name = string(nameBytes)
	p.Flags = be32(data[24:28])
	p.Speed = be32(data[28:32])
	p.Features = be32(data[32:36])
	return p
}
