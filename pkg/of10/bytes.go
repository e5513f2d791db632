package of10

import "encoding/binary"

// be16/be32/be64 read network-byte-order integers. MAC addresses, port
// name bytes, and raw IPv4 octets are never passed through these: they are
// copied as opaque byte strings per spec.md section 4.B's byte-order
// contract.
func be16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func be32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func be64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
