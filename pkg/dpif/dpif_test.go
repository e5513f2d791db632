package dpif

import (
	"encoding/binary"
	"testing"

	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"

	"openflow.sockstats.dev/ofcore/pkg/netlink"
	"openflow.sockstats.dev/ofcore/pkg/of10"
)

func TestAlign4(t *testing.T) {
	assert.Equal(t, align4(0), 0)
	assert.Equal(t, align4(1), 4)
	assert.Equal(t, align4(4), 4)
	assert.Equal(t, align4(5), 8)
}

func TestIsBareAck(t *testing.T) {
	assert.Assert(t, isBareAck([]netlink.Message{{Header: netlink.Header{Type: unix.NLMSG_ERROR}}}))
	assert.Assert(t, !isBareAck([]netlink.Message{
		{Header: netlink.Header{Type: unix.NLMSG_ERROR}},
		{Header: netlink.Header{Type: unix.NLMSG_DONE}},
	}))
	assert.Assert(t, !isBareAck([]netlink.Message{{Header: netlink.Header{Type: 99}, Attrs: map[uint16][]byte{1: {0}}}}))
}

func TestTableWireLenMatchesEncodedTable(t *testing.T) {
	wire := of10.Encode(of10.Table{
		Xid:      1,
		Name:     "table0",
		TableID:  0,
		NFlows:   10,
		MaxFlows: 1000,
	})
	assert.Equal(t, len(wire.Bytes()), tableWireLen)
}

func TestFlowModDumpEntryLenMatchesEncodedFlowMod(t *testing.T) {
	wire := of10.Encode(of10.FlowMod{
		Match:   of10.Match{Wildcards: of10.WildcardAll},
		Command: of10.FlowModAdd,
		Actions: []of10.Action{{Type: of10.ActionOutput, Port: 1}},
	})
	assert.Equal(t, len(wire.Bytes()), flowModDumpEntryLen)
}

func TestFirstAttr(t *testing.T) {
	msgs := []netlink.Message{
		{Attrs: map[uint16][]byte{attrDpIdx: {1, 0, 0, 0}}},
		{Attrs: map[uint16][]byte{attrDpInfo: {9, 9}}},
	}
	v, err := firstAttr(msgs, attrDpInfo)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []byte{9, 9})

	_, err = firstAttr(msgs, attrTable)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestMgmtCommandFraming(t *testing.T) {
	req := netlink.NewBuilder(7, unix.NLM_F_REQUEST|unix.NLM_F_ACK, 1)
	req.SetPid(42)
	req.PutGenlHeader(cmdAddPort, 1)
	req.PutAttrU32(attrDpIdx, 3)
	req.PutAttrString(attrPortName, "eth0")
	wire := req.Bytes()

	msgs, err := netlink.ParseMessages(wire)
	assert.NilError(t, err)
	assert.Equal(t, len(msgs), 1)
	assert.Equal(t, msgs[0].Cmd, cmdAddPort)
	assert.Equal(t, binary.LittleEndian.Uint32(msgs[0].Attrs[attrDpIdx]), uint32(3))
	assert.Equal(t, string(msgs[0].Attrs[attrPortName][:4]), "eth0")
}
