package of10

import "openflow.sockstats.dev/ofcore/pkg/ofpbuf"

// ActionType discriminates the tagged union carried by Action.
type ActionType uint16

const (
	ActionOutput    ActionType = 0
	ActionSetDlVlan ActionType = 1
	ActionSetDlSrc  ActionType = 2
	ActionSetDlDst  ActionType = 3
	ActionSetNwSrc  ActionType = 4
	ActionSetNwDst  ActionType = 5
	ActionSetTpSrc  ActionType = 6
	ActionSetTpDst  ActionType = 7
)

func isKnownActionType(t ActionType) bool {
	return t <= ActionSetTpDst
}

// ActionLen is sizeof(struct ofp_action): type(2) + len(2) + a 4-byte
// union payload. It is the wire size of every variant except
// SetDlSrc/SetDlDst, which take ActionLen+4 bytes (see Action).
const ActionLen = 8

// Action is a single flow/packet-out action. Exactly the fields relevant
// to Type are meaningful; the rest are zero. Wire size is ActionLen (8)
// for every variant except SetDlSrc/SetDlDst, whose 6-byte MAC payload
// needs 4 extra bytes (12 total); the action's own len field carries the
// real size so mixed-variant tails stay self-describing.
type Action struct {
	Type ActionType

	// ActionOutput
	MaxLen uint16
	Port   uint16

	// ActionSetDlVlan
	VlanID uint16

	// ActionSetDlSrc, ActionSetDlDst
	DlAddr [6]byte

	// ActionSetNwSrc, ActionSetNwDst
	NwAddr uint32

	// ActionSetTpSrc, ActionSetTpDst
	TpPort uint16
}

// putAction writes one action, zeroing any unused union bytes.
func putAction(b *ofpbuf.Buffer, a Action) {
	switch a.Type {
	case ActionOutput:
		b.PutU16(uint16(a.Type))
		b.PutU16(ActionLen)
		b.PutU16(a.Port)
		b.PutU16(a.MaxLen)
	case ActionSetDlVlan:
		b.PutU16(uint16(a.Type))
		b.PutU16(ActionLen)
		b.PutU16(a.VlanID)
		b.PutZeros(2)
	case ActionSetDlSrc, ActionSetDlDst:
		b.PutU16(uint16(a.Type))
		b.PutU16(ActionLen + 4)
		b.PutBytes(a.DlAddr[:])
		b.PutZeros(2)
	case ActionSetNwSrc, ActionSetNwDst:
		b.PutU16(uint16(a.Type))
		b.PutU16(ActionLen)
		b.PutU32(a.NwAddr)
	case ActionSetTpSrc, ActionSetTpDst:
		b.PutU16(uint16(a.Type))
		b.PutU16(ActionLen)
		b.PutU16(a.TpPort)
		b.PutZeros(2)
	}
}

// actionWireLen reports how many bytes putAction will emit for an action of
// type t, without
// writing anything, so callers can size ahead of building flow_mod/
// packet_out tails.
func actionWireLen(t ActionType) int {
	switch t {
	case ActionSetDlSrc, ActionSetDlDst:
		return ActionLen + 4
	default:
		return ActionLen
	}
}

// parseAction reads one action starting at data[0], returning the action
// and the number of bytes consumed (from its own len field).
func parseAction(data []byte) (Action, int, error) {
	if len(data) < 4 {
		return Action{}, 0, ErrTruncated
	}
	typ := ActionType(be16(data[0:2]))
	length := int(be16(data[2:4]))
	if !isKnownActionType(typ) {
		return Action{}, 0, ErrUnknownAction
	}
	if length < 4 || length > len(data) {
		return Action{}, 0, ErrBadLength
	}
	a := Action{Type: typ}
	body := data[4:length]
	switch typ {
	case ActionOutput:
		if len(body) < 4 {
			return Action{}, 0, ErrTruncated
		}
		a.Port = be16(body[0:2])
		a.MaxLen = be16(body[2:4])
	case ActionSetDlVlan:
		if len(body) < 2 {
			return Action{}, 0, ErrTruncated
		}
		a.VlanID = be16(body[0:2])
	case ActionSetDlSrc, ActionSetDlDst:
		if len(body) < 6 {
			return Action{}, 0, ErrTruncated
		}
		copy(a.DlAddr[:], body[0:6])
	case ActionSetNwSrc, ActionSetNwDst:
		if len(body) < 4 {
			return Action{}, 0, ErrTruncated
		}
		a.NwAddr = be32(body[0:4])
	case ActionSetTpSrc, ActionSetTpDst:
		if len(body) < 2 {
			return Action{}, 0, ErrTruncated
		}
		a.TpPort = be16(body[0:2])
	}
	return a, length, nil
}

// putActions writes a sequence of actions with no padding between
// elements, matching spec.md section 4.B's tail-packing rule.
func putActions(b *ofpbuf.Buffer, actions []Action) {
	for _, a := range actions {
		putAction(b, a)
	}
}

// parseActions consumes the whole of data as a sequence of actions.
func parseActions(data []byte) ([]Action, error) {
	var out []Action
	for len(data) > 0 {
		a, n, err := parseAction(data)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		data = data[n:]
	}
	return out, nil
}
