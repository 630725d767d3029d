package protocol

import "encoding/binary"

// Alert is the payload a node emits when it believes it has been stolen.
//
// Path is the trailing-hop trace: Path[0] is the most recent forwarder
// (path1 on the wire), Path[5] the sixth most recent. Unused slots are zero.
// IgnoredID is zero when the sender has no node blacklisted.
type Alert struct {
	StolenID    NodeID             `json:"stolenId"`
	VoltageData uint16             `json:"voltageData"`
	PacketID    uint16             `json:"packetId"`
	Path        [PathLength]NodeID `json:"path"`
	IgnoredID   NodeID             `json:"ignoredId"`
}

// Type implements Message.
func (a Alert) Type() uint8 { return AMAlert }

// Hop returns path k (1-based, as on the wire). It panics if k is outside 1..6.
func (a Alert) Hop(k int) NodeID { return a.Path[k-1] }

// ShiftHop returns a copy of a as updated by a forwarder: hop becomes path1,
// every other entry moves one slot back and the old path6 is dropped.
// A zero hop is written like any other id.
func (a Alert) ShiftHop(hop NodeID) Alert {
	out := a
	copy(out.Path[1:], a.Path[:PathLength-1])
	out.Path[0] = hop
	return out
}

// ShiftHop is the function form of Alert.ShiftHop.
func ShiftHop(a Alert, hop NodeID) Alert { return a.ShiftHop(hop) }

// EncodeAlert serialises a into its 20-byte on-air form.
func EncodeAlert(a Alert) []byte {
	return AppendAlert(make([]byte, 0, AlertSize), a)
}

// AppendAlert appends the on-air form of a to dst.
func AppendAlert(dst []byte, a Alert) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(a.StolenID))
	dst = binary.BigEndian.AppendUint16(dst, a.VoltageData)
	dst = binary.BigEndian.AppendUint16(dst, a.PacketID)
	for _, hop := range a.Path {
		dst = binary.BigEndian.AppendUint16(dst, uint16(hop))
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(a.IgnoredID))
	return dst
}

// DecodeAlert parses exactly AlertSize bytes.
func DecodeAlert(data []byte) (Alert, error) {
	if err := checkLength("alert", data, AlertSize); err != nil {
		return Alert{}, err
	}
	a := Alert{
		StolenID:    NodeID(binary.BigEndian.Uint16(data[0:2])),
		VoltageData: binary.BigEndian.Uint16(data[2:4]),
		PacketID:    binary.BigEndian.Uint16(data[4:6]),
		IgnoredID:   NodeID(binary.BigEndian.Uint16(data[18:20])),
	}
	for i := range a.Path {
		off := 6 + 2*i
		a.Path[i] = NodeID(binary.BigEndian.Uint16(data[off : off+2]))
	}
	return a, nil
}

func (a Alert) MarshalBinary() ([]byte, error) { return EncodeAlert(a), nil }

func (a *Alert) UnmarshalBinary(data []byte) error {
	v, err := DecodeAlert(data)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
