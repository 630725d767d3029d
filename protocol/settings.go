package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// NodeID identifies a mote on the network. Zero means "none".
type NodeID uint16

// AlertMode is the alert delivery bitmask. Broadcast is the only defined bit;
// the rest are reserved and must survive a decode/encode cycle.
type AlertMode uint8

// Has reports whether every bit of m is set.
func (a AlertMode) Has(m AlertMode) bool { return a&m == m }

func (a AlertMode) String() string {
	return maskString(uint8(a), uint8(Broadcast), "BROADCAST")
}

// DetectMask is the detection trigger bitmask. LowBattery is the only
// defined bit.
type DetectMask uint8

// Has reports whether every bit of m is set.
func (d DetectMask) Has(m DetectMask) bool { return d&m == m }

func (d DetectMask) String() string {
	return maskString(uint8(d), uint8(LowBattery), "LOW_BATTERY")
}

func maskString(v, bit uint8, name string) string {
	if v == 0 {
		return "0"
	}
	var parts []string
	if v&bit != 0 {
		parts = append(parts, name)
	}
	if rest := v &^ bit; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", rest))
	}
	return strings.Join(parts, "|")
}

// Settings is the payload of an AMSettings command.
//
// A CheckInterval of 0 is legal; its meaning is up to the node. TargetID is
// only meaningful while Duration > 0, and a Duration of 0 clears the target.
type Settings struct {
	Alert         AlertMode  `json:"alert"`
	Detect        DetectMask `json:"detect"`
	CheckInterval uint16     `json:"checkInterval"`
	TargetID      NodeID     `json:"targetId"`
	Duration      uint16     `json:"duration"`
}

// DefaultSettings returns the configuration a node runs with before it has
// received any settings command.
func DefaultSettings() Settings {
	return Settings{
		Alert:         DefaultAlert,
		Detect:        DefaultDetect,
		CheckInterval: DefaultCheckInterval,
	}
}

// Type implements Message.
func (s Settings) Type() uint8 { return AMSettings }

// HasTarget reports whether the command carries an active blacklist target.
func (s Settings) HasTarget() bool { return s.Duration > 0 }

// EncodeSettings serialises s into its 8-byte on-air form.
func EncodeSettings(s Settings) []byte {
	return AppendSettings(make([]byte, 0, SettingsSize), s)
}

// AppendSettings appends the on-air form of s to dst.
func AppendSettings(dst []byte, s Settings) []byte {
	dst = append(dst, byte(s.Alert), byte(s.Detect))
	dst = binary.BigEndian.AppendUint16(dst, s.CheckInterval)
	dst = binary.BigEndian.AppendUint16(dst, uint16(s.TargetID))
	dst = binary.BigEndian.AppendUint16(dst, s.Duration)
	return dst
}

// DecodeSettings parses exactly SettingsSize bytes. Field values are not
// validated.
func DecodeSettings(data []byte) (Settings, error) {
	if err := checkLength("settings", data, SettingsSize); err != nil {
		return Settings{}, err
	}
	return Settings{
		Alert:         AlertMode(data[0]),
		Detect:        DetectMask(data[1]),
		CheckInterval: binary.BigEndian.Uint16(data[2:4]),
		TargetID:      NodeID(binary.BigEndian.Uint16(data[4:6])),
		Duration:      binary.BigEndian.Uint16(data[6:8]),
	}, nil
}

func (s Settings) MarshalBinary() ([]byte, error) { return EncodeSettings(s), nil }

func (s *Settings) UnmarshalBinary(data []byte) error {
	v, err := DecodeSettings(data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
