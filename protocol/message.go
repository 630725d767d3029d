package protocol

import "fmt"

// Message is a decoded payload that knows its own message-type tag.
type Message interface {
	Type() uint8
}

// Encode serialises a Settings or Alert. Any other Message yields nil.
func Encode(m Message) []byte {
	switch v := m.(type) {
	case Settings:
		return EncodeSettings(v)
	case *Settings:
		return EncodeSettings(*v)
	case Alert:
		return EncodeAlert(v)
	case *Alert:
		return EncodeAlert(*v)
	}
	return nil
}

// Decode routes payload to the codec selected by tag. Reserved tags
// (AMTheft, DisSettings, ColAlerts) have layouts defined elsewhere and yield
// ErrReservedType; anything else unknown yields ErrUnknownType.
func Decode(tag uint8, payload []byte) (Message, error) {
	switch tag {
	case AMSettings:
		s, err := DecodeSettings(payload)
		if err != nil {
			return nil, err
		}
		return s, nil
	case AMAlert:
		a, err := DecodeAlert(payload)
		if err != nil {
			return nil, err
		}
		return a, nil
	case AMTheft, DisSettings, ColAlerts:
		return nil, fmt.Errorf("tag %d (%s): %w", tag, TypeName(tag), ErrReservedType)
	}
	return nil, fmt.Errorf("tag %d: %w", tag, ErrUnknownType)
}

// IsReserved reports whether tag is allocated without a layout in this package.
func IsReserved(tag uint8) bool {
	return tag == AMTheft || tag == DisSettings || tag == ColAlerts
}

// TypeName returns the protocol name of a message-type tag.
func TypeName(tag uint8) string {
	switch tag {
	case AMSettings:
		return "AM_SETTINGS"
	case AMTheft:
		return "AM_THEFT"
	case AMAlert:
		return "AM_ALERT"
	case DisSettings:
		return "DIS_SETTINGS"
	case ColAlerts:
		return "COL_ALERTS"
	}
	return fmt.Sprintf("UNKNOWN(%d)", tag)
}
