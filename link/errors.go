package link

import "errors"

var (
	ErrNilFrame        = errors.New("nil frame")
	ErrPayloadTooLarge = errors.New("payload exceeds frame capacity")
	ErrFrameTooShort   = errors.New("frame too short")
	ErrBadLength       = errors.New("invalid length byte")
	ErrBadTerminal     = errors.New("missing terminal byte")
	ErrBadChecksum     = errors.New("payload checksum mismatch")
)
