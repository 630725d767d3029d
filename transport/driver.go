package transport

import (
	"errors"
	"time"
)

var (
	ErrInvalidPayload = errors.New("invalid payload size")
	ErrTimeout        = errors.New("operation timed out")
	ErrInvalidChannel = errors.New("invalid channel (valid range: 0-125)")
)

// MaxChannel is the highest RF channel a driver accepts.
const MaxChannel = 125

// DefaultChannel is the RF channel nodes start on.
const DefaultChannel = 7

// RadioDriver is the interface that wraps the basic radio operations.
// Tx and Rx carry whole link frames.
type RadioDriver interface {
	Configure(channel uint8) error
	SetChannel(channel uint8) error
	Tx(data []byte) error
	Rx(timeout time.Duration) ([]byte, error)
}
