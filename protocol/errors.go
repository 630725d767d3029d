package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrShortInput    = errors.New("short input")
	ErrTrailingBytes = errors.New("trailing bytes")

	// Dispatcher errors; the record codecs never return these.
	ErrReservedType = errors.New("reserved message type")
	ErrUnknownType  = errors.New("unknown message type")
)

// checkLength reports ErrShortInput or ErrTrailingBytes, wrapped with the
// record name and byte counts, when len(data) != want.
func checkLength(record string, data []byte, want int) error {
	switch {
	case len(data) < want:
		return fmt.Errorf("%s: %w: got %d bytes, want %d", record, ErrShortInput, len(data), want)
	case len(data) > want:
		return fmt.Errorf("%s: %w: got %d bytes, want %d", record, ErrTrailingBytes, len(data), want)
	}
	return nil
}
