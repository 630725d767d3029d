//go:build tinygo || baremetal

package nrf

import (
	"time"
	"unsafe"

	"github.com/ystepanoff/antitheft/link"
	"github.com/ystepanoff/antitheft/transport"

	"device/nrf"
)

// Network address shared by every mote of one deployment.
const (
	DefaultAddress uint32 = 0xE7E7E7E7
	DefaultPrefix  byte   = 0xE7
)

// Driver provides a RadioDriver backed by the real NRF peripheral registers.
// It keeps an internal buffer for frame TX/RX operations.
type Driver struct {
	buffer  [link.MaxFrameSize]byte
	address uint32
	prefix  byte
}

func New() transport.RadioDriver {
	return &Driver{address: DefaultAddress, prefix: DefaultPrefix}
}

// Configure starts the radio clock and brings the radio up on channel.
func (d *Driver) Configure(channel uint8) error {
	StartHFCLK()
	return ConfigureRadio(d.address, d.prefix, channel)
}

func (d *Driver) SetChannel(channel uint8) error {
	if channel > transport.MaxChannel {
		return transport.ErrInvalidChannel
	}
	nrf.RADIO.FREQUENCY.Set(uint32(channel))
	return nil
}

func (d *Driver) Tx(data []byte) error {
	if len(data) > len(d.buffer) {
		return transport.ErrInvalidPayload
	}
	copy(d.buffer[:], data)
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_TXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	for nrf.RADIO.EVENTS_END.Get() == 0 {
	}
	disable()
	return nil
}

func (d *Driver) Rx(timeout time.Duration) ([]byte, error) {
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_RXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	start := time.Now()
	for nrf.RADIO.EVENTS_END.Get() == 0 {
		if time.Since(start) > timeout {
			disable()
			return nil, transport.ErrTimeout
		}
	}
	disable()

	// The first byte is the link length field.
	n := int(d.buffer[0]) + link.LengthFieldSize
	if n > link.MaxFrameSize {
		n = link.MaxFrameSize
	}
	out := make([]byte, n)
	copy(out, d.buffer[:n])
	return out, nil
}

func disable() {
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
}
