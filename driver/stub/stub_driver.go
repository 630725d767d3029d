// Package stub provides an in-memory radio for host-side runs and tests.
// Drivers attached to the same Medium on the same channel hear each other's
// transmissions; a driver never hears itself.
package stub

import (
	"sync"
	"time"

	"github.com/ystepanoff/antitheft/transport"
)

// Medium is the shared air between stub drivers.
type Medium struct {
	mu      sync.Mutex
	drivers []*Driver
}

func NewMedium() *Medium { return &Medium{} }

// Attach creates a driver on the default channel that transmits into m.
func (m *Medium) Attach() *Driver {
	d := &Driver{medium: m, channel: transport.DefaultChannel}
	m.mu.Lock()
	m.drivers = append(m.drivers, d)
	m.mu.Unlock()
	return d
}

func (m *Medium) deliver(from *Driver, channel uint8, frame []byte) {
	m.mu.Lock()
	peers := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		if d != from {
			peers = append(peers, d)
		}
	}
	m.mu.Unlock()

	for _, d := range peers {
		if d.Channel() == channel {
			d.InjectRx(frame)
		}
	}
}

// Driver implements transport.RadioDriver over a Medium. A driver created
// with New has no medium; its transmissions only land in the TX log.
type Driver struct {
	medium *Medium

	mu      sync.Mutex
	channel uint8
	rxBuf   ringBuffer
	txBuf   ringBuffer
}

var _ transport.RadioDriver = (*Driver)(nil)

func New() *Driver { return &Driver{channel: transport.DefaultChannel} }

func (d *Driver) Configure(channel uint8) error { return d.SetChannel(channel) }

func (d *Driver) SetChannel(channel uint8) error {
	if channel > transport.MaxChannel {
		return transport.ErrInvalidChannel
	}
	d.mu.Lock()
	d.channel = channel
	d.mu.Unlock()
	return nil
}

func (d *Driver) Channel() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel
}

func (d *Driver) Tx(data []byte) error {
	frame := make([]byte, len(data))
	copy(frame, data)

	d.mu.Lock()
	d.txBuf.push(frame)
	channel := d.channel
	d.mu.Unlock()

	if d.medium != nil {
		d.medium.deliver(d, channel, frame)
	}
	return nil
}

func (d *Driver) Rx(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		d.mu.Lock()
		frame, ok := d.rxBuf.pop()
		d.mu.Unlock()
		if ok {
			out := make([]byte, len(frame))
			copy(out, frame)
			return out, nil
		}

		if time.Now().After(deadline) {
			return nil, transport.ErrTimeout
		}
		time.Sleep(1 * time.Millisecond)
	}
}

// InjectRx queues data as if it had been heard on the air.
func (d *Driver) InjectRx(data []byte) {
	frame := make([]byte, len(data))
	copy(frame, data)
	d.mu.Lock()
	d.rxBuf.push(frame)
	d.mu.Unlock()
}

// TxLog returns copies of the most recent transmissions, oldest first.
func (d *Driver) TxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txBuf.snapshot()
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		// full: drop the oldest
		rb.data[rb.head] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, 0, rb.count)
	for c, i := 0, rb.head; c < rb.count; c, i = c+1, (i+1)%ringCapacity {
		cp := make([]byte, len(rb.data[i]))
		copy(cp, rb.data[i])
		out = append(out, cp)
	}
	return out
}
