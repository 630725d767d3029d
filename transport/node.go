package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ystepanoff/antitheft/link"
	"github.com/ystepanoff/antitheft/protocol"
)

// Node is a mote's view of the radio: it frames and sends anti-theft
// payloads, decodes what it hears and keeps the settings it was last given.
type Node struct {
	id     protocol.NodeID
	driver RadioDriver
	now    func() time.Time
	log    Logger

	mu          sync.Mutex
	channel     uint8
	seq         uint16
	packetID    uint16
	settings    protocol.Settings
	targetUntil time.Time
	onSettings  func(from protocol.NodeID, s protocol.Settings)
	onAlert     func(from protocol.NodeID, a protocol.Alert)
	onFrame     func(*link.Frame)
	callbacks   map[uint8]func(*link.Frame)

	listening atomic.Bool
}

func NewNode(id protocol.NodeID, d RadioDriver) *Node {
	return &Node{
		id:        id,
		driver:    d,
		now:       time.Now,
		log:       stdLogger{},
		channel:   DefaultChannel,
		settings:  protocol.DefaultSettings(),
		callbacks: make(map[uint8]func(*link.Frame)),
	}
}

func (n *Node) ID() protocol.NodeID { return n.id }

// SetLogger replaces the node's logger. Call it before Listen or
// StartCheckTask; a nil l restores the default.
func (n *Node) SetLogger(l Logger) {
	if l == nil {
		l = stdLogger{}
	}
	n.log = l
}

func (n *Node) Initialise() error {
	n.mu.Lock()
	ch := n.channel
	n.mu.Unlock()
	return n.driver.Configure(ch)
}

func (n *Node) SetChannel(ch uint8) error {
	if ch > MaxChannel {
		return ErrInvalidChannel
	}
	if err := n.driver.SetChannel(ch); err != nil {
		return err
	}
	n.mu.Lock()
	n.channel = ch
	n.mu.Unlock()
	return nil
}

// Settings returns the configuration currently in effect.
func (n *Node) Settings() protocol.Settings {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settings
}

// ApplySettings replaces the node configuration. A command with a non-zero
// Duration starts a blacklist window of Duration milliseconds for TargetID;
// a zero Duration clears it.
func (n *Node) ApplySettings(s protocol.Settings) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settings = s
	if s.HasTarget() {
		n.targetUntil = n.now().Add(time.Duration(s.Duration) * time.Millisecond)
	} else {
		n.targetUntil = time.Time{}
	}
}

// IgnoredID returns the blacklisted node, or 0 once the window has lapsed.
func (n *Node) IgnoredID() protocol.NodeID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ignoredLocked()
}

func (n *Node) ignoredLocked() protocol.NodeID {
	if n.settings.HasTarget() && n.now().Before(n.targetUntil) {
		return n.settings.TargetID
	}
	return 0
}

// OnSettings registers the callback run after a settings command is applied.
func (n *Node) OnSettings(cb func(from protocol.NodeID, s protocol.Settings)) {
	n.mu.Lock()
	n.onSettings = cb
	n.mu.Unlock()
}

// OnAlert registers the callback run for every alert heard.
func (n *Node) OnAlert(cb func(from protocol.NodeID, a protocol.Alert)) {
	n.mu.Lock()
	n.onAlert = cb
	n.mu.Unlock()
}

// OnFrame registers a callback for every frame heard from another node,
// whatever its type, before the payload is decoded.
func (n *Node) OnFrame(cb func(*link.Frame)) {
	n.mu.Lock()
	n.onFrame = cb
	n.mu.Unlock()
}

// RegisterCallback receives raw frames of the given type before decoding.
// It is the only way to see reserved tags.
func (n *Node) RegisterCallback(tag uint8, cb func(*link.Frame)) {
	n.mu.Lock()
	n.callbacks[tag] = cb
	n.mu.Unlock()
}

// Send frames payload under tag and transmits it.
func (n *Node) Send(tag uint8, payload []byte) error {
	if len(payload) > link.MaxPayloadSize {
		return ErrInvalidPayload
	}

	n.mu.Lock()
	seq := n.seq
	n.seq++
	n.mu.Unlock()

	data, err := link.EncodeFrame(&link.Frame{
		Source:  n.id,
		Type:    tag,
		Seq:     seq,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	return n.driver.Tx(data)
}

func (n *Node) SendSettings(s protocol.Settings) error {
	return n.Send(protocol.AMSettings, protocol.EncodeSettings(s))
}

func (n *Node) SendAlert(a protocol.Alert) error {
	return n.Send(protocol.AMAlert, protocol.EncodeAlert(a))
}

// NewAlert builds an alert originated by this node with the next packet id
// and an empty hop trace.
func (n *Node) NewAlert(voltage uint16) protocol.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.packetID++
	return protocol.Alert{
		StolenID:    n.id,
		VoltageData: voltage,
		PacketID:    n.packetID,
		IgnoredID:   n.ignoredLocked(),
	}
}

// ForwardAlert re-transmits a with this node pushed onto the hop trace.
func (n *Node) ForwardAlert(a protocol.Alert) error {
	return n.SendAlert(a.ShiftHop(n.id))
}

func (n *Node) ReceiveFrame(timeout time.Duration) (*link.Frame, error) {
	data, err := n.driver.Rx(timeout)
	if err != nil {
		return nil, err
	}
	return link.DecodeFrame(data)
}

// ProcessFrame dispatches one frame by its message-type tag.
func (n *Node) ProcessFrame(frame *link.Frame) {
	if frame == nil || frame.Source == n.id {
		return
	}

	n.mu.Lock()
	raw := n.callbacks[frame.Type]
	onFrame, onSettings, onAlert := n.onFrame, n.onSettings, n.onAlert
	n.mu.Unlock()

	if onFrame != nil {
		onFrame(frame)
	}
	if raw != nil {
		raw(frame)
	}

	msg, err := frame.Message()
	if err != nil {
		if errors.Is(err, protocol.ErrReservedType) {
			n.log.Debugf("[Node %d] %s frame from %d ignored", n.id, protocol.TypeName(frame.Type), frame.Source)
		} else {
			n.log.Warnf("[Node %d] dropping frame from %d: %v", n.id, frame.Source, err)
		}
		return
	}

	switch m := msg.(type) {
	case protocol.Settings:
		n.ApplySettings(m)
		n.log.Infof("[Node %d] settings from %d: alert=%v detect=%v interval=%d target=%d duration=%d",
			n.id, frame.Source, m.Alert, m.Detect, m.CheckInterval, m.TargetID, m.Duration)
		if onSettings != nil {
			onSettings(frame.Source, m)
		}
	case protocol.Alert:
		n.log.Debugf("[Node %d] alert from %d: stolen=%d packet=%d", n.id, frame.Source, m.StolenID, m.PacketID)
		if onAlert != nil {
			onAlert(frame.Source, m)
		}
	}
}

// Listen runs the receive loop in the background until ctx is done.
func (n *Node) Listen(ctx context.Context) {
	if !n.listening.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer n.listening.Store(false)
		for ctx.Err() == nil {
			frame, err := n.ReceiveFrame(100 * time.Millisecond)
			if err != nil {
				if !errors.Is(err, ErrTimeout) {
					n.log.Debugf("[Node %d] rx: %v", n.id, err)
				}
				continue
			}
			n.ProcessFrame(frame)
		}
	}()
}

// StartCheckTask runs the periodic self-check at the node's CheckInterval
// (milliseconds). A zero interval disables checking until new settings
// arrive. When LowBattery detection is on and sample() reads below
// threshold, the node broadcasts an alert.
func (n *Node) StartCheckTask(ctx context.Context, sample func() uint16, threshold uint16) {
	go func() {
		for {
			s := n.Settings()
			wait := time.Duration(s.CheckInterval) * time.Millisecond
			if wait == 0 {
				wait = protocol.DefaultCheckInterval * time.Millisecond
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			s = n.Settings()
			if s.CheckInterval == 0 || !s.Detect.Has(protocol.LowBattery) {
				continue
			}
			if v := sample(); v < threshold {
				a := n.NewAlert(v)
				if err := n.SendAlert(a); err != nil {
					n.log.Errorf("[Node %d] alert send failed: %v", n.id, err)
					continue
				}
				n.log.Warnf("[Node %d] low battery %d, alert %d sent", n.id, v, a.PacketID)
			}
		}
	}()
}
