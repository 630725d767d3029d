package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ystepanoff/antitheft/driver/stub"
	"github.com/ystepanoff/antitheft/link"
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, append([]byte(nil), payload...)})
	return nil
}

func (p *fakePublisher) wait(t *testing.T, n int) []published {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		p.mu.Lock()
		if len(p.msgs) >= n {
			out := append([]published(nil), p.msgs...)
			p.mu.Unlock()
			return out
		}
		p.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d publishes", n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestBridgeUplink(t *testing.T) {
	medium := stub.NewMedium()
	gw := transport.NewNode(1, medium.Attach())
	mote := transport.NewNode(2, medium.Attach())

	pub := &fakePublisher{}
	b := NewBridge(gw, pub, "site")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.Listen(ctx)

	alert := mote.NewAlert(2900)
	if err := mote.SendAlert(alert); err != nil {
		t.Fatal(err)
	}
	// Reserved tags are relayed verbatim too.
	if err := mote.Send(protocol.ColAlerts, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	msgs := pub.wait(t, 2)
	if msgs[0].topic != "site/22" {
		t.Errorf("topic = %q, want site/22", msgs[0].topic)
	}
	got, err := protocol.DecodeAlert(msgs[0].payload)
	if err != nil {
		t.Fatalf("DecodeAlert() error = %v", err)
	}
	if got != alert {
		t.Errorf("uplinked alert = %+v, want %+v", got, alert)
	}
	if msgs[1].topic != "site/11" || string(msgs[1].payload) != "\x01\x02\x03" {
		t.Errorf("reserved uplink = %q %x", msgs[1].topic, msgs[1].payload)
	}
	deadline := time.Now().Add(time.Second)
	for b.Stats().Uplinked != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Uplinked = %d, want 2", b.Stats().Uplinked)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBridgeUplinkFailureCounted(t *testing.T) {
	gw := transport.NewNode(1, stub.New())
	b := NewBridge(gw, &fakePublisher{err: errors.New("broker down")}, "site")

	gw.ProcessFrame(&link.Frame{Source: 5, Type: protocol.AMAlert, Payload: make([]byte, protocol.AlertSize)})
	if s := b.Stats(); s.UplinkFailed != 1 || s.Uplinked != 0 {
		t.Errorf("Stats = %+v, want one failure", s)
	}
}

func TestBridgeCommand(t *testing.T) {
	medium := stub.NewMedium()
	gw := transport.NewNode(1, medium.Attach())
	mote := transport.NewNode(2, medium.Attach())
	b := NewBridge(gw, &fakePublisher{}, "site")

	applied := make(chan protocol.Settings, 1)
	mote.OnSettings(func(from protocol.NodeID, s protocol.Settings) { applied <- s })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mote.Listen(ctx)

	cmd := protocol.Settings{Alert: protocol.Broadcast, Detect: protocol.LowBattery, CheckInterval: 500, TargetID: 9, Duration: 60000}
	if err := b.HandleCommand(protocol.EncodeSettings(cmd)); err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}

	select {
	case s := <-applied:
		if s != cmd {
			t.Errorf("mote applied %+v, want %+v", s, cmd)
		}
	case <-time.After(time.Second):
		t.Fatal("settings never reached the mote")
	}
	if mote.IgnoredID() != 9 {
		t.Errorf("IgnoredID() = %d, want 9", mote.IgnoredID())
	}
}

func TestBridgeRejectsBadCommand(t *testing.T) {
	radio := stub.New()
	b := NewBridge(transport.NewNode(1, radio), &fakePublisher{}, "site")

	err := b.HandleCommand([]byte{0x04, 0x01, 0x03})
	if !errors.Is(err, protocol.ErrShortInput) {
		t.Errorf("HandleCommand() error = %v, want ErrShortInput", err)
	}
	if len(radio.TxLog()) != 0 {
		t.Error("invalid command reached the radio")
	}
	if s := b.Stats(); s.CommandsDenied != 1 {
		t.Errorf("CommandsDenied = %d, want 1", s.CommandsDenied)
	}
}

func TestSimulationRelaysAlerts(t *testing.T) {
	medium := stub.NewMedium()
	gw := transport.NewNode(1, medium.Attach())
	pub := &fakePublisher{}
	NewBridge(gw, pub, "site")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.Listen(ctx)

	// A threshold this high makes nearly every check fire.
	motes := StartSimulation(ctx, medium, SimOptions{Count: 2, FirstID: 10, Channel: transport.DefaultChannel, CheckInterval: 5, LowVoltage: 60000})
	if len(motes) != 2 {
		t.Fatalf("StartSimulation() returned %d motes", len(motes))
	}

	for _, m := range pub.wait(t, 2) {
		if m.topic != "site/22" {
			t.Errorf("unexpected topic %q", m.topic)
		}
	}
}

func TestSimulationFollowsGatewayChannel(t *testing.T) {
	medium := stub.NewMedium()
	gw := transport.NewNode(1, medium.Attach())
	if err := gw.SetChannel(80); err != nil {
		t.Fatal(err)
	}
	pub := &fakePublisher{}
	b := NewBridge(gw, pub, "site")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.Listen(ctx)

	motes := StartSimulation(ctx, medium, SimOptions{Count: 2, FirstID: 10, Channel: 80, CheckInterval: 5, LowVoltage: 60000})
	if len(motes) != 2 {
		t.Fatalf("StartSimulation() returned %d motes", len(motes))
	}

	// Uplink: alerts from the motes reach the gateway on channel 80.
	pub.wait(t, 1)

	// Downlink: a settings command reaches the motes.
	cmd := protocol.Settings{Alert: protocol.Broadcast, Detect: protocol.LowBattery, CheckInterval: 5, TargetID: 11, Duration: 60000}
	if err := b.HandleCommand(protocol.EncodeSettings(cmd)); err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for motes[0].IgnoredID() != 11 {
		if time.Now().After(deadline) {
			t.Fatalf("mote 10 IgnoredID() = %d, want 11", motes[0].IgnoredID())
		}
		time.Sleep(2 * time.Millisecond)
	}
}
