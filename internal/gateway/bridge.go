// Package gateway relays between a mote network and MQTT. Every frame heard
// on the radio goes up verbatim under its tag; settings commands come down
// and are broadcast on the radio.
package gateway

import (
	"fmt"
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ystepanoff/antitheft/internal/mqtt"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/link"
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Stats struct {
	Uplinked       uint64
	UplinkFailed   uint64
	Commands       uint64
	CommandsDenied uint64
}

type Bridge struct {
	node   *transport.Node
	pub    Publisher
	prefix string

	uplinked       atomic.Uint64
	uplinkFailed   atomic.Uint64
	commands       atomic.Uint64
	commandsDenied atomic.Uint64
}

// NewBridge hooks the bridge into node's receive path. The node still has
// to be listening for anything to flow.
func NewBridge(node *transport.Node, pub Publisher, prefix string) *Bridge {
	b := &Bridge{node: node, pub: pub, prefix: prefix}
	node.OnFrame(b.uplink)
	return b
}

func (b *Bridge) uplink(f *link.Frame) {
	topic := mqtt.UplinkTopic(b.prefix, f.Type)
	if err := b.pub.Publish(topic, f.Payload); err != nil {
		b.uplinkFailed.Add(1)
		util.LogError("[gateway] publish %s from %d: %v", topic, f.Source, err)
		return
	}
	b.uplinked.Add(1)
	util.LogDebug("[gateway] %s from %d -> %s (%s)",
		protocol.TypeName(f.Type), f.Source, topic, util.Truncate(f.Payload, 32))
}

// HandleCommand validates a settings record and broadcasts it on the radio.
func (b *Bridge) HandleCommand(payload []byte) error {
	s, err := protocol.DecodeSettings(payload)
	if err != nil {
		b.commandsDenied.Add(1)
		return fmt.Errorf("settings command: %w", err)
	}
	if err := b.node.SendSettings(s); err != nil {
		b.commandsDenied.Add(1)
		return fmt.Errorf("broadcast settings: %w", err)
	}
	b.commands.Add(1)
	util.LogInfo("[gateway] broadcast settings: alert=%v detect=%v interval=%d target=%d duration=%d",
		s.Alert, s.Detect, s.CheckInterval, s.TargetID, s.Duration)
	return nil
}

// CommandHandler adapts HandleCommand to a paho subscription.
func (b *Bridge) CommandHandler() paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		if err := b.HandleCommand(msg.Payload()); err != nil {
			util.LogWarning("[gateway] dropping command on %s: %v", msg.Topic(), err)
		}
	}
}

func (b *Bridge) Stats() Stats {
	return Stats{
		Uplinked:       b.uplinked.Load(),
		UplinkFailed:   b.uplinkFailed.Load(),
		Commands:       b.commands.Load(),
		CommandsDenied: b.commandsDenied.Load(),
	}
}
