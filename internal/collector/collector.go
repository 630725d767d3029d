// Package collector turns uplinked radio payloads into alert events. Alerts
// are deduplicated, wrapped in an envelope and published to the event stream
// and the live feed; payloads that do not decode go to the dead-letter queue.
package collector

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ystepanoff/antitheft/internal/mqtt"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/protocol"
)

// EventSink is the event stream; *broker.KafkaClient satisfies it.
type EventSink interface {
	Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error
	SendDLQ(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// LiveFeed receives every new alert event; *feed.Hub satisfies it.
type LiveFeed interface {
	Broadcast(v any) error
}

// AlertLog remembers alerts already seen; *store.Store satisfies it.
type AlertLog interface {
	Put(a protocol.Alert, at time.Time) (fresh bool, err error)
	Forget(stolen protocol.NodeID, packet uint16) error
}

// AlertEvent is the envelope published for every new alert.
type AlertEvent struct {
	EventID    string         `json:"eventId"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Topic      string         `json:"topic"`
	Hops       int            `json:"hops"`
	Alert      protocol.Alert `json:"alert"`
}

type Stats struct {
	Alerts     uint64
	Duplicates uint64
	Settings   uint64
	Reserved   uint64
	Rejected   uint64
	SinkErrors uint64
}

type Collector struct {
	prefix string
	sink   EventSink
	feed   LiveFeed
	log    AlertLog

	now   func() time.Time
	newID func() uuid.UUID

	alerts     atomic.Uint64
	duplicates atomic.Uint64
	settings   atomic.Uint64
	reserved   atomic.Uint64
	rejected   atomic.Uint64
	sinkErrors atomic.Uint64
}

// New builds a collector for uplinks under prefix. feed and log may be nil,
// which disables the live feed and deduplication respectively.
func New(prefix string, sink EventSink, feed LiveFeed, log AlertLog) *Collector {
	return &Collector{
		prefix: prefix,
		sink:   sink,
		feed:   feed,
		log:    log,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// Handle processes one uplinked payload. The returned error is only for
// sink failures; bad payloads are dead-lettered and reported as handled.
func (c *Collector) Handle(ctx context.Context, topic string, payload []byte) error {
	receivedAt := c.now().UTC()

	tag, err := mqtt.ParseUplinkTopic(c.prefix, topic)
	if err != nil {
		return c.reject(ctx, topic, payload, receivedAt, err)
	}

	if protocol.IsReserved(tag) {
		c.reserved.Add(1)
		util.LogDebug("[collector] %s on %s ignored (%d bytes)", protocol.TypeName(tag), topic, len(payload))
		return nil
	}
	msg, err := protocol.Decode(tag, payload)
	if err != nil {
		return c.reject(ctx, topic, payload, receivedAt, err)
	}

	switch m := msg.(type) {
	case protocol.Settings:
		c.settings.Add(1)
		util.LogInfo("[collector] settings echo on %s: alert=%v detect=%v interval=%d target=%d duration=%d",
			topic, m.Alert, m.Detect, m.CheckInterval, m.TargetID, m.Duration)
		return nil
	case protocol.Alert:
		return c.handleAlert(ctx, topic, m, receivedAt)
	}
	return nil
}

func (c *Collector) handleAlert(ctx context.Context, topic string, a protocol.Alert, at time.Time) error {
	if c.log != nil {
		fresh, err := c.log.Put(a, at)
		if err != nil {
			// A store failure must not drop the alert.
			util.LogError("[collector] store: %v", err)
		} else if !fresh {
			c.duplicates.Add(1)
			util.LogDebug("[collector] duplicate alert stolen=%d packet=%d", a.StolenID, a.PacketID)
			return nil
		}
	}

	event := AlertEvent{
		EventID:    c.newID().String(),
		ReceivedAt: at,
		Topic:      topic,
		Hops:       hops(a),
		Alert:      a,
	}
	buf, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.alerts.Add(1)
	util.LogWarning("[collector] node %d reported stolen (packet %d, voltage %d, %d hops)",
		a.StolenID, a.PacketID, a.VoltageData, event.Hops)

	if c.feed != nil {
		if err := c.feed.Broadcast(event); err != nil {
			util.LogError("[collector] feed: %v", err)
		}
	}

	key := []byte(strconv.Itoa(int(a.StolenID)))
	if err := c.sink.Send(ctx, key, buf,
		kafka.Header{Key: "eventId", Value: []byte(event.EventID)},
		kafka.Header{Key: "receivedAt", Value: []byte(at.Format(time.RFC3339Nano))},
	); err != nil {
		c.sinkErrors.Add(1)
		// Unpublished alerts must not block their own redelivery.
		if c.log != nil {
			if ferr := c.log.Forget(a.StolenID, a.PacketID); ferr != nil {
				util.LogError("[collector] store: %v", ferr)
			}
		}
		return fmt.Errorf("publish alert %s: %w", event.EventID, err)
	}
	return nil
}

func (c *Collector) reject(ctx context.Context, topic string, payload []byte, at time.Time, cause error) error {
	c.rejected.Add(1)
	util.LogWarning("[collector] invalid payload on %s, sending to DLQ: %v | %s", topic, cause, util.Truncate(payload, 64))

	buf, err := json.Marshal(map[string]any{
		"error":      cause.Error(),
		"original":   hex.EncodeToString(payload),
		"topic":      topic,
		"receivedAt": at.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	if err := c.sink.SendDLQ(ctx, []byte("invalid"), buf); err != nil {
		c.sinkErrors.Add(1)
		return fmt.Errorf("publish dlq: %w", err)
	}
	return nil
}

// hops counts the relays recorded in the alert path.
func hops(a protocol.Alert) int {
	n := 0
	for _, h := range a.Path {
		if h != 0 {
			n++
		}
	}
	return n
}

// MessageHandler adapts Handle to a paho subscription.
func (c *Collector) MessageHandler() paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		util.LogDebug("[collector] mqtt rx: topic=%s qos=%d bytes=%d", msg.Topic(), msg.Qos(), len(msg.Payload()))
		if err := c.Handle(context.Background(), msg.Topic(), msg.Payload()); err != nil {
			util.LogError("[collector] %v", err)
		}
	}
}

// Subscribe registers the collector on every uplink topic under its prefix.
func (c *Collector) Subscribe(client paho.Client, qos byte) error {
	return mqtt.Subscribe(client, mqtt.UplinkFilter(c.prefix), qos, c.MessageHandler())
}

func (c *Collector) Stats() Stats {
	return Stats{
		Alerts:     c.alerts.Load(),
		Duplicates: c.duplicates.Load(),
		Settings:   c.settings.Load(),
		Reserved:   c.reserved.Load(),
		Rejected:   c.rejected.Load(),
		SinkErrors: c.sinkErrors.Load(),
	}
}
