package collector

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ystepanoff/antitheft/internal/store"
	"github.com/ystepanoff/antitheft/protocol"
)

type sent struct {
	key, value []byte
	headers    []kafka.Header
}

type fakeSink struct {
	mu   sync.Mutex
	main []sent
	dlq  []sent
	err  error
}

func (s *fakeSink) Send(_ context.Context, key, value []byte, headers ...kafka.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.main = append(s.main, sent{key, value, headers})
	return nil
}

func (s *fakeSink) SendDLQ(_ context.Context, key, value []byte, headers ...kafka.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.dlq = append(s.dlq, sent{key, value, headers})
	return nil
}

type fakeFeed struct {
	events []any
}

func (f *fakeFeed) Broadcast(v any) error {
	f.events = append(f.events, v)
	return nil
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCollector(t *testing.T, sink EventSink, feed LiveFeed) *Collector {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	c := New("site", sink, feed, st)
	c.now = func() time.Time { return fixedTime }
	c.newID = func() uuid.UUID { return uuid.MustParse("6f1c5c3e-1d4b-4a8e-9a63-2f8f0c1e7a10") }
	return c
}

func TestHandleAlert(t *testing.T) {
	sink, feed := &fakeSink{}, &fakeFeed{}
	c := newTestCollector(t, sink, feed)

	a := protocol.Alert{StolenID: 0x0007, VoltageData: 0x0BB8, PacketID: 0x0001,
		Path: [protocol.PathLength]protocol.NodeID{3, 2}, IgnoredID: 5}
	if err := c.Handle(context.Background(), "site/22", protocol.EncodeAlert(a)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(sink.main) != 1 {
		t.Fatalf("main sends = %d, want 1", len(sink.main))
	}
	msg := sink.main[0]
	if string(msg.key) != "7" {
		t.Errorf("key = %q, want 7", msg.key)
	}

	var ev AlertEvent
	if err := json.Unmarshal(msg.value, &ev); err != nil {
		t.Fatalf("event is not JSON: %v", err)
	}
	if ev.EventID != "6f1c5c3e-1d4b-4a8e-9a63-2f8f0c1e7a10" {
		t.Errorf("EventID = %q", ev.EventID)
	}
	if ev.Alert != a || ev.Hops != 2 || ev.Topic != "site/22" || !ev.ReceivedAt.Equal(fixedTime) {
		t.Errorf("event = %+v", ev)
	}
	if len(msg.headers) != 2 || msg.headers[0].Key != "eventId" {
		t.Errorf("headers = %+v", msg.headers)
	}

	if len(feed.events) != 1 {
		t.Errorf("feed events = %d, want 1", len(feed.events))
	}
	if s := c.Stats(); s.Alerts != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestHandleDuplicateAlert(t *testing.T) {
	sink := &fakeSink{}
	c := newTestCollector(t, sink, nil)

	a := protocol.Alert{StolenID: 4, PacketID: 9}
	relayed := protocol.ShiftHop(a, 8)
	for _, p := range [][]byte{protocol.EncodeAlert(a), protocol.EncodeAlert(relayed)} {
		if err := c.Handle(context.Background(), "site/22", p); err != nil {
			t.Fatal(err)
		}
	}

	if len(sink.main) != 1 {
		t.Errorf("main sends = %d, want 1", len(sink.main))
	}
	if s := c.Stats(); s.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", s.Duplicates)
	}
}

func TestHandleRejects(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		wantErr string
	}{
		{"short alert", "site/22", make([]byte, 19), "short input"},
		{"long settings", "site/54", make([]byte, 9), "trailing bytes"},
		{"unknown tag", "site/200", []byte{1}, "unknown"},
		{"bad topic", "site/cmd/settings", make([]byte, 8), "not an uplink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			c := newTestCollector(t, sink, nil)

			if err := c.Handle(context.Background(), tt.topic, tt.payload); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if len(sink.main) != 0 || len(sink.dlq) != 1 {
				t.Fatalf("main/dlq = %d/%d, want 0/1", len(sink.main), len(sink.dlq))
			}

			var env map[string]string
			if err := json.Unmarshal(sink.dlq[0].value, &env); err != nil {
				t.Fatal(err)
			}
			if env["topic"] != tt.topic {
				t.Errorf("topic = %q, want %q", env["topic"], tt.topic)
			}
			if !strings.Contains(env["error"], tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", env["error"], tt.wantErr)
			}
			if len(env["original"]) != 2*len(tt.payload) {
				t.Errorf("original = %q, want hex of %d bytes", env["original"], len(tt.payload))
			}
		})
	}
}

func TestHandleReservedAndSettings(t *testing.T) {
	sink := &fakeSink{}
	c := newTestCollector(t, sink, nil)
	ctx := context.Background()

	c.Handle(ctx, "site/99", []byte{0xFF})
	c.Handle(ctx, "site/42", nil)
	c.Handle(ctx, "site/54", protocol.EncodeSettings(protocol.DefaultSettings()))

	if len(sink.main)+len(sink.dlq) != 0 {
		t.Errorf("sink received %d/%d messages, want none", len(sink.main), len(sink.dlq))
	}
	if s := c.Stats(); s.Reserved != 2 || s.Settings != 1 {
		t.Errorf("Stats = %+v, want 2 reserved, 1 settings", s)
	}
}

func TestHandleSinkError(t *testing.T) {
	sink := &fakeSink{err: errors.New("kafka down")}
	c := newTestCollector(t, sink, nil)

	err := c.Handle(context.Background(), "site/22", protocol.EncodeAlert(protocol.Alert{StolenID: 1}))
	if err == nil {
		t.Fatal("Handle() error = nil, want sink error")
	}
	if s := c.Stats(); s.SinkErrors != 1 {
		t.Errorf("SinkErrors = %d, want 1", s.SinkErrors)
	}
}

func TestHandleRepublishesAfterSinkError(t *testing.T) {
	sink := &fakeSink{err: errors.New("kafka down")}
	c := newTestCollector(t, sink, nil)
	payload := protocol.EncodeAlert(protocol.Alert{StolenID: 6, PacketID: 2})

	if err := c.Handle(context.Background(), "site/22", payload); err == nil {
		t.Fatal("Handle() error = nil, want sink error")
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	if err := c.Handle(context.Background(), "site/22", payload); err != nil {
		t.Fatalf("redelivery: Handle() error = %v", err)
	}

	if len(sink.main) != 1 {
		t.Errorf("main sends = %d, want 1", len(sink.main))
	}
	if s := c.Stats(); s.Duplicates != 0 || s.Alerts != 2 || s.SinkErrors != 1 {
		t.Errorf("Stats = %+v, want 2 alerts, 1 sink error, no duplicates", s)
	}
}

func TestHops(t *testing.T) {
	a := protocol.Alert{}
	for i := 1; i <= 8; i++ {
		a = protocol.ShiftHop(a, protocol.NodeID(i))
	}
	if got := hops(a); got != protocol.PathLength {
		t.Errorf("hops = %d, want %d", got, protocol.PathLength)
	}
}
