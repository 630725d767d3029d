// Package broker publishes alert events and rejected payloads to Kafka.
package broker

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ystepanoff/antitheft/internal/config"
)

type KafkaClient struct {
	main *kafka.Writer
	dlq  *kafka.Writer
}

func NewKafkaClient(cfg *config.Collector) *KafkaClient {
	return &KafkaClient{
		main: newWriter(cfg, cfg.KafkaTopic),
		dlq:  newWriter(cfg, cfg.KafkaDLQTopic),
	}
}

// newWriter builds a synchronous writer: WriteMessages returns only once the
// batch is acknowledged, so delivery failures reach the caller.
func newWriter(cfg *config.Collector, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},

		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeoutMs) * time.Millisecond,

		RequiredAcks: parseAcks(cfg.KafkaRequiredAcks),
		MaxAttempts:  cfg.KafkaMaxAttempts,
		Async:        false,
		Compression:  parseCompression(cfg.KafkaCompression),
	}
}

// Send writes one event to the main topic. The key selects the partition,
// so every alert from one stolen mote stays ordered.
func (k *KafkaClient) Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	return k.main.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: headers,
	})
}

func (k *KafkaClient) SendDLQ(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	return k.dlq.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: headers,
	})
}

func (k *KafkaClient) Close() error {
	err := k.main.Close()
	if dlqErr := k.dlq.Close(); err == nil {
		err = dlqErr
	}
	return err
}

func parseCompression(s string) kafka.Compression {
	switch strings.ToLower(s) {
	case "", "none", "no", "off", "0":
		return kafka.Compression(0)
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}

func parseAcks(s string) kafka.RequiredAcks {
	switch strings.ToLower(s) {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}
