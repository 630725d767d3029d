package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/ystepanoff/antitheft/internal/config"
	"github.com/ystepanoff/antitheft/internal/util"
)

const dlqRetentionMs = "1209600000" // 14d

func topicConfig(topic string, partitions, rf int, entries map[string]string) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: rf,
	}
	for k, v := range entries {
		tc.ConfigEntries = append(tc.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}
	return tc
}

func ensureTopic(ctx context.Context, broker string, tc kafka.TopicConfig) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	if err := ctrlConn.CreateTopics(tc); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "exists") {
			return fmt.Errorf("create topic %s: %w", tc.Topic, err)
		}
	}
	return nil
}

// EnsureTopics creates the alert and DLQ topics when they are missing.
// Failures are logged; the writers will surface a missing topic anyway.
func EnsureTopics(ctx context.Context, cfg *config.Collector) {
	if len(cfg.KafkaBrokers) == 0 {
		util.LogWarning("[topics] no brokers configured")
		return
	}
	broker := cfg.KafkaBrokers[0]

	topics := []kafka.TopicConfig{
		topicConfig(cfg.KafkaTopic, cfg.KafkaTopicPartitions, cfg.KafkaReplicationFactor, map[string]string{
			"cleanup.policy": "delete",
			"retention.ms":   strconv.Itoa(cfg.KafkaRetentionMs),
		}),
		topicConfig(cfg.KafkaDLQTopic, cfg.KafkaDLQPartitions, cfg.KafkaReplicationFactor, map[string]string{
			"cleanup.policy": "delete",
			"retention.ms":   dlqRetentionMs,
		}),
	}
	for _, tc := range topics {
		if err := ensureTopic(ctx, broker, tc); err != nil {
			util.LogWarning("[topics] ensure %s: %v", tc.Topic, err)
			continue
		}
		util.LogInfo("[topics] ensured topic=%s partitions=%d", tc.Topic, tc.NumPartitions)
	}
}
