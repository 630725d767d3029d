package config

import (
	"fmt"
	"strings"
)

type Collector struct {
	MQTT MQTT

	KafkaBrokers           []string
	KafkaTopic             string
	KafkaDLQTopic          string
	KafkaTopicPartitions   int
	KafkaDLQPartitions     int
	KafkaReplicationFactor int
	KafkaBatchSize         int
	KafkaBatchTimeoutMs    int
	KafkaCompression       string
	KafkaRequiredAcks      string
	KafkaMaxAttempts       int
	KafkaRetentionMs       int
	KafkaEnsureTopics      bool

	StorePath string
	FeedAddr  string // empty disables the websocket feed
	Debug     bool
}

func (c *Collector) String() string {
	if c == nil {
		return errNoConfig.Error()
	}
	return fmt.Sprintf(`
MQTT:
  BrokerURL:         %s
  ClientID:          %s
  Username:          %s
  TopicPrefix:       %s
  QoS:               %d

Kafka:
  Brokers:           %v
  Topic:             %s
  DLQTopic:          %s
  Partitions:        %d
  DLQPartitions:     %d
  ReplicationFactor: %d
  BatchSize:         %d
  BatchTimeoutMs:    %d
  Compression:       %s
  RequiredAcks:      %s
  MaxAttempts:       %d
  RetentionMs:       %d

Store:               %s
Feed:                %s
`, c.MQTT.BrokerURL, c.MQTT.ClientID, c.MQTT.Username, c.MQTT.TopicPrefix, c.MQTT.QoS,
		c.KafkaBrokers, c.KafkaTopic, c.KafkaDLQTopic, c.KafkaTopicPartitions, c.KafkaDLQPartitions,
		c.KafkaReplicationFactor, c.KafkaBatchSize, c.KafkaBatchTimeoutMs, c.KafkaCompression,
		c.KafkaRequiredAcks, c.KafkaMaxAttempts, c.KafkaRetentionMs, c.StorePath, c.FeedAddr)
}

// LoadCollector reads the collector environment. Every variable has a
// development default; invalid values are reported together.
func LoadCollector() (*Collector, error) {
	var errs errList

	comp := getenv("KAFKA_COMPRESSION", "snappy")
	acks := getenv("KAFKA_REQUIRED_ACKS", "one")
	ensureOneOf("KAFKA_COMPRESSION", comp, []string{"none", "gzip", "snappy", "lz4", "zstd"}, &errs)
	ensureOneOf("KAFKA_REQUIRED_ACKS", acks, []string{"none", "one", "all"}, &errs)

	c := &Collector{
		MQTT: loadMQTT("antitheft-collector", &errs),

		KafkaBrokers:           parseBrokers(getenv("KAFKA_BROKERS", "localhost:9092"), &errs),
		KafkaTopic:             getenv("KAFKA_TOPIC", "antitheft-alerts"),
		KafkaDLQTopic:          getenv("KAFKA_DLQ_TOPIC", "antitheft-alerts-dlq"),
		KafkaTopicPartitions:   getenvInt("KAFKA_TOPIC_PARTITIONS", 3, &errs),
		KafkaDLQPartitions:     getenvInt("KAFKA_DLQ_PARTITIONS", 1, &errs),
		KafkaReplicationFactor: getenvInt("KAFKA_REPLICATION_FACTOR", 1, &errs),
		KafkaBatchSize:         getenvInt("KAFKA_BATCH_SIZE", 100, &errs),
		KafkaBatchTimeoutMs:    getenvInt("KAFKA_BATCH_TIMEOUT_MS", 10, &errs),
		KafkaCompression:       comp,
		KafkaRequiredAcks:      acks,
		KafkaMaxAttempts:       getenvInt("KAFKA_MAX_ATTEMPTS", 10, &errs),
		KafkaRetentionMs:       getenvInt("KAFKA_RETENTION_MS", 7*24*3600*1000, &errs),
		KafkaEnsureTopics:      getenvBool("KAFKA_ENSURE_TOPICS", true, &errs),

		StorePath: getenv("COLLECTOR_STORE_PATH", "alerts.db"),
		FeedAddr:  strings.TrimSpace(getenv("COLLECTOR_FEED_ADDR", ":8080")),
		Debug:     getenvBool("DEBUG", false, &errs),
	}

	if c.FeedAddr == "off" {
		c.FeedAddr = ""
	}

	if c.KafkaTopicPartitions <= 0 {
		errs.add("KAFKA_TOPIC_PARTITIONS must be > 0")
	}
	if c.KafkaDLQPartitions <= 0 {
		errs.add("KAFKA_DLQ_PARTITIONS must be > 0")
	}
	if c.KafkaReplicationFactor <= 0 || c.KafkaReplicationFactor > len(c.KafkaBrokers) {
		errs.addf("KAFKA_REPLICATION_FACTOR must be in 1..%d", len(c.KafkaBrokers))
	}
	if c.KafkaBatchSize <= 0 {
		errs.add("KAFKA_BATCH_SIZE must be > 0")
	}
	if c.KafkaMaxAttempts <= 0 {
		errs.add("KAFKA_MAX_ATTEMPTS must be > 0")
	}

	if errs.has() {
		return nil, errs.err()
	}
	return c, nil
}
