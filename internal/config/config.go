// Package config loads the gateway and collector settings from the
// environment. Every problem is collected and logged before failing, so one
// run reports all missing or invalid variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ystepanoff/antitheft/internal/util"
)

type errList []string

func (e *errList) addf(format string, a ...any) {
	*e = append(*e, fmt.Sprintf(format, a...))
}
func (e *errList) add(msg string) { *e = append(*e, msg) }
func (e *errList) has() bool      { return len(*e) > 0 }

func (e errList) err() error {
	for _, msg := range e {
		util.LogError("[config] %s", msg)
	}
	return fmt.Errorf("invalid environment: %s", strings.Join(e, "; "))
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int, errs *errList) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		errs.addf("%s invalid (expected int): %q", key, v)
		return fallback
	}
	return n
}

func getenvUint16(key string, fallback uint16, errs *errList) uint16 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 0, 16)
	if err != nil {
		errs.addf("%s invalid (expected 0..65535): %q", key, v)
		return fallback
	}
	return uint16(n)
}

func getenvBool(key string, fallback bool, errs *errList) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		errs.addf("%s invalid (expected bool): %q", key, v)
		return fallback
	}
	return b
}

func getQoS(key string, fallback byte, errs *errList) byte {
	n := getenvInt(key, int(fallback), errs)
	if n < 0 || n > 2 {
		errs.addf("%s invalid (0..2): %d", key, n)
		return fallback
	}
	return byte(n)
}

func ensureOneOf(key, val string, allowed []string, errs *errList) {
	for _, a := range allowed {
		if val == a {
			return
		}
	}
	errs.addf("%s invalid (allowed: %s): %q", key, strings.Join(allowed, ", "), val)
}

func parseBrokers(list string, errs *errList) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if s := strings.TrimSpace(b); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		errs.add("KAFKA_BROKERS invalid (empty list)")
	}
	return out
}

// MQTT is the broker connection shared by gateway, collector and controller.
type MQTT struct {
	BrokerURL   string
	ClientID    string
	Username    string // optional
	Password    string // optional
	TopicPrefix string
	QoS         byte
}

func loadMQTT(clientID string, errs *errList) MQTT {
	m := MQTT{
		BrokerURL:   getenv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		ClientID:    getenv("MQTT_CLIENT_ID", clientID),
		Username:    os.Getenv("MQTT_USERNAME"),
		Password:    os.Getenv("MQTT_PASSWORD"),
		TopicPrefix: strings.TrimSuffix(getenv("MQTT_TOPIC_PREFIX", "antitheft"), "/"),
		QoS:         getQoS("MQTT_QOS", 1, errs),
	}
	if m.TopicPrefix == "" {
		errs.add("MQTT_TOPIC_PREFIX must not be empty")
	}
	return m
}

// LoadMQTT reads only the MQTT section, for tools that need nothing else.
func LoadMQTT(clientID string) (MQTT, error) {
	var errs errList
	m := loadMQTT(clientID, &errs)
	if errs.has() {
		return MQTT{}, errs.err()
	}
	return m, nil
}

var errNoConfig = errors.New("config: nil")
