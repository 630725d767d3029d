package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandSettings is the topic suffix the gateway listens on for settings
// commands to broadcast.
const CommandSettings = "cmd/settings"

// UplinkTopic is where a gateway publishes a radio payload of the given tag.
func UplinkTopic(prefix string, tag uint8) string {
	return prefix + "/" + strconv.Itoa(int(tag))
}

// UplinkFilter matches every uplink topic under prefix.
func UplinkFilter(prefix string) string {
	return prefix + "/+"
}

func CommandTopic(prefix string) string {
	return prefix + "/" + CommandSettings
}

// ParseUplinkTopic extracts the message tag from an uplink topic.
func ParseUplinkTopic(prefix, topic string) (uint8, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok || strings.Contains(rest, "/") {
		return 0, fmt.Errorf("topic %q is not an uplink of %q", topic, prefix)
	}
	n, err := strconv.ParseUint(rest, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("topic %q: bad tag: %w", topic, err)
	}
	return uint8(n), nil
}
