package config

import "fmt"

type Gateway struct {
	MQTT MQTT

	NodeID  uint16
	Channel int

	// Simulated motes attached to the host radio; 0 disables.
	SimMotes         int
	SimCheckInterval uint16 // ms
	SimLowVoltage    uint16

	Debug bool
}

func (g *Gateway) String() string {
	if g == nil {
		return errNoConfig.Error()
	}
	return fmt.Sprintf(`
MQTT:
  BrokerURL:   %s
  ClientID:    %s
  TopicPrefix: %s
  QoS:         %d

Radio:
  NodeID:      %d
  Channel:     %d

Simulation:
  Motes:         %d
  CheckInterval: %d
  LowVoltage:    %d
`, g.MQTT.BrokerURL, g.MQTT.ClientID, g.MQTT.TopicPrefix, g.MQTT.QoS,
		g.NodeID, g.Channel, g.SimMotes, g.SimCheckInterval, g.SimLowVoltage)
}

func LoadGateway() (*Gateway, error) {
	var errs errList

	g := &Gateway{
		MQTT:             loadMQTT("antitheft-gateway", &errs),
		NodeID:           getenvUint16("GATEWAY_NODE_ID", 1, &errs),
		Channel:          getenvInt("GATEWAY_CHANNEL", 7, &errs),
		SimMotes:         getenvInt("GATEWAY_SIM_MOTES", 0, &errs),
		SimCheckInterval: getenvUint16("GATEWAY_SIM_CHECK_INTERVAL", 1000, &errs),
		SimLowVoltage:    getenvUint16("GATEWAY_SIM_LOW_VOLTAGE", 2000, &errs),
		Debug:            getenvBool("DEBUG", false, &errs),
	}

	if g.NodeID == 0 {
		errs.add("GATEWAY_NODE_ID must not be 0")
	}
	if g.Channel < 0 || g.Channel > 125 {
		errs.addf("GATEWAY_CHANNEL invalid (0..125): %d", g.Channel)
	}
	if g.SimMotes < 0 {
		errs.add("GATEWAY_SIM_MOTES must be >= 0")
	}

	if errs.has() {
		return nil, errs.err()
	}
	return g, nil
}
