// Controller builds a settings command and prints its wire encoding. With
// -publish it sends the command to the gateways listening under the MQTT
// topic prefix.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"

	"github.com/ystepanoff/antitheft/internal/config"
	"github.com/ystepanoff/antitheft/internal/mqtt"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/protocol"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	alert := flag.Uint("alert", uint(protocol.DefaultAlert), "Alert mode bitmask (4 = BROADCAST)")
	detect := flag.Uint("detect", uint(protocol.DefaultDetect), "Detection bitmask (1 = LOW_BATTERY)")
	interval := flag.Uint("interval", protocol.DefaultCheckInterval, "Check interval in ms (0 disables checking)")
	target := flag.Uint("target", 0, "Node to blacklist")
	duration := flag.Uint("duration", 0, "Blacklist window in ms (0 clears)")
	publish := flag.Bool("publish", false, "Publish the command over MQTT (MQTT_* environment)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	s, err := buildSettings(*alert, *detect, *interval, *target, *duration)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(2)
	}
	payload := protocol.EncodeSettings(s)

	pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Field", "Value"},
		{"alert", s.Alert.String()},
		{"detect", s.Detect.String()},
		{"checkInterval", fmt.Sprint(s.CheckInterval)},
		{"targetId", fmt.Sprint(s.TargetID)},
		{"duration", fmt.Sprint(s.Duration)},
	}).Render()
	fmt.Println(hex.EncodeToString(payload))

	if !*publish {
		return
	}

	mcfg, err := config.LoadMQTT("antitheft-controller")
	if err != nil {
		os.Exit(1)
	}
	client := mqtt.BuildClient(mcfg, nil, mqtt.WithoutConnectRetry())
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mqtt.ConnectWithBackoff(connectCtx, client, 500*time.Millisecond, 5*time.Second); err != nil {
		util.LogError("mqtt connect: %v", err)
		os.Exit(1)
	}
	defer client.Disconnect(250)

	topic := mqtt.CommandTopic(mcfg.TopicPrefix)
	if err := mqtt.NewPublisher(client, mcfg.QoS).Publish(topic, payload); err != nil {
		util.LogError("publish %s: %v", topic, err)
		os.Exit(1)
	}
	util.LogSuccess("settings published to %s", topic)
}

func buildSettings(alert, detect, interval, target, duration uint) (protocol.Settings, error) {
	for name, v := range map[string]uint{
		"alert": alert, "detect": detect, "interval": interval, "target": target, "duration": duration,
	} {
		if (name == "alert" || name == "detect") && v > 0xFF {
			return protocol.Settings{}, fmt.Errorf("-%s %d does not fit in 8 bits", name, v)
		}
		if v > 0xFFFF {
			return protocol.Settings{}, fmt.Errorf("-%s %d does not fit in 16 bits", name, v)
		}
	}
	return protocol.Settings{
		Alert:         protocol.AlertMode(alert),
		Detect:        protocol.DetectMask(detect),
		CheckInterval: uint16(interval),
		TargetID:      protocol.NodeID(target),
		Duration:      uint16(duration),
	}, nil
}
