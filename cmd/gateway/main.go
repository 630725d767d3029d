// Gateway bridges a mote network to MQTT. On a host it drives the stub
// radio, optionally populated with simulated motes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pterm/pterm"

	"github.com/ystepanoff/antitheft/driver/stub"
	"github.com/ystepanoff/antitheft/internal/config"
	"github.com/ystepanoff/antitheft/internal/gateway"
	"github.com/ystepanoff/antitheft/internal/mqtt"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadGateway()
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if cfg.Debug {
		util.EnableDebug()
	}
	pterm.Info.Println("anti-theft gateway")
	util.LogDebug("config: %s", cfg)

	medium := stub.NewMedium()
	node := transport.NewNode(protocol.NodeID(cfg.NodeID), medium.Attach())
	node.SetLogger(util.Logger{})
	if err := node.SetChannel(uint8(cfg.Channel)); err != nil {
		util.LogError("radio: %v", err)
		os.Exit(1)
	}
	if err := node.Initialise(); err != nil {
		util.LogError("radio: %v", err)
		os.Exit(1)
	}

	var bridge *gateway.Bridge
	client := mqtt.BuildClient(cfg.MQTT, func(pc paho.Client) {
		if err := mqtt.Subscribe(pc, mqtt.CommandTopic(cfg.MQTT.TopicPrefix), cfg.MQTT.QoS, bridge.CommandHandler()); err != nil {
			util.LogError("%v", err)
		}
	})
	bridge = gateway.NewBridge(node, mqtt.NewPublisher(client, cfg.MQTT.QoS), cfg.MQTT.TopicPrefix)

	if err := mqtt.ConnectWithBackoff(ctx, client, time.Second, 30*time.Second); err != nil {
		util.LogWarning("shutdown before mqtt connect")
		return
	}
	node.Listen(ctx)

	if cfg.SimMotes > 0 {
		gateway.StartSimulation(ctx, medium, gateway.SimOptions{
			Count:         cfg.SimMotes,
			FirstID:       protocol.NodeID(cfg.NodeID) + 1,
			Channel:       uint8(cfg.Channel),
			CheckInterval: cfg.SimCheckInterval,
			LowVoltage:    cfg.SimLowVoltage,
		})
	}

	<-ctx.Done()
	util.LogInfo("shutting down")
	client.Disconnect(250)
	s := bridge.Stats()
	util.LogInfo("uplinked=%d failed=%d commands=%d denied=%d", s.Uplinked, s.UplinkFailed, s.Commands, s.CommandsDenied)
}
