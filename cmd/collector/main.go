// Collector subscribes to gateway uplinks, records every stolen-node alert
// and publishes it to Kafka and to websocket dashboards.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pterm/pterm"

	"github.com/ystepanoff/antitheft/internal/broker"
	"github.com/ystepanoff/antitheft/internal/collector"
	"github.com/ystepanoff/antitheft/internal/config"
	"github.com/ystepanoff/antitheft/internal/feed"
	"github.com/ystepanoff/antitheft/internal/mqtt"
	"github.com/ystepanoff/antitheft/internal/store"
	"github.com/ystepanoff/antitheft/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadCollector()
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if cfg.Debug {
		util.EnableDebug()
	}
	pterm.Info.Println("anti-theft collector")
	util.LogDebug("config: %s", cfg)

	if cfg.KafkaEnsureTopics {
		ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		broker.EnsureTopics(ensureCtx, cfg)
		cancel()
	}

	kafka := broker.NewKafkaClient(cfg)
	defer kafka.Close()

	alerts, err := store.Open(cfg.StorePath)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer alerts.Close()

	var live collector.LiveFeed
	var hub *feed.Hub
	var srv *http.Server
	if cfg.FeedAddr != "" {
		hub = feed.NewHub()
		defer hub.Close()
		live = hub

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		mux.Handle("/alerts/", collector.HistoryHandler(alerts))
		srv = &http.Server{Addr: cfg.FeedAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.LogError("feed server: %v", err)
			}
		}()
		util.LogInfo("live feed on ws://%s/ws, history on http://%s/alerts/", cfg.FeedAddr, cfg.FeedAddr)
	}

	c := collector.New(cfg.MQTT.TopicPrefix, kafka, live, alerts)

	client := mqtt.BuildClient(cfg.MQTT, func(pc paho.Client) {
		if err := c.Subscribe(pc, cfg.MQTT.QoS); err != nil {
			util.LogError("%v", err)
		}
	})
	if err := mqtt.ConnectWithBackoff(ctx, client, time.Second, 30*time.Second); err != nil {
		util.LogWarning("shutdown before mqtt connect")
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			util.LogInfo("shutting down")
			client.Disconnect(250)
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				srv.Shutdown(shutdownCtx)
				cancel()
			}
			s := c.Stats()
			util.LogInfo("alerts=%d duplicates=%d rejected=%d sink errors=%d", s.Alerts, s.Duplicates, s.Rejected, s.SinkErrors)
			return
		case <-ticker.C:
			s := c.Stats()
			viewers := 0
			if hub != nil {
				viewers = hub.Clients()
			}
			util.LogDebug("alerts=%d duplicates=%d settings=%d reserved=%d rejected=%d sink errors=%d viewers=%d",
				s.Alerts, s.Duplicates, s.Settings, s.Reserved, s.Rejected, s.SinkErrors, viewers)
		}
	}
}
