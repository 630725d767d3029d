// Package mqtt builds the paho clients shared by the gateway, the collector
// and the controller.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ystepanoff/antitheft/internal/config"
	"github.com/ystepanoff/antitheft/internal/util"
)

const publishTimeout = 5 * time.Second

// Option adjusts client options before the client is built.
type Option func(*paho.ClientOptions)

// WithoutConnectRetry makes Connect fail on the first refused attempt
// instead of retrying in the background. One-shot tools use it.
func WithoutConnectRetry() Option {
	return func(o *paho.ClientOptions) {
		o.SetConnectRetry(false)
		o.SetAutoReconnect(false)
	}
}

// BuildClient returns an unconnected client. onConnect runs after every
// (re)connection, which is where subscriptions belong.
func BuildClient(cfg config.MQTT, onConnect func(paho.Client), options ...Option) paho.Client {
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.OnConnect = func(c paho.Client) {
		util.LogSuccess("[mqtt] connected to %s", cfg.BrokerURL)
		if onConnect != nil {
			onConnect(c)
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		util.LogWarning("[mqtt] connection lost: %v", err)
	}
	for _, o := range options {
		o(opts)
	}

	return paho.NewClient(opts)
}

// ConnectWithBackoff retries Connect with doubling delays up to max until it
// succeeds or ctx is done. A pending attempt never outlives ctx, even when
// the client retries internally and its token stays open.
func ConnectWithBackoff(ctx context.Context, client paho.Client, start, max time.Duration) error {
	backoff := start
	for {
		token := client.Connect()
		select {
		case <-token.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if token.Error() == nil {
			return nil
		}
		util.LogWarning("[mqtt] connect error: %v; retrying in %s", token.Error(), backoff)
		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, max)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe blocks until the broker acknowledges the subscription.
func Subscribe(c paho.Client, topic string, qos byte, h paho.MessageHandler) error {
	token := c.Subscribe(topic, qos, h)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	util.LogInfo("[mqtt] subscribed to %s (QoS %d)", topic, qos)
	return nil
}

// Publisher adapts a paho client to a synchronous Publish call.
type Publisher struct {
	client paho.Client
	qos    byte
}

func NewPublisher(c paho.Client, qos byte) *Publisher {
	return &Publisher{client: c, qos: qos}
}

func (p *Publisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	return token.Error()
}
