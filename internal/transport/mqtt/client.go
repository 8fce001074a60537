// Package mqtt wraps the paho client: connect, QoS 1 subscriptions on the
// two archive topics, and connection-state reporting.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kmindev/chat-archiver/internal/config"
)

// QoS 1: at-least-once on both subscriptions.
const qos byte = 1

// Handler receives every raw delivery from the broker.
type Handler func(topic string, payload []byte)

// Client manages the broker connection and topic subscriptions.
type Client struct {
	client paho.Client
	topics []string
	log    *zerolog.Logger
}

// New builds a client for the configured broker. Subscriptions are
// (re-)established inside the OnConnect callback so a reconnect restores
// them automatically.
func New(cfg config.MQTTConfig, handler Handler, logger *zerolog.Logger) *Client {
	c := &Client{
		topics: []string{cfg.TopicPublic, cfg.TopicReaction},
		log:    logger,
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(fmt.Sprintf("archiver-%s", uuid.NewString()[:8])).
		SetCleanSession(true).
		SetKeepAlive(60 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second)

	opts.SetOnConnectHandler(func(client paho.Client) {
		logger.Info().Str("broker", cfg.BrokerURL).Msg("connected to mqtt broker")
		c.subscribe(client, handler)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	})
	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Info().Msg("reconnecting to mqtt broker")
	})

	c.client = paho.NewClient(opts)
	return c
}

// Connect establishes the broker connection, bounded by ctx.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("connect mqtt: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	return nil
}

func (c *Client) subscribe(client paho.Client, handler Handler) {
	for _, topic := range c.topics {
		topic := topic
		token := client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		go func() {
			token.Wait()
			if err := token.Error(); err != nil {
				c.log.Error().Err(err).Str("topic", topic).Msg("topic subscription failed")
				return
			}
			c.log.Info().Str("topic", topic).Msg("subscribed to topic")
		}()
	}
}

// IsConnected reports the broker connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects with a bounded quiesce.
func (c *Client) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(250) // milliseconds
		c.log.Info().Msg("mqtt connection closed")
	}
}
