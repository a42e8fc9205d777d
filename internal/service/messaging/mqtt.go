package messaging

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const disconnectQuiesceMS = 250

// MQTTClient implements Client on top of paho.
type MQTTClient struct {
	cfg     config.MQTTConfig
	handler Handler
	logger  *logger.Logger
	client  mqtt.Client
}

// NewMQTTClient creates a client that reports events to handler. It does not
// connect until Connect is called.
func NewMQTTClient(cfg config.MQTTConfig, handler Handler, logger *logger.Logger) *MQTTClient {
	c := &MQTTClient{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
	c.client = mqtt.NewClient(c.buildOptions())
	return c
}

func (c *MQTTClient) buildOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetCleanSession(true)
	// handlers publish replies and wait for the token
	opts.SetOrderMatters(false)
	opts.SetKeepAlive(time.Duration(c.cfg.KeepAliveS) * time.Second)
	opts.SetConnectTimeout(time.Duration(c.cfg.ConnectTimeoutS) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	// the first connect must fail fast; reconnects are automatic
	opts.SetConnectRetry(false)

	if c.cfg.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.cfg.TLSInsecure,
		})
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.logger.Info("MQTT connected to %s", c.cfg.Broker)
		if c.handler != nil {
			c.handler.OnConnect(c)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warning("MQTT connection lost, reconnecting: %v", err)
		if c.handler != nil {
			c.handler.OnDisconnect(err)
		}
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.logger.Debug("MQTT reconnecting to %s", c.cfg.Broker)
	})

	return opts
}

// Connect dials the broker once and waits up to the configured timeout. An
// abandoned attempt is cancelled before returning.
func (c *MQTTClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to MQTT broker %s as %s", c.cfg.Broker, c.cfg.ClientID)

	token := c.client.Connect()
	timeout := time.Duration(c.cfg.ConnectTimeoutS) * time.Second

	select {
	case <-token.Done():
	case <-time.After(timeout):
		c.client.Disconnect(0)
		return fmt.Errorf("%w after %s", ErrConnectTimeout, timeout)
	case <-ctx.Done():
		c.client.Disconnect(0)
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

func (c *MQTTClient) Subscribe(topic string, qos byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		if c.handler != nil {
			c.handler.OnMessage(msg.Topic(), msg.Payload())
		}
	})
	if !token.WaitTimeout(c.publishTimeout()) {
		return fmt.Errorf("subscribe %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s failed: %w", topic, err)
	}

	c.logger.Info("Subscribed to %s (qos %d)", topic, qos)
	return nil
}

// Publish sends payload and waits for the acknowledgement.
func (c *MQTTClient) Publish(topic string, qos byte, payload string) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(c.publishTimeout()) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Disconnect closes the connection and stops reconnect attempts.
func (c *MQTTClient) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesceMS)
		c.logger.Info("MQTT disconnected")
	}
}

func (c *MQTTClient) publishTimeout() time.Duration {
	return time.Duration(c.cfg.PublishTimeoutMS) * time.Millisecond
}
