package messaging

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when publishing or subscribing while the
	// broker connection is down.
	ErrNotConnected = errors.New("messaging: not connected")
	// ErrPublishTimeout is returned when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("messaging: publish timeout")
	// ErrConnectTimeout is returned when the initial connection does not complete in time.
	ErrConnectTimeout = errors.New("messaging: connect timeout")
)

// Client is the publish/subscribe transport.
type Client interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, qos byte) error
	Publish(topic string, qos byte, payload string) error
	IsConnected() bool
	Disconnect()
}

// Handler receives transport events. OnConnect runs after every successful
// connect, including reconnects, so subscriptions belong there.
type Handler interface {
	OnConnect(c Client)
	OnMessage(topic string, payload []byte)
	OnDisconnect(err error)
}
