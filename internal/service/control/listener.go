package control

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/hardware"
	"beltsensor/internal/service/messaging"
)

// ErrInvalidPayload is returned for belt commands other than "0" and "1".
var ErrInvalidPayload = errors.New("invalid belt command")

// EventRecorder stores control events.
type EventRecorder interface {
	Record(kind model.EventKind, payload string)
}

// Listener handles inbound commands and transport lifecycle events.
type Listener struct {
	state    *belt.State
	actuator hardware.Actuator
	events   EventRecorder
	logger   *logger.Logger

	topicTelemetry string
	topicIPRequest string
	topicBelt      string
	qosControl     byte
	port           int
	onChangeOnly   bool

	mu     sync.Mutex
	client messaging.Client
}

// NewListener creates a Listener. events may be nil.
func NewListener(cfg *config.Config, state *belt.State, actuator hardware.Actuator, events EventRecorder, logger *logger.Logger) *Listener {
	return &Listener{
		state:          state,
		actuator:       actuator,
		events:         events,
		logger:         logger,
		topicTelemetry: cfg.MQTT.TopicTelemetry,
		topicIPRequest: cfg.MQTT.TopicIPRequest,
		topicBelt:      cfg.MQTT.TopicBelt,
		qosControl:     byte(cfg.MQTT.QoSControl),
		port:           cfg.Port,
		onChangeOnly:   cfg.Telemetry.NotifyOnChangeOnly,
	}
}

// OnConnect subscribes to both control topics. Subscriptions are not assumed
// to survive a reconnect.
func (l *Listener) OnConnect(c messaging.Client) {
	l.mu.Lock()
	l.client = c
	l.mu.Unlock()

	if l.state.SetConnected(true) {
		l.record(model.EventTransportUp, "")
	}

	for _, topic := range []string{l.topicIPRequest, l.topicBelt} {
		if err := c.Subscribe(topic, l.qosControl); err != nil {
			l.logger.Error("Failed to subscribe to %s: %v", topic, err)
		}
	}
}

func (l *Listener) OnDisconnect(err error) {
	if l.state.SetConnected(false) {
		reason := ""
		if err != nil {
			reason = err.Error()
		}
		l.record(model.EventTransportDown, reason)
	}
}

// OnMessage dispatches an inbound message by topic.
func (l *Listener) OnMessage(topic string, payload []byte) {
	var err error
	switch topic {
	case l.topicIPRequest:
		err = l.replyEndpoint()
	case l.topicBelt:
		err = l.handleBelt(string(payload))
	default:
		l.logger.Debug("Ignoring message on %s", topic)
		return
	}

	if err != nil {
		l.logger.Warning("Command on %s failed: %v", topic, err)
	}
}

// EndpointURL is the address the stream is reachable at.
func (l *Listener) EndpointURL() string {
	return "http://" + l.state.Endpoint() + ":" + strconv.Itoa(l.port)
}

// replyEndpoint publishes the stream address on the telemetry topic. It is a
// direct reply and skips the telemetry throttle.
func (l *Listener) replyEndpoint() error {
	l.record(model.EventIPRequest, "")

	l.mu.Lock()
	c := l.client
	l.mu.Unlock()
	if c == nil {
		return messaging.ErrNotConnected
	}

	url := l.EndpointURL()
	if err := c.Publish(l.topicTelemetry, l.qosControl, url); err != nil {
		return fmt.Errorf("failed to send endpoint: %w", err)
	}

	l.logger.Info("Sent endpoint %s", url)
	return nil
}

func (l *Listener) handleBelt(payload string) error {
	var on bool
	switch payload {
	case "1":
		on = true
	case "0":
		on = false
	default:
		l.record(model.EventBeltRejected, payload)
		return fmt.Errorf("%w: %q", ErrInvalidPayload, payload)
	}

	changed := l.state.SetEnabled(on)

	kind := model.EventBeltOff
	if on {
		kind = model.EventBeltOn
	}
	l.record(kind, payload)
	l.logger.Info("Belt command %s (changed: %t)", kind, changed)

	if l.onChangeOnly && !changed {
		return nil
	}
	return l.notify(on)
}

func (l *Listener) notify(on bool) error {
	if l.actuator == nil {
		return nil
	}

	var errs []error
	if err := l.actuator.SetBeltOutput(on); err != nil {
		errs = append(errs, err)
	}
	if err := l.actuator.ShowStatus(on, l.state.Snapshot().LastColor); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (l *Listener) record(kind model.EventKind, payload string) {
	if l.events != nil {
		l.events.Record(kind, payload)
	}
}
