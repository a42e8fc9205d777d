package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/messaging"
)

// Publisher sends detected colors on the telemetry topic, at most once per
// interval and only when the belt is on and the color set changed.
type Publisher struct {
	client      messaging.Client
	state       *belt.State
	logger      *logger.Logger
	topic       string
	qos         byte
	interval    time.Duration
	prefix      string
	predominant bool
	now         func() time.Time
}

// NewPublisher creates a Publisher writing through client.
func NewPublisher(cfg *config.Config, client messaging.Client, state *belt.State, logger *logger.Logger) *Publisher {
	return &Publisher{
		client:      client,
		state:       state,
		logger:      logger,
		topic:       cfg.MQTT.TopicTelemetry,
		qos:         byte(cfg.MQTT.QoSTelemetry),
		interval:    cfg.TelemetryInterval(),
		prefix:      cfg.Telemetry.LabelPrefix,
		predominant: cfg.Vision.Mode == config.ModePredominant,
		now:         time.Now,
	}
}

// Publish applies the publish policy to ranked detections. The returned
// decision says whether a send was attempted; the error is the send failure,
// in which case the state is left untouched.
func (p *Publisher) Publish(detections []model.Detection) (belt.Decision, error) {
	labels := model.Labels(detections)
	if p.predominant && len(labels) > 1 {
		labels = labels[:1]
	}

	now := p.now()
	decision := p.state.ShouldPublish(labels, now, p.interval)
	if decision != belt.Publish {
		return decision, nil
	}

	payload := Format(labels, p.prefix)
	if err := p.client.Publish(p.topic, p.qos, payload); err != nil {
		if errors.Is(err, messaging.ErrNotConnected) {
			p.logger.Debug("Telemetry not sent, transport down")
		} else {
			p.logger.Warning("Failed to publish telemetry %q: %v", payload, err)
		}
		return decision, fmt.Errorf("failed to publish telemetry: %w", err)
	}

	p.state.RecordPublish(labels, now)
	p.logger.Info("Published %s to %s", payload, p.topic)
	return decision, nil
}

// Format renders labels as the telemetry payload: one label, or a
// comma-joined list of unique labels.
func Format(labels []model.ColorLabel, prefix string) string {
	parts := make([]string, 0, len(labels))
	seen := make(map[model.ColorLabel]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			continue
		}
		seen[l] = true
		parts = append(parts, prefix+l.String())
	}
	return strings.Join(parts, ",")
}
