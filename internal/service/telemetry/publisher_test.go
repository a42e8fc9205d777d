package telemetry

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/messaging"
)

type sent struct {
	topic   string
	qos     byte
	payload string
}

type fakeClient struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (c *fakeClient) Connect(context.Context) error { return nil }
func (c *fakeClient) Subscribe(string, byte) error  { return nil }
func (c *fakeClient) IsConnected() bool             { return c.err == nil }
func (c *fakeClient) Disconnect()                   {}

func (c *fakeClient) Publish(topic string, qos byte, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sent{topic, qos, payload})
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), io.Discard)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func newTestPublisher(t *testing.T, cfg *config.Config) (*Publisher, *fakeClient, *belt.State, *clock) {
	t.Helper()
	client := &fakeClient{}
	state := belt.NewState()
	state.SetEnabled(true)
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	p := NewPublisher(cfg, client, state, testLogger(t))
	p.now = clk.now
	return p, client, state, clk
}

func detections(labels ...model.ColorLabel) []model.Detection {
	ds := make([]model.Detection, len(labels))
	for i, l := range labels {
		ds[i] = model.Detection{Label: l, Area: float64(1000 - i)}
	}
	return ds
}

func TestPublish_Throttle(t *testing.T) {
	p, client, state, clk := newTestPublisher(t, config.Default())

	if _, err := p.Publish(detections(model.Red)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	first := state.Snapshot().LastPublishTime

	for i := 0; i < 4; i++ {
		clk.advance(100 * time.Millisecond)
		d, _ := p.Publish(detections(model.Blue))
		if d != belt.SkipThrottled {
			t.Errorf("Call %d: expected throttled, got %s", i, d)
		}
	}

	if got := state.Snapshot().LastPublishTime; !got.Equal(first) {
		t.Errorf("Throttled calls moved publish time from %v to %v", first, got)
	}
	if len(client.sent) != 1 {
		t.Errorf("Expected 1 send, got %d", len(client.sent))
	}
}

func TestPublish_Dedup(t *testing.T) {
	p, client, _, clk := newTestPublisher(t, config.Default())

	p.Publish(detections(model.Red, model.Blue))
	clk.advance(time.Second)
	d, _ := p.Publish(detections(model.Blue, model.Red))

	if d != belt.SkipUnchanged {
		t.Errorf("Expected unchanged, got %s", d)
	}
	if len(client.sent) != 1 {
		t.Errorf("Expected 1 send, got %d", len(client.sent))
	}

	clk.advance(time.Second)
	p.Publish(detections(model.Green))
	if len(client.sent) != 2 {
		t.Errorf("Expected a send for a new set, got %d sends", len(client.sent))
	}
}

func TestPublish_GatedByBelt(t *testing.T) {
	p, client, state, clk := newTestPublisher(t, config.Default())
	state.SetEnabled(false)

	for i, l := range model.Colors {
		clk.advance(time.Duration(i+1) * time.Second)
		if d, _ := p.Publish(detections(l)); d != belt.SkipDisabled {
			t.Errorf("Expected disabled, got %s", d)
		}
	}

	if len(client.sent) != 0 {
		t.Errorf("Expected no sends with belt off, got %d", len(client.sent))
	}
}

func TestPublish_EmptyIsNoop(t *testing.T) {
	p, client, _, _ := newTestPublisher(t, config.Default())

	if d, _ := p.Publish(nil); d != belt.SkipEmpty {
		t.Errorf("Expected empty, got %s", d)
	}
	if len(client.sent) != 0 {
		t.Errorf("Expected no sends, got %d", len(client.sent))
	}
}

func TestPublish_FailureLeavesStateUntouched(t *testing.T) {
	p, client, state, clk := newTestPublisher(t, config.Default())
	client.err = messaging.ErrNotConnected

	_, err := p.Publish(detections(model.Yellow))
	if !errors.Is(err, messaging.ErrNotConnected) {
		t.Fatalf("Expected ErrNotConnected, got %v", err)
	}

	snap := state.Snapshot()
	if !snap.LastPublishTime.IsZero() {
		t.Error("Failed publish updated publish time")
	}
	if len(snap.DetectionHistory) != 0 {
		t.Error("Failed publish updated history")
	}

	client.err = nil
	clk.advance(10 * time.Millisecond)
	if _, err := p.Publish(detections(model.Yellow)); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if len(client.sent) != 1 {
		t.Errorf("Expected retry to send, got %d sends", len(client.sent))
	}
}

func TestPublish_MessageFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.LabelPrefix = "Cor:"
	cfg.MQTT.QoSTelemetry = 1
	p, client, _, _ := newTestPublisher(t, cfg)

	p.Publish(detections(model.Blue, model.Red, model.Blue))

	if len(client.sent) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(client.sent))
	}
	got := client.sent[0]
	if got.payload != "Cor:Blue,Cor:Red" {
		t.Errorf("Expected Cor:Blue,Cor:Red, got %q", got.payload)
	}
	if got.topic != "dados/camera" || got.qos != 1 {
		t.Errorf("Expected dados/camera qos 1, got %s qos %d", got.topic, got.qos)
	}
}

func TestPublish_PredominantSendsOneLabel(t *testing.T) {
	cfg := config.Default()
	cfg.Vision.Mode = config.ModePredominant
	p, client, state, _ := newTestPublisher(t, cfg)

	p.Publish(detections(model.Purple, model.Orange))

	if len(client.sent) != 1 || client.sent[0].payload != "Purple" {
		t.Errorf("Expected single Purple payload, got %v", client.sent)
	}
	if snap := state.Snapshot(); snap.LastColor != model.Purple {
		t.Errorf("Expected last color Purple, got %s", snap.LastColor)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil, ""); got != "" {
		t.Errorf("Expected empty payload, got %q", got)
	}
	if got := Format([]model.ColorLabel{model.Green}, ""); got != "Green" {
		t.Errorf("Expected Green, got %q", got)
	}
}
