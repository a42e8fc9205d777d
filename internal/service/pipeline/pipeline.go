package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/vision"

	"gocv.io/x/gocv"
)

// State is the lifecycle stage of a Pipeline.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameReader is the camera side of the loop.
type FrameReader interface {
	Open(ctx context.Context) error
	ReadFrame(dst *gocv.Mat) error
	Close() error
}

// Classifier turns a frame into an annotated copy and ranked detections.
type Classifier interface {
	Classify(frame gocv.Mat) (gocv.Mat, []model.Detection, error)
}

// Publisher applies the telemetry policy to detections.
type Publisher interface {
	Publish(detections []model.Detection) (belt.Decision, error)
}

// FrameSink receives every annotated frame for live viewing.
type FrameSink interface {
	Show(frame gocv.Mat) error
}

// failureLogEvery limits how often repeated read failures are logged.
const failureLogEvery = 50

// Pipeline reads, classifies, publishes and streams frames until cancelled.
type Pipeline struct {
	source     FrameReader
	classifier Classifier
	publisher  Publisher
	sink       FrameSink
	belt       *belt.State
	logger     *logger.Logger
	retryDelay time.Duration

	state        atomic.Int32
	frames       atomic.Uint64
	readFailures atomic.Uint64

	mu           sync.Mutex
	onTransition func(State)
}

// New creates a Pipeline. sink may be nil.
func New(cfg *config.Config, source FrameReader, classifier Classifier, publisher Publisher, sink FrameSink, state *belt.State, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		classifier: classifier,
		publisher:  publisher,
		sink:       sink,
		belt:       state,
		logger:     logger,
		retryDelay: cfg.RetryDelay(),
	}
}

// State returns the current lifecycle stage.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Frames returns how many frames were processed.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// ReadFailures returns how many frame reads failed.
func (p *Pipeline) ReadFailures() uint64 {
	return p.readFailures.Load()
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))

	p.mu.Lock()
	hook := p.onTransition
	p.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

// Run opens the source and loops until ctx is cancelled. It only returns an
// error when the source cannot be opened.
func (p *Pipeline) Run(ctx context.Context) error {
	p.setState(Starting)

	if err := p.source.Open(ctx); err != nil {
		p.setState(Stopped)
		return fmt.Errorf("failed to open camera: %w", err)
	}

	p.setState(Running)
	p.logger.Info("Pipeline running")

	frame := gocv.NewMat()
	defer func() {
		frame.Close()
		if err := p.source.Close(); err != nil {
			p.logger.Warning("Error closing camera: %v", err)
		}
		p.setState(Stopped)
		p.logger.Info("Pipeline stopped after %d frames", p.Frames())
	}()

	consecutive := 0
	for {
		if ctx.Err() != nil {
			p.setState(Stopping)
			return nil
		}

		if err := p.source.ReadFrame(&frame); err != nil {
			p.readFailures.Add(1)
			consecutive++
			if consecutive == 1 || consecutive%failureLogEvery == 0 {
				p.logger.Warning("Frame read failed (%d in a row): %v", consecutive, err)
			}

			select {
			case <-ctx.Done():
			case <-time.After(p.retryDelay):
			}
			continue
		}

		if consecutive > 0 {
			p.logger.Info("Frame reads recovered after %d failures", consecutive)
			consecutive = 0
		}

		p.process(frame)
	}
}

// process runs one frame through classification, publishing and the sink.
func (p *Pipeline) process(frame gocv.Mat) {
	n := p.frames.Add(1)

	annotated, detections, err := p.classifier.Classify(frame)
	if err != nil {
		annotated.Close()
		p.logger.Warning("Classification failed on frame %d: %v", n, err)
		return
	}
	defer annotated.Close()

	if decision, err := p.publisher.Publish(detections); err == nil && decision == belt.Publish {
		p.logger.Debug("Frame %d: published %v", n, model.Labels(detections))
	}

	if p.sink == nil {
		return
	}

	if err := vision.DrawStatus(&annotated, p.belt.Enabled(), n); err != nil {
		p.logger.Warning("Overlay failed on frame %d: %v", n, err)
	}
	if err := p.sink.Show(annotated); err != nil {
		p.logger.Warning("Live view failed on frame %d: %v", n, err)
	}
}
