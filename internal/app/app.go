package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/repository/sqlite"
	"beltsensor/internal/route"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/camera"
	"beltsensor/internal/service/control"
	"beltsensor/internal/service/hardware"
	"beltsensor/internal/service/messaging"
	"beltsensor/internal/service/netinfo"
	"beltsensor/internal/service/pipeline"
	"beltsensor/internal/service/storage"
	"beltsensor/internal/service/stream"
	"beltsensor/internal/service/telemetry"
	"beltsensor/internal/service/vision"
)

type App struct {
	config *config.Config
	logger *logger.Logger

	state      *belt.State
	actuator   hardware.Actuator
	db         *sqlite.DB
	events     *sqlite.ControlEventRepository
	buffer     *storage.EventBuffer
	listener   *control.Listener
	client     *messaging.MQTTClient
	source     *camera.Source
	classifier *vision.Classifier
	publisher  *telemetry.Publisher
	hub        *stream.Hub
	view       *stream.LiveView
	pipeline   *pipeline.Pipeline
	server     *http.Server
}

// NewApp wires every component. Nothing touches the network or the camera
// until Run.
func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	a := &App{
		config: cfg,
		logger: logger,
		state:  belt.NewState(),
	}

	actuator, err := hardware.New(cfg.Hardware, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hardware: %w", err)
	}
	a.actuator = actuator

	var recorder control.EventRecorder
	if cfg.Events.DBPath != "" {
		db, err := sqlite.New(cfg.Events.DBPath)
		if err != nil {
			actuator.Close()
			return nil, fmt.Errorf("failed to open event store: %w", err)
		}
		a.db = db
		a.events = sqlite.NewControlEventRepository(db)
		a.buffer = storage.NewEventBuffer(cfg, logger, a.events)
		recorder = a.buffer
	}

	a.state.SetEndpoint(netinfo.Endpoint(cfg.EndpointHost))

	a.listener = control.NewListener(cfg, a.state, a.actuator, recorder, logger)
	a.client = messaging.NewMQTTClient(cfg.MQTT, a.listener, logger)
	a.publisher = telemetry.NewPublisher(cfg, a.client, a.state, logger)

	a.source = camera.NewSource(cfg.Camera, camera.OpenVideoDevice(cfg.Camera), logger)
	a.classifier = vision.NewClassifier(cfg.Vision)

	a.hub = stream.NewHub(logger)
	a.view = stream.NewLiveView(a.hub, cfg.Vision.JPEGQuality, logger)

	a.pipeline = pipeline.New(cfg, a.source, a.classifier, a.publisher, a.view, a.state, logger)

	deps := route.Deps{
		State:       a.state,
		Pipeline:    a.pipeline,
		EndpointURL: a.listener.EndpointURL,
		LiveView:    a.view,
		Hub:         a.hub,
	}
	if a.events != nil {
		deps.Events = a.events
		deps.Buffer = a.buffer
	}

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           route.SetupRoutes(deps, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run connects the broker, starts the HTTP server and the pipeline, and
// blocks until ctx is cancelled or a fatal error occurs. Shutdown stops the
// pipeline before the broker connection is closed.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancelBg := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	defer a.close()

	bg.Add(1)
	go func() {
		defer bg.Done()
		a.hub.Run(bgCtx)
	}()
	if a.buffer != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			a.buffer.Run(bgCtx)
		}()
	}
	defer func() {
		cancelBg()
		bg.Wait()
	}()

	if err := a.actuator.SetBeltOutput(false); err != nil {
		a.logger.Warning("Failed to reset belt output: %v", err)
	}
	if err := a.actuator.ShowStatus(false, model.Unknown); err != nil {
		a.logger.Warning("Failed to reset display: %v", err)
	}

	if err := a.client.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			a.logger.Info("Startup cancelled while connecting to the broker")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBrokerUnreachable, err)
	}
	defer a.client.Disconnect()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening on %s (stream at %s/camera_ia)", a.server.Addr, a.listener.EndpointURL())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer a.shutdownServer()

	pipeCtx, stopPipeline := context.WithCancel(ctx)
	defer stopPipeline()

	pipeErr := make(chan error, 1)
	go func() {
		pipeErr <- a.pipeline.Run(pipeCtx)
	}()

	select {
	case err := <-pipeErr:
		if err != nil {
			return err
		}
		return nil
	case err := <-serverErr:
		stopPipeline()
		<-pipeErr
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		stopPipeline()
		return <-pipeErr
	}
}

func (a *App) shutdownServer() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownGrace())
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warning("HTTP server shutdown: %v", err)
	}
}

func (a *App) close() {
	if err := a.classifier.Close(); err != nil {
		a.logger.Warning("Error releasing classifier: %v", err)
	}
	if err := a.actuator.Close(); err != nil {
		a.logger.Warning("Error releasing hardware: %v", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Error closing event store: %v", err)
		}
	}
}
