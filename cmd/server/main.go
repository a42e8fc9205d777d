package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"beltsensor/internal/app"
	"beltsensor/internal/config"
	"beltsensor/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return app.ExitCode(err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return app.ExitRuntime
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("Failed to start sensor: %v", err)
		return app.ExitCode(err)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("Sensor stopped: %v", err)
		return app.ExitCode(err)
	}

	log.Info("Sensor stopped")
	return app.ExitOK
}
