package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/service/camera"
)

func main() {
	count := flag.Int("count", 10, "Number of device indices to probe, starting at 0")
	width := flag.Int("width", 640, "Requested frame width")
	height := flag.Int("height", 480, "Requested frame height")
	timeout := flag.Duration("timeout", 30*time.Second, "Give up after this long")
	verbose := flag.Bool("v", false, "Log every attempt")
	flag.Parse()

	cfg := config.Default().Camera
	cfg.Index = -1
	cfg.ProbeCount = *count
	cfg.Width = *width
	cfg.Height = *height

	console := io.Discard
	if *verbose {
		console = os.Stderr
	}
	log, err := logger.New(filepath.Join(os.TempDir(), "beltsensor-probe"), console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	source := camera.NewSource(cfg, camera.OpenVideoDevice(cfg), log)
	working := source.Probe(ctx)

	if len(working) == 0 {
		fmt.Printf("No working camera among indices 0..%d\n", *count-1)
		os.Exit(3)
	}
	for _, index := range working {
		fmt.Printf("Camera %d: OK\n", index)
	}
	fmt.Printf("Set CAMERA_INDEX=%d to skip probing\n", working[0])
}
