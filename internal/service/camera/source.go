package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"

	"gocv.io/x/gocv"
)

var (
	// ErrNoDeviceFound is returned when no probed index opens and delivers a frame.
	ErrNoDeviceFound = errors.New("no camera device found")
	// ErrReadFailed is returned when a frame could not be read from an open device.
	ErrReadFailed = errors.New("camera read failed")
	// ErrNotOpen is returned by ReadFrame before Open succeeded or after Close.
	ErrNotOpen = errors.New("camera not open")
)

// Device is an open capture device.
type Device interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Opener opens the capture device at index.
type Opener func(index int) (Device, error)

// Source owns the camera handle and hands out frames.
type Source struct {
	cfg    config.CameraConfig
	open   Opener
	logger *logger.Logger

	mu     sync.Mutex
	device Device
	index  int
}

// NewSource creates a Source that opens devices through opener.
func NewSource(cfg config.CameraConfig, opener Opener, logger *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		open:   opener,
		logger: logger,
		index:  -1,
	}
}

// candidates returns the indices Open will try, in order.
func (s *Source) candidates() []int {
	if s.cfg.Index >= 0 {
		return []int{s.cfg.Index}
	}

	indices := make([]int, s.cfg.ProbeCount)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Open selects the first candidate index that opens and returns a frame on a
// test read.
func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return nil
	}

	for _, index := range s.candidates() {
		if err := ctx.Err(); err != nil {
			return err
		}

		device, err := s.tryIndex(index)
		if err != nil {
			s.logger.Debug("Camera %d unavailable: %v", index, err)
			continue
		}

		s.device = device
		s.index = index
		s.logger.Info("Camera opened at index %d", index)
		return nil
	}

	return fmt.Errorf("%w (tried %v)", ErrNoDeviceFound, s.candidates())
}

func (s *Source) tryIndex(index int) (Device, error) {
	device, err := s.open(index)
	if err != nil {
		return nil, err
	}

	test := gocv.NewMat()
	defer test.Close()

	if !device.Read(&test) || test.Empty() {
		device.Close()
		return nil, fmt.Errorf("test read on index %d: %w", index, ErrReadFailed)
	}
	return device, nil
}

// Probe opens every candidate index in turn and returns those that deliver a
// frame. Devices are closed again before returning.
func (s *Source) Probe(ctx context.Context) []int {
	var working []int
	for _, index := range s.candidates() {
		if ctx.Err() != nil {
			break
		}

		device, err := s.tryIndex(index)
		if err != nil {
			continue
		}
		device.Close()
		working = append(working, index)
	}
	return working
}

// ReadFrame reads the next frame into dst.
func (s *Source) ReadFrame(dst *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return ErrNotOpen
	}
	if !s.device.Read(dst) || dst.Empty() {
		return ErrReadFailed
	}
	return nil
}

// Index returns the selected device index, or -1 when closed.
func (s *Source) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Close releases the device handle.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return nil
	}

	err := s.device.Close()
	s.device = nil
	s.index = -1
	if err != nil {
		return fmt.Errorf("failed to close camera: %w", err)
	}
	return nil
}
