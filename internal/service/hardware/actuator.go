package hardware

import (
	"fmt"
	"sync"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
)

// Actuator drives the belt output and the status display.
type Actuator interface {
	SetBeltOutput(on bool) error
	ShowStatus(enabled bool, last model.ColorLabel) error
	Close() error
}

// New returns the actuator selected by cfg.Mode.
func New(cfg config.HardwareConfig, logger *logger.Logger) (Actuator, error) {
	switch cfg.Mode {
	case config.HardwareGPIO:
		return NewGPIO(cfg, logger)
	case config.HardwareSimulated, "":
		return NewSimulated(logger), nil
	default:
		return nil, fmt.Errorf("unknown hardware mode %q", cfg.Mode)
	}
}

// Simulated logs what real hardware would do.
type Simulated struct {
	logger *logger.Logger

	mu      sync.Mutex
	output  bool
	display [2]string
	writes  int
}

func NewSimulated(logger *logger.Logger) *Simulated {
	return &Simulated{logger: logger}
}

func (s *Simulated) SetBeltOutput(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.output = on
	s.writes++
	s.logger.Info("[simulated] belt output %s", onOff(on))
	return nil
}

func (s *Simulated) ShowStatus(enabled bool, last model.ColorLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.display = statusLines(enabled, last)
	s.logger.Info("[simulated] display %q / %q", s.display[0], s.display[1])
	return nil
}

// Output returns the last belt output level.
func (s *Simulated) Output() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Writes returns how many times the belt output was driven.
func (s *Simulated) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Display returns the two display lines.
func (s *Simulated) Display() [2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

func (s *Simulated) Close() error {
	return nil
}

func statusLines(enabled bool, last model.ColorLabel) [2]string {
	if last == "" {
		last = model.Unknown
	}
	return [2]string{
		"Belt: " + onOff(enabled),
		"Last: " + last.String(),
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
