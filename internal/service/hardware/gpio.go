package hardware

import (
	"errors"
	"fmt"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// GPIO drives a relay pin and an optional I2C character display.
type GPIO struct {
	pin    gpio.PinIO
	bus    i2c.BusCloser
	lcd    *LCD
	logger *logger.Logger
}

// NewGPIO initializes the host drivers and claims the configured pin. The
// display is only opened when LCDBus is set.
func NewGPIO(cfg config.HardwareConfig, logger *logger.Logger) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	pin := gpioreg.ByName(cfg.BeltPin)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", cfg.BeltPin)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set %s low: %w", cfg.BeltPin, err)
	}

	g := &GPIO{pin: pin, logger: logger}

	if cfg.LCDBus != "" {
		bus, err := i2creg.Open(cfg.LCDBus)
		if err != nil {
			return nil, fmt.Errorf("failed to open i2c bus %s: %w", cfg.LCDBus, err)
		}

		lcd, err := NewLCD(&i2c.Dev{Bus: bus, Addr: uint16(cfg.LCDAddress)})
		if err != nil {
			bus.Close()
			return nil, err
		}
		g.bus = bus
		g.lcd = lcd
	}

	logger.Info("GPIO actuator ready on %s (display: %t)", cfg.BeltPin, g.lcd != nil)
	return g, nil
}

func (g *GPIO) SetBeltOutput(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := g.pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive belt pin: %w", err)
	}
	return nil
}

func (g *GPIO) ShowStatus(enabled bool, last model.ColorLabel) error {
	if g.lcd == nil {
		return nil
	}
	lines := statusLines(enabled, last)
	return g.lcd.Show(lines[0], lines[1])
}

// Close drives the belt low and releases the bus.
func (g *GPIO) Close() error {
	var errs []error
	if err := g.pin.Out(gpio.Low); err != nil {
		errs = append(errs, err)
	}
	if g.bus != nil {
		if err := g.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
