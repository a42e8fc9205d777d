package hardware

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PCF8574 backpack pin mapping.
const (
	lcdRS        = 0x01
	lcdEnable    = 0x04
	lcdBacklight = 0x08
)

// HD44780 commands.
const (
	cmdClear      = 0x01
	cmdEntryMode  = 0x06
	cmdDisplayOn  = 0x0C
	cmdFunction4b = 0x28
	cmdLine1      = 0x80
	cmdLine2      = 0xC0
)

const lcdColumns = 16

// LCD is a 16x2 HD44780 display behind a PCF8574 I2C expander, driven in
// 4-bit mode.
type LCD struct {
	mu  sync.Mutex
	dev io.Writer
}

// NewLCD runs the 4-bit initialization sequence and clears the display.
func NewLCD(dev io.Writer) (*LCD, error) {
	l := &LCD{dev: dev}

	for _, b := range []byte{0x33, 0x32, cmdFunction4b, cmdDisplayOn, cmdEntryMode, cmdClear} {
		if err := l.command(b); err != nil {
			return nil, fmt.Errorf("failed to initialize display: %w", err)
		}
	}
	time.Sleep(2 * time.Millisecond)
	return l, nil
}

// Show writes two lines, padded or cut to the display width.
func (l *LCD) Show(line1, line2 string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeLine(cmdLine1, line1); err != nil {
		return err
	}
	return l.writeLine(cmdLine2, line2)
}

func (l *LCD) writeLine(addr byte, text string) error {
	if err := l.command(addr); err != nil {
		return err
	}
	for _, c := range []byte(fit(text)) {
		if err := l.send(c, lcdRS); err != nil {
			return fmt.Errorf("failed to write display: %w", err)
		}
	}
	return nil
}

func (l *LCD) command(b byte) error {
	return l.send(b, 0)
}

func (l *LCD) send(b, mode byte) error {
	if err := l.nibble(b&0xF0 | mode); err != nil {
		return err
	}
	return l.nibble(b<<4 | mode)
}

// nibble latches the high four bits by pulsing enable.
func (l *LCD) nibble(bits byte) error {
	bits |= lcdBacklight
	if _, err := l.dev.Write([]byte{bits | lcdEnable}); err != nil {
		return err
	}
	_, err := l.dev.Write([]byte{bits &^ lcdEnable})
	return err
}

func fit(s string) string {
	if len(s) > lcdColumns {
		return s[:lcdColumns]
	}
	return s + strings.Repeat(" ", lcdColumns-len(s))
}
