package serial

import (
	"errors"
	"fmt"
	"strings"
)

// FlowControl selects how the link throttles the sender.
type FlowControl uint8

// Flow control modes.
const (
	FlowControlNone     FlowControl = iota // No flow control. (Default)
	FlowControlSoftware                    // XON/XOFF characters in band.
	FlowControlHardware                    // RTS/CTS signal lines.
)

// Parity selects the per-character parity bit.
type Parity uint8

// Parity modes.
const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits selects the number of stop bits per character.
type StopBits uint8

// Number of stop bits.
const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// DefaultBaudRate is used by DefaultConfig.
const DefaultBaudRate = 115200

var (
	// ErrInvalidConfig is returned by Config.Validate for out of range fields.
	ErrInvalidConfig = errors.New("serial: invalid config")
)

// Config holds the link parameters handed to a Driver when a port is opened.
// It is a plain value: Open keeps its own copy, so later changes made by the
// caller never reach an open connection.
type Config struct {
	BaudRate    uint32
	FlowControl FlowControl
	Parity      Parity
	StopBits    StopBits
}

// DefaultConfig returns 115200 baud, no parity, one stop bit and no flow control.
func DefaultConfig() Config {
	return Config{
		BaudRate:    DefaultBaudRate,
		FlowControl: FlowControlNone,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
	}
}

// NewConfig builds a validated Config.
func NewConfig(baud uint32, flow FlowControl, parity Parity, stop StopBits) (Config, error) {
	cfg := Config{
		BaudRate:    baud,
		FlowControl: flow,
		Parity:      parity,
		StopBits:    stop,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether every field holds a known value.
func (c Config) Validate() error {
	if c.BaudRate == 0 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalidConfig)
	}
	if c.FlowControl > FlowControlHardware {
		return fmt.Errorf("%w: flow control %d", ErrInvalidConfig, c.FlowControl)
	}
	if c.Parity > ParityEven {
		return fmt.Errorf("%w: parity %d", ErrInvalidConfig, c.Parity)
	}
	if c.StopBits > StopBitsTwo {
		return fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, c.StopBits)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%d %s parity, %s stop bit(s), flow control %s", c.BaudRate, c.Parity, c.StopBits, c.FlowControl)
}

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlSoftware:
		return "software"
	case FlowControlHardware:
		return "hardware"
	}
	return fmt.Sprintf("FlowControl(%d)", uint8(f))
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	}
	return fmt.Sprintf("Parity(%d)", uint8(p))
}

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsTwo:
		return "2"
	}
	return fmt.Sprintf("StopBits(%d)", uint8(s))
}

// ParseFlowControl accepts "none", "software" (or "xonxoff") and "hardware" (or "rtscts").
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FlowControlNone, nil
	case "software", "xonxoff":
		return FlowControlSoftware, nil
	case "hardware", "rtscts":
		return FlowControlHardware, nil
	}
	return 0, fmt.Errorf("%w: unknown flow control %q", ErrInvalidConfig, s)
}

// ParseParity accepts "none", "odd" and "even", or their initials.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	}
	return 0, fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, s)
}

// ParseStopBits accepts "1" and "2".
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "", "1":
		return StopBitsOne, nil
	case "2":
		return StopBitsTwo, nil
	}
	return 0, fmt.Errorf("%w: unknown stop bits %q", ErrInvalidConfig, s)
}
