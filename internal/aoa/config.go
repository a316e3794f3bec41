package aoa

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every error New and NewGeometry return for
// unusable parameters.
var ErrInvalidConfig = errors.New("invalid aoa config")

// Config holds the block parameters. It is fixed once a Block is built.
type Config struct {
	SampleRate       float64
	DwellTime        time.Duration
	Threshold        float64
	SerialPort       string
	BaudRate         int
	MaxAntennas      int
	AntennaOffsetDeg float64
	SettlingTime     time.Duration
}

// DefaultConfig returns the parameters the SP8T switch board ships with.
func DefaultConfig() Config {
	return Config{
		SampleRate:       10e6,
		DwellTime:        45 * time.Microsecond,
		Threshold:        0.05,
		BaudRate:         115200,
		MaxAntennas:      6,
		AntennaOffsetDeg: 0,
		SettlingTime:     5 * time.Microsecond,
	}
}

func (c Config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfig, c.SampleRate)
	case c.DwellTime <= 0:
		return fmt.Errorf("%w: dwell time must be positive, got %v", ErrInvalidConfig, c.DwellTime)
	case c.SettlingTime < 0:
		return fmt.Errorf("%w: settling time must not be negative, got %v", ErrInvalidConfig, c.SettlingTime)
	case c.MaxAntennas < 1:
		return fmt.Errorf("%w: need at least one antenna, got %d", ErrInvalidConfig, c.MaxAntennas)
	case c.Threshold < 0:
		return fmt.Errorf("%w: threshold must not be negative, got %v", ErrInvalidConfig, c.Threshold)
	case c.BaudRate < 0:
		return fmt.Errorf("%w: baud rate must not be negative, got %d", ErrInvalidConfig, c.BaudRate)
	}
	return nil
}
