package sdr

import (
	"context"
	"fmt"
	"time"
)

// Config carries parameters required to initialize a sample source.
type Config struct {
	SampleRate float64
	NumSamples int

	// Switched array layout, used by the mock to render switch cycles.
	Antennas    int
	Dwell       time.Duration
	Settling    time.Duration
	OffsetDeg   float64
	BearingDeg  float64
	Amplitude   float64
	NoiseFloor  float64
	ToneOffset  float64
	StartOffset int
	DropEvery   int
	Seed        int64

	// Path and Loop configure the file source.
	Path string
	Loop bool
}

// Source delivers single-channel IQ buffers of arbitrary alignment.
type Source interface {
	Init(ctx context.Context, cfg Config) error
	RX(ctx context.Context) ([]complex64, error)
	Close() error
}

// OverflowError reports samples the source lost before the buffer it
// accompanies. Consumers should account for Lost samples and keep reading.
type OverflowError struct {
	Lost int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("sdr: overflow, %d samples lost", e.Lost)
}
