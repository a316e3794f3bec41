package aoa

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/rjboer/GoAOA/internal/dsp"
)

// gapFraction is the share of one dwell slot that must be silent before a
// rising edge counts as the start of a cycle. It absorbs jitter between the
// switch clock and the sample clock.
const gapFraction = 0.75

// Geometry holds the timing and antenna constants derived from a Config.
type Geometry struct {
	SamplesPerAntenna int
	SettlingSamples   int
	FrameSize         int
	GapThreshold      int

	// Angles holds the bearing of every antenna in radians.
	Angles []float64

	cos []float64
	sin []float64
}

// NewGeometry derives the frame layout for cfg.
func NewGeometry(cfg Config) (Geometry, error) {
	if err := cfg.validate(); err != nil {
		return Geometry{}, err
	}
	spa := samplesIn(cfg.SampleRate, cfg.DwellTime)
	settle := samplesIn(cfg.SampleRate, cfg.SettlingTime)
	if spa < 1 {
		return Geometry{}, fmt.Errorf("%w: dwell time %v is shorter than one sample at %v S/s", ErrInvalidConfig, cfg.DwellTime, cfg.SampleRate)
	}
	if settle >= spa {
		return Geometry{}, fmt.Errorf("%w: settling window (%d samples) leaves nothing of a %d sample dwell", ErrInvalidConfig, settle, spa)
	}

	g := Geometry{
		SamplesPerAntenna: spa,
		SettlingSamples:   settle,
		FrameSize:         spa * cfg.MaxAntennas,
		GapThreshold:      floorSamples(float64(spa) * gapFraction),
		Angles:            make([]float64, cfg.MaxAntennas),
		cos:               make([]float64, cfg.MaxAntennas),
		sin:               make([]float64, cfg.MaxAntennas),
	}
	offset := cfg.AntennaOffsetDeg * math.Pi / 180
	step := 2 * math.Pi / float64(cfg.MaxAntennas)
	for i := range g.Angles {
		g.Angles[i] = float64(i)*step + offset
		g.sin[i], g.cos[i] = math.Sincos(g.Angles[i])
	}
	return g, nil
}

// Antennas returns the number of antennas in the array.
func (g Geometry) Antennas() int { return len(g.Angles) }

// BinCapacity is the number of samples one antenna contributes per frame.
func (g Geometry) BinCapacity() int { return g.SamplesPerAntenna - g.SettlingSamples }

// Window returns the frame-relative [start, end) range binned for antenna i.
func (g Geometry) Window(i int) (int, int) {
	return i*g.SamplesPerAntenna + g.SettlingSamples, (i + 1) * g.SamplesPerAntenna
}

// Combine folds per-antenna strengths into the 2-D arrival vector.
// mags must have one entry per antenna.
func (g Geometry) Combine(mags []float64) Estimate {
	return Estimate(complex(floats.Dot(mags, g.cos), floats.Dot(mags, g.sin)))
}

// Estimate reduces every bin to its magnitude sum and combines them. ok is
// false when any bin is empty; the frame must then be discarded.
func (g Geometry) Estimate(bins [][]complex64) (est Estimate, ok bool) {
	if len(bins) != g.Antennas() {
		return 0, false
	}
	mags := make([]float64, len(bins))
	for i, bin := range bins {
		if len(bin) == 0 {
			return 0, false
		}
		mags[i] = dsp.MagnitudeSum(bin)
	}
	return g.Combine(mags), true
}

// samplesIn returns floor(rate*d) samples.
func samplesIn(rate float64, d time.Duration) int {
	return floorSamples(rate * d.Seconds())
}

// floorSamples floors x while ignoring representation error just below an
// integer, so 10e6 * 45e-6 yields 450 rather than 449.
func floorSamples(x float64) int {
	return int(math.Floor(x + 1e-9))
}
