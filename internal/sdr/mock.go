package sdr

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
)

const (
	defaultNumSamples = 4096
	defaultSampleRate = 10e6
	defaultAmplitude  = 1.0
	defaultNoise      = 1e-3

	// transientGain scales the carrier during the settling window to mimic
	// the switch's ringing.
	transientGain = 1.8
)

// MockSDR synthesizes the stream a switched array produces: one dwell slot
// per antenna followed by one silent RFX slot. Antenna gain follows a
// cardioid around the simulated bearing and never drops below a quarter of
// the amplitude, so antenna 0 always opens with a clear rising edge.
type MockSDR struct {
	mu      sync.RWMutex
	cfg     Config
	rng     *rand.Rand
	spa     int
	settle  int
	pos     int
	sample  uint64
	calls   int
	gains   []float64
	bearing float64
}

var errMockNotInitialized = errors.New("sdr: mock used before Init")

func NewMock() *MockSDR { return &MockSDR{} }

func (m *MockSDR) Init(_ context.Context, cfg Config) error {
	if cfg.NumSamples <= 0 {
		cfg.NumSamples = defaultNumSamples
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Antennas <= 0 {
		cfg.Antennas = 6
	}
	if cfg.Amplitude <= 0 {
		cfg.Amplitude = defaultAmplitude
	}
	if cfg.NoiseFloor <= 0 {
		cfg.NoiseFloor = defaultNoise
	}
	spa := int(math.Floor(cfg.SampleRate*cfg.Dwell.Seconds() + 1e-9))
	if spa <= 0 {
		spa = 450
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.rng = rand.New(rand.NewSource(cfg.Seed))
	m.spa = spa
	m.settle = min(int(math.Floor(cfg.SampleRate*cfg.Settling.Seconds()+1e-9)), spa)
	m.pos = ((cfg.StartOffset % m.cycleLen()) + m.cycleLen()) % m.cycleLen()
	m.sample = 0
	m.calls = 0
	m.setBearing(cfg.BearingDeg)
	return nil
}

func (m *MockSDR) Close() error { return nil }

// SetBearing moves the simulated emitter, in degrees.
func (m *MockSDR) SetBearing(deg float64) {
	m.mu.Lock()
	m.setBearing(deg)
	m.mu.Unlock()
}

// Bearing returns the simulated emitter bearing in degrees.
func (m *MockSDR) Bearing() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bearing
}

func (m *MockSDR) setBearing(deg float64) {
	m.bearing = deg
	n := max(m.cfg.Antennas, 1)
	m.gains = make([]float64, n)
	offset := m.cfg.OffsetDeg * math.Pi / 180
	target := deg * math.Pi / 180
	for i := range m.gains {
		angle := float64(i)*2*math.Pi/float64(n) + offset
		m.gains[i] = m.cfg.Amplitude * (0.25 + 0.75*(1+math.Cos(angle-target))/2)
	}
}

func (m *MockSDR) cycleLen() int { return m.spa * (m.cfg.Antennas + 1) }

// RX returns the next NumSamples of the free-running stream. With DropEvery
// set, every DropEvery-th call loses its buffer and reports an
// OverflowError instead.
func (m *MockSDR) RX(ctx context.Context) ([]complex64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng == nil {
		return nil, errMockNotInitialized
	}

	n := m.cfg.NumSamples
	m.calls++
	if m.cfg.DropEvery > 0 && m.calls%m.cfg.DropEvery == 0 {
		m.advance(n)
		return nil, &OverflowError{Lost: n}
	}

	out := make([]complex64, n)
	step := 2 * math.Pi * m.cfg.ToneOffset / m.cfg.SampleRate
	for i := range out {
		slot, within := m.pos/m.spa, m.pos%m.spa
		noise := complex(m.rng.NormFloat64()*m.cfg.NoiseFloor, m.rng.NormFloat64()*m.cfg.NoiseFloor)
		if slot < m.cfg.Antennas {
			amp := m.gains[slot]
			if within < m.settle {
				amp *= transientGain
			}
			sin, cos := math.Sincos(step * float64(m.sample))
			out[i] = complex64(complex(amp*cos, amp*sin) + noise)
		} else {
			out[i] = complex64(noise)
		}
		m.advance(1)
	}
	return out, nil
}

func (m *MockSDR) advance(n int) {
	m.pos = (m.pos + n) % m.cycleLen()
	m.sample += uint64(n)
}
