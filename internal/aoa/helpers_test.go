package aoa

import (
	"math"
	"time"
)

// transient marks samples inside a settling window. Its magnitude never
// occurs in a dwell body so leaks into a bin are easy to spot.
const transient = complex64(100)

// testConfig gives 8 samples per antenna, 2 settling samples, 4 antennas,
// a 32 sample frame and a gap threshold of 6.
func testConfig() Config {
	return Config{
		SampleRate:   1e6,
		DwellTime:    8 * time.Microsecond,
		Threshold:    0.05,
		MaxAntennas:  4,
		SettlingTime: 2 * time.Microsecond,
	}
}

func newTestBlock() *Block {
	b, err := New(testConfig())
	if err != nil {
		panic(err)
	}
	return b
}

func silence(n int) []complex64 { return make([]complex64, n) }

func constant(n int, v complex64) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// frame renders one switch cycle: per antenna a settling transient followed
// by a constant dwell body of the given amplitude.
func frame(g Geometry, amps []float64) []complex64 {
	out := make([]complex64, 0, g.FrameSize)
	for _, a := range amps {
		out = append(out, constant(g.SettlingSamples, transient)...)
		out = append(out, constant(g.BinCapacity(), complex64(complex(a, 0)))...)
	}
	return out
}

// expected computes the arrival vector for a frame built with amps, using
// the float32 amplitudes the frame actually carries.
func expected(g Geometry, amps []float64) Estimate {
	var x, y float64
	for i, a := range amps {
		m := float64(float32(a)) * float64(g.BinCapacity())
		x += m * math.Cos(g.Angles[i])
		y += m * math.Sin(g.Angles[i])
	}
	return Estimate(complex(x, y))
}

func concat(parts ...[]complex64) []complex64 {
	var out []complex64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// feed pushes stream through b in chunks of the given sizes, cycling
// through sizes until the stream is exhausted.
func feed(b *Block, stream []complex64, sizes ...int) {
	out := make([]complex64, len(stream))
	for i, off := 0, 0; off < len(stream); i++ {
		n := min(sizes[i%len(sizes)], len(stream)-off)
		b.Work(stream[off:off+n], out[off:off+n])
		off += n
	}
}

func near(a, b Estimate) bool {
	return math.Abs(a.X()-b.X()) < 1e-6 && math.Abs(a.Y()-b.Y()) < 1e-6
}
