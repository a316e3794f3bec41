package aoa

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

// drawStream builds a stream of cycles with random gaps, random per-antenna
// amplitudes and occasional short dips.
func drawStream(t *rapid.T, g Geometry) []complex64 {
	var stream []complex64
	cycles := rapid.IntRange(1, 4).Draw(t, "cycles")
	for c := 0; c < cycles; c++ {
		if rapid.Bool().Draw(t, "dip") {
			stream = append(stream, silence(rapid.IntRange(0, g.GapThreshold-1).Draw(t, "dipLen"))...)
			stream = append(stream, constant(rapid.IntRange(1, 3).Draw(t, "dipHigh"), 1)...)
		}
		gap := rapid.IntRange(g.GapThreshold, 2*g.SamplesPerAntenna).Draw(t, "gap")
		stream = append(stream, silence(gap)...)
		amps := rapid.SliceOfN(rapid.Float64Range(0.3, 4), g.Antennas(), g.Antennas()).Draw(t, "amps")
		stream = append(stream, frame(g, amps)...)
	}
	return append(stream, silence(rapid.IntRange(0, g.FrameSize).Draw(t, "tail"))...)
}

func TestChunkingInvariance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		whole := newTestBlock()
		g := whole.Geometry()
		stream := drawStream(t, g)
		whole.Process(stream)

		sizes := rapid.SliceOfN(rapid.IntRange(1, 2*g.FrameSize), 1, 16).Draw(t, "chunks")
		chunked := newTestBlock()
		feed(chunked, stream, sizes...)

		if whole.Estimate() != chunked.Estimate() {
			t.Fatalf("estimate %v vs chunked %v", whole.Estimate(), chunked.Estimate())
		}
		if !reflect.DeepEqual(whole.State(), chunked.State()) {
			t.Fatalf("state %+v vs chunked %+v", whole.State(), chunked.State())
		}
		if whole.Stats() != chunked.Stats() {
			t.Fatalf("stats %+v vs chunked %+v", whole.Stats(), chunked.Stats())
		}
	})
}

func TestSettlingExclusionAnyChunking(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := newTestBlock()
		g := b.Geometry()
		amps := rapid.SliceOfN(rapid.Float64Range(0.3, 4), g.Antennas(), g.Antennas()).Draw(t, "amps")
		stream := concat(silence(g.GapThreshold), frame(g, amps))
		cut := rapid.IntRange(g.GapThreshold+1, len(stream)-1).Draw(t, "cut")
		sizes := rapid.SliceOfN(rapid.IntRange(1, g.SamplesPerAntenna+3), 1, 8).Draw(t, "chunks")
		feed(b, stream[:cut], sizes...)

		for i := 0; i < g.Antennas(); i++ {
			for _, s := range b.bins.bin(i) {
				if s == transient {
					t.Fatalf("settling sample leaked into antenna %d", i)
				}
			}
		}

		feed(b, stream[cut:], sizes...)
		if !near(b.Estimate(), expected(g, amps)) {
			t.Fatalf("estimate %v want %v", complex128(b.Estimate()), complex128(expected(g, amps)))
		}
	})
}
