package aoa

import (
	"github.com/rjboer/GoAOA/internal/dsp"
)

// Phase is the synchronization state of a Block.
type Phase int

const (
	// Searching scans power for the RFX gap that precedes antenna 0.
	Searching Phase = iota
	// Capturing bins samples of the current frame by antenna.
	Capturing
)

func (p Phase) String() string {
	switch p {
	case Searching:
		return "searching"
	case Capturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// State is a copy of the block's synchronization state.
type State struct {
	Phase    Phase
	BinLens  []int
	Estimate Estimate

	// SilenceRun counts consecutive below-threshold samples. Only
	// meaningful while Searching.
	SilenceRun int

	// FramePos is the frame-relative position of the next sample. Only
	// meaningful while Capturing.
	FramePos int
}

// Stats counts what the block has seen since construction.
type Stats struct {
	Samples   uint64 `json:"samples"`
	Dropped   uint64 `json:"dropped"`
	Syncs     uint64 `json:"syncs"`
	Dips      uint64 `json:"dips"`
	Frames    uint64 `json:"frames"`
	Discarded uint64 `json:"discarded"`

	// LastSync is the absolute stream index of the most recent rising edge
	// accepted as antenna 0's first sample.
	LastSync uint64 `json:"lastSync"`
}

// Block synchronizes to the switched array, bins samples per antenna and
// keeps the latest arrival estimate. A Block is not safe for concurrent use;
// it is driven by a single caller of Work.
type Block struct {
	cfg  Config
	geo  Geometry
	bins *bins

	phase   Phase
	silence int
	pos     int
	held    Estimate
	power   []float64
	stats   Stats
}

// New validates cfg and builds a block in the Searching phase with a zero
// estimate.
func New(cfg Config) (*Block, error) {
	geo, err := NewGeometry(cfg)
	if err != nil {
		return nil, err
	}
	return &Block{
		cfg:  cfg,
		geo:  geo,
		bins: newBins(geo.Antennas(), geo.BinCapacity()),
	}, nil
}

// Config returns the parameters the block was built with.
func (b *Block) Config() Config { return b.cfg }

// Geometry returns the derived frame layout.
func (b *Block) Geometry() Geometry { return b.geo }

// Estimate returns the held arrival vector.
func (b *Block) Estimate() Estimate { return b.held }

// Stats returns the block counters.
func (b *Block) Stats() Stats { return b.stats }

// State returns a copy of the synchronization state.
func (b *Block) State() State {
	return State{
		Phase:      b.phase,
		SilenceRun: b.silence,
		FramePos:   b.pos,
		BinLens:    b.bins.lengths(),
		Estimate:   b.held,
	}
}

// Work advances the state machine over in and writes the estimate held on
// entry to every sample of out. It processes min(len(in), len(out)) samples
// and returns that count.
func (b *Block) Work(in, out []complex64) int {
	n := min(len(in), len(out))
	in, out = in[:n], out[:n]

	hold := b.held.Sample()
	for i := range out {
		out[i] = hold
	}

	b.power = dsp.Power(b.power, in)
	for idx := 0; idx < n; {
		switch b.phase {
		case Searching:
			idx = b.search(idx)
		case Capturing:
			idx = b.capture(in, idx)
		}
	}
	b.stats.Samples += uint64(n)
	return n
}

// Process is Work with a freshly allocated output buffer.
func (b *Block) Process(in []complex64) []complex64 {
	out := make([]complex64, len(in))
	b.Work(in, out)
	return out
}

// Drop accounts for n samples the source lost. A capture keeps its timing
// and the lost span is simply not binned; a search restarts its silence
// count because the lost samples were never observed.
func (b *Block) Drop(n int) {
	if n <= 0 {
		return
	}
	b.stats.Dropped += uint64(n)
	b.stats.Samples += uint64(n)
	if b.phase == Searching {
		b.silence = 0
		return
	}
	b.pos += min(n, b.geo.FrameSize-b.pos)
	if b.pos >= b.geo.FrameSize {
		b.finishFrame()
	}
}

// search scans b.power from idx for the rising edge that ends the RFX gap
// and returns where processing continues.
func (b *Block) search(idx int) int {
	rel := dsp.FirstAtOrAbove(b.power[idx:], b.cfg.Threshold)
	if rel < 0 {
		b.silence += len(b.power) - idx
		return len(b.power)
	}
	b.silence += rel
	edge := idx + rel
	if b.silence < b.geo.GapThreshold {
		// Too short for the RFX gap; skip past this edge so it cannot
		// trigger again.
		b.silence = 0
		b.stats.Dips++
		return edge + 1
	}
	b.phase = Capturing
	b.pos = 0
	b.silence = 0
	b.bins.reset()
	b.stats.Syncs++
	b.stats.LastSync = b.stats.Samples + uint64(edge)
	return edge
}

// capture bins samples of in starting at idx into the antenna windows they
// fall in and returns where processing continues.
func (b *Block) capture(in []complex64, idx int) int {
	k := min(b.geo.FrameSize-b.pos, len(in)-idx)
	chunk := in[idx : idx+k]
	spa := b.geo.SamplesPerAntenna
	for i := b.pos / spa; i <= (b.pos+k-1)/spa; i++ {
		ws, we := b.geo.Window(i)
		start, end := max(b.pos, ws), min(b.pos+k, we)
		if start < end {
			b.bins.add(i, chunk[start-b.pos:end-b.pos])
		}
	}
	b.pos += k
	if b.pos >= b.geo.FrameSize {
		b.finishFrame()
	}
	return idx + k
}

func (b *Block) finishFrame() {
	if est, ok := b.geo.Estimate(b.bins.all()); ok {
		b.held = est
		b.stats.Frames++
	} else {
		b.stats.Discarded++
	}
	b.phase = Searching
	b.pos = 0
	b.silence = 0
}
