package aoa

// bins is a fixed arena holding one frame's worth of samples per antenna.
// Antenna i owns data[i*size : (i+1)*size]; reset only rewinds lengths.
type bins struct {
	data []complex64
	lens []int
	size int
}

func newBins(antennas, size int) *bins {
	return &bins{
		data: make([]complex64, antennas*size),
		lens: make([]int, antennas),
		size: size,
	}
}

func (b *bins) reset() {
	for i := range b.lens {
		b.lens[i] = 0
	}
}

// add appends samples to antenna i, dropping anything past the slot's end.
func (b *bins) add(i int, samples []complex64) {
	start := i*b.size + b.lens[i]
	b.lens[i] += copy(b.data[start:(i+1)*b.size], samples)
}

func (b *bins) bin(i int) []complex64 {
	start := i * b.size
	return b.data[start : start+b.lens[i]]
}

func (b *bins) all() [][]complex64 {
	out := make([][]complex64, len(b.lens))
	for i := range out {
		out[i] = b.bin(i)
	}
	return out
}

func (b *bins) lengths() []int {
	out := make([]int, len(b.lens))
	copy(out, b.lens)
	return out
}
