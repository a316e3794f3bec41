package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// MinSpectrumDB is reported for bins with zero energy so snapshots stay
// JSON encodable.
const MinSpectrumDB = -200.0

// FFTShift returns the FFT output shifted so that DC is centered.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	shifted := make([]complex128, 0, n)
	shifted = append(shifted, data[half:]...)
	return append(shifted, data[:half]...)
}

// Spectrum returns a DC-centred Hamming-windowed magnitude spectrum in dB
// relative to a full-scale (|s| = 1) complex tone.
func Spectrum(samples []complex64) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	win := hamming(len(samples))
	windowed := make([]complex128, len(samples))
	for i, v := range samples {
		windowed[i] = complex128(v) * complex(win[i], 0)
	}
	coeffs := fourier.NewCmplxFFT(len(samples)).Coefficients(nil, windowed)
	sumWin := floats.Sum(win)
	shifted := FFTShift(coeffs)
	db := make([]float64, len(shifted))
	for i, v := range shifted {
		mag := cmplx.Abs(v) / sumWin
		if mag == 0 {
			db[i] = MinSpectrumDB
			continue
		}
		db[i] = math.Max(20*math.Log10(mag), MinSpectrumDB)
	}
	return db
}

// hamming returns Hamming coefficients of length n. A single sample gets
// unit weight.
func hamming(n int) []float64 {
	win := make([]float64, n)
	floats.AddConst(1, win)
	if n < 2 {
		return win
	}
	return window.Hamming(win)
}
