package dsp

import "math/cmplx"

// Power writes re²+im² for every sample of src into dst and returns it.
// dst is grown when its capacity is too small, so callers can keep one
// scratch slice alive across buffers.
func Power(dst []float64, src []complex64) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		re, im := float64(real(v)), float64(imag(v))
		dst[i] = re*re + im*im
	}
	return dst
}

// MagnitudeSum returns Σ|s| over samples.
func MagnitudeSum(samples []complex64) float64 {
	var sum float64
	for _, v := range samples {
		sum += cmplx.Abs(complex128(v))
	}
	return sum
}

// FirstAtOrAbove returns the index of the first value >= threshold, or -1.
func FirstAtOrAbove(values []float64, threshold float64) int {
	for i, v := range values {
		if v >= threshold {
			return i
		}
	}
	return -1
}
