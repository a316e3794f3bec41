package aoa

import (
	"math"
	"math/cmplx"
)

// Estimate is the arrival vector (x, y). Its phase is the bearing and its
// magnitude tracks combined signal strength; it is not normalized.
type Estimate complex128

// X returns the vector's x component.
func (e Estimate) X() float64 { return real(complex128(e)) }

// Y returns the vector's y component.
func (e Estimate) Y() float64 { return imag(complex128(e)) }

// Magnitude returns |(x, y)|.
func (e Estimate) Magnitude() float64 { return cmplx.Abs(complex128(e)) }

// AngleDeg returns the bearing in degrees within (-180, 180].
func (e Estimate) AngleDeg() float64 {
	return math.Atan2(e.Y(), e.X()) * 180 / math.Pi
}

// Sample returns the estimate as it appears on the output stream.
func (e Estimate) Sample() complex64 { return complex64(e) }
