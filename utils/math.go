package utils

import (
	"math"
)

// POW is an integer power, unrolled for the small exponents used in turbulence closures
func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if p < 0 {
		p = -p
		flipped = true
	}
	switch {
	case p > 8:
		y = math.Pow(x, float64(p))
	case p == 0:
		y = 1
	default:
		y = x
		for i := 1; i < p; i++ {
			y *= x
		}
	}
	if flipped {
		y = 1. / y
	}
	return
}

// SafeDivide returns a/b, or zero when b is zero
func SafeDivide(a, b float64) float64 {
	if math.Abs(b) < VSMALL {
		return 0
	}
	return a / b
}
