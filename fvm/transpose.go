package fvm

import (
	"github.com/notargets/fpadj/ad"
	"gonum.org/v1/gonum/floats"
)

/*
TransposeDefect compares the lower/upper swap of the operator against its
assembled sparse transpose on the vector x:

	|swap(A) x - A^T x| / |A^T x|
*/
func TransposeDefect(l *Ldu, x []float64) float64 {
	var (
		diag    = ad.Values(l.Diag)
		swapped = Ldu{Mesh: l.Mesh, Diag: l.Diag, Lower: l.Upper, Upper: l.Lower}
		want    = l.ToCSR(diag, "A").MulVec(x, true)
		got     = swapped.ToCSR(diag, "swap(A)").MulVec(x, false)
		norm    = floats.Norm(want, 2)
	)
	if norm == 0 {
		norm = 1
	}
	return floats.Distance(got, want, 2) / norm
}
