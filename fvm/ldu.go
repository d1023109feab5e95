// Package fvm assembles implicit finite volume operators in LDU form: a
// diagonal, one lower and one upper coefficient per internal face, a source,
// and per patch face coefficients split between the diagonal (internal
// coefficients) and the source (boundary coefficients).
//
// A matrix M represents the equation
//
//	Diag*x + Σ offdiag*x_N + Σ InternalCoeffs*x_P = Source + Σ BoundaryCoeffs
package fvm

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/mesh"
	"github.com/notargets/fpadj/utils"
)

/*
Ldu holds the coefficients on the face addressing of the mesh. On internal face f
with owner l and neighbour u:

	row l gets Upper[f]*x[u]
	row u gets Lower[f]*x[l]
*/
type Ldu struct {
	Mesh  *mesh.Mesh
	Diag  []ad.Real
	Lower []ad.Real
	Upper []ad.Real
}

func newLdu(m *mesh.Mesh) Ldu {
	return Ldu{
		Mesh:  m,
		Diag:  make([]ad.Real, m.NCells),
		Lower: make([]ad.Real, m.NInternalFaces),
		Upper: make([]ad.Real, m.NInternalFaces),
	}
}

func (l *Ldu) NegSumDiag() {
	m := l.Mesh
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		l.Diag[own] = l.Diag[own].Sub(l.Lower[faceI])
		l.Diag[nei] = l.Diag[nei].Sub(l.Upper[faceI])
	}
}

/*
ApproximateTranspose swaps the lower and upper coefficient arrays.

With symmetric face addressing the swap is the exact transpose of the off
diagonal part. The patch coefficients sit on the diagonal and in the source
and are left untouched, so the swapped operator is the transpose of the
linearised operator only for frozen coefficients. Use adjoint.DotProductTest to
measure the error of the full adjoint on a given case.
*/
func (l *Ldu) ApproximateTranspose() {
	l.Lower, l.Upper = l.Upper, l.Lower
}

func (l *Ldu) SumMagOffDiag() (sumOff []ad.Real) {
	m := l.Mesh
	sumOff = make([]ad.Real, m.NCells)
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		sumOff[own] = sumOff[own].Add(l.Upper[faceI].Abs())
		sumOff[nei] = sumOff[nei].Add(l.Lower[faceI].Abs())
	}
	return
}

// LduH is minus the off diagonal part applied to x
func (l *Ldu) LduH(x []ad.Real) (h []ad.Real) {
	m := l.Mesh
	h = make([]ad.Real, m.NCells)
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		h[nei] = h[nei].Sub(l.Lower[faceI].Mul(x[own]))
		h[own] = h[own].Sub(l.Upper[faceI].Mul(x[nei]))
	}
	return
}

// FaceH is the internal face flux Upper*x[u] - Lower*x[l]
func (l *Ldu) FaceH(x []ad.Real) (fh []ad.Real) {
	m := l.Mesh
	fh = make([]ad.Real, m.NInternalFaces)
	for faceI := range fh {
		fh[faceI] = l.Upper[faceI].Mul(x[m.Neighbour[faceI]]).Sub(l.Lower[faceI].Mul(x[m.Owner[faceI]]))
	}
	return
}

func (l *Ldu) add(o *Ldu, sign float64) {
	if l.Mesh != o.Mesh {
		panic(fmt.Errorf("fvm: combining operators from different meshes"))
	}
	for i := range l.Diag {
		l.Diag[i] = l.Diag[i].Add(o.Diag[i].Scale(sign))
	}
	for i := range l.Lower {
		l.Lower[i] = l.Lower[i].Add(o.Lower[i].Scale(sign))
		l.Upper[i] = l.Upper[i].Add(o.Upper[i].Scale(sign))
	}
}

func (l *Ldu) negate() {
	for i := range l.Diag {
		l.Diag[i] = l.Diag[i].Neg()
	}
	for i := range l.Lower {
		l.Lower[i] = l.Lower[i].Neg()
		l.Upper[i] = l.Upper[i].Neg()
	}
}

/*
relax makes the diagonal at least as large as the sum of the off diagonal
magnitudes, including the largest patch contribution, then under-relaxes it:

	D = max(|D + max|ic||, Σ|offdiag|)/alpha - min(ic)

The diagonal before relaxation is returned for the source update.
*/
func (l *Ldu) relax(alpha float64, icMax, icMin [][]ad.Real) (D0 []ad.Real) {
	m := l.Mesh
	D0 = append([]ad.Real{}, l.Diag...)
	sumOff := l.SumMagOffDiag()
	for patchI := range m.Patches {
		for i, cellI := range m.FaceCells(patchI) {
			l.Diag[cellI] = l.Diag[cellI].Add(icMax[patchI][i])
		}
	}
	for cellI := range l.Diag {
		l.Diag[cellI] = ad.Max(l.Diag[cellI].Abs(), sumOff[cellI]).Scale(1. / alpha)
	}
	for patchI := range m.Patches {
		for i, cellI := range m.FaceCells(patchI) {
			l.Diag[cellI] = l.Diag[cellI].Sub(icMin[patchI][i])
		}
	}
	return
}

// passive returns float copies of the off diagonal coefficients
func (l *Ldu) passive() (lower, upper []float64) {
	return ad.Values(l.Lower), ad.Values(l.Upper)
}

// amul computes dst = A*x for the given diagonal and off diagonal coefficients
func amul(m *mesh.Mesh, diag, lower, upper, dst, x []float64) {
	for i := range dst {
		dst[i] = diag[i] * x[i]
	}
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		dst[own] += upper[faceI] * x[nei]
		dst[nei] += lower[faceI] * x[own]
	}
}

// ToCSR assembles the operator with the given diagonal into a sparse matrix
func (l *Ldu) ToCSR(diag []float64, name string) utils.CSR {
	var (
		m            = l.Mesh
		lower, upper = l.passive()
		A            = utils.NewDOK(m.NCells, m.NCells, name)
	)
	for cellI, d := range diag {
		A.Set(cellI, cellI, d)
	}
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		A.AddTo(own, nei, upper[faceI])
		A.AddTo(nei, own, lower[faceI])
	}
	return A.ToCSR()
}
