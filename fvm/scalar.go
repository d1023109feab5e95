package fvm

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
)

type ScalarMatrix struct {
	Ldu
	Psi            *fields.VolScalarField
	Source         []ad.Real
	InternalCoeffs [][]ad.Real
	BoundaryCoeffs [][]ad.Real
	ref            *reference
}

type reference struct {
	cell  int
	value float64
}

func NewScalarMatrix(psi *fields.VolScalarField) (M *ScalarMatrix) {
	m := psi.Mesh
	M = &ScalarMatrix{
		Ldu:            newLdu(m),
		Psi:            psi,
		Source:         make([]ad.Real, m.NCells),
		InternalCoeffs: make([][]ad.Real, m.NPatches()),
		BoundaryCoeffs: make([][]ad.Real, m.NPatches()),
	}
	for i, p := range m.Patches {
		M.InternalCoeffs[i] = make([]ad.Real, p.Size)
		M.BoundaryCoeffs[i] = make([]ad.Real, p.Size)
	}
	return
}

// Div is the implicit upwind convection of psi by the face flux phi
func Div(phi *fields.SurfaceScalarField, psi *fields.VolScalarField) (M *ScalarMatrix) {
	M = NewScalarMatrix(psi)
	for faceI, F := range phi.Internal {
		M.Lower[faceI] = F.Scale(-F.Pos0())
		M.Upper[faceI] = M.Lower[faceI].Add(F)
	}
	M.NegSumDiag()
	for patchI := range psi.Boundary {
		vic := psi.ValueInternalCoeffs(patchI)
		for i, F := range phi.Boundary[patchI] {
			M.InternalCoeffs[patchI][i] = F.Scale(vic)
			M.BoundaryCoeffs[patchI][i] = F.Mul(psi.ValueBoundaryCoeffs(patchI, i)).Neg()
		}
	}
	return
}

// Laplacian is the implicit div(gamma*grad(psi)) with gamma given on the faces
func Laplacian(gamma *fields.SurfaceScalarField, psi *fields.VolScalarField) (M *ScalarMatrix) {
	m := psi.Mesh
	M = NewScalarMatrix(psi)
	for faceI, g := range gamma.Internal {
		M.Upper[faceI] = g.Scale(m.MagSf[faceI] * m.DeltaCoeffs[faceI])
		M.Lower[faceI] = M.Upper[faceI]
	}
	M.NegSumDiag()
	for patchI, p := range m.Patches {
		for i, g := range gamma.Boundary[patchI] {
			gMagSf := g.Scale(m.MagSf[p.Start+i])
			M.InternalCoeffs[patchI][i] = gMagSf.Scale(psi.GradientInternalCoeffs(patchI, i))
			M.BoundaryCoeffs[patchI][i] = gMagSf.Mul(psi.GradientBoundaryCoeffs(patchI, i)).Neg()
		}
	}
	return
}

func (M *ScalarMatrix) mustMatch(o *ScalarMatrix) {
	if M.Psi != o.Psi {
		panic(fmt.Errorf("fvm: incompatible fields for operation, %s and %s", M.Psi.Name, o.Psi.Name))
	}
}

func (M *ScalarMatrix) Add(o *ScalarMatrix) *ScalarMatrix { return M.combine(o, 1) }

func (M *ScalarMatrix) Sub(o *ScalarMatrix) *ScalarMatrix { return M.combine(o, -1) }

func (M *ScalarMatrix) combine(o *ScalarMatrix, sign float64) *ScalarMatrix {
	M.mustMatch(o)
	M.Ldu.add(&o.Ldu, sign)
	for i := range M.Source {
		M.Source[i] = M.Source[i].Add(o.Source[i].Scale(sign))
	}
	for patchI := range M.InternalCoeffs {
		for i := range M.InternalCoeffs[patchI] {
			M.InternalCoeffs[patchI][i] = M.InternalCoeffs[patchI][i].Add(o.InternalCoeffs[patchI][i].Scale(sign))
			M.BoundaryCoeffs[patchI][i] = M.BoundaryCoeffs[patchI][i].Add(o.BoundaryCoeffs[patchI][i].Scale(sign))
		}
	}
	return M
}

func (M *ScalarMatrix) Negate() *ScalarMatrix {
	M.Ldu.negate()
	for i := range M.Source {
		M.Source[i] = M.Source[i].Neg()
	}
	for patchI := range M.InternalCoeffs {
		for i := range M.InternalCoeffs[patchI] {
			M.InternalCoeffs[patchI][i] = M.InternalCoeffs[patchI][i].Neg()
			M.BoundaryCoeffs[patchI][i] = M.BoundaryCoeffs[patchI][i].Neg()
		}
	}
	return M
}

// AddRHS moves an explicit cell source su to the right hand side, M == su
func (M *ScalarMatrix) AddRHS(su []ad.Real) *ScalarMatrix {
	for cellI, s := range su {
		M.Source[cellI] = M.Source[cellI].Add(s.Scale(M.Mesh.V[cellI]))
	}
	return M
}

// Sp adds the implicit source coef*psi to the left hand side
func (M *ScalarMatrix) Sp(coef []ad.Real) *ScalarMatrix {
	for cellI, c := range coef {
		M.Diag[cellI] = M.Diag[cellI].Add(c.Scale(M.Mesh.V[cellI]))
	}
	return M
}

// Relax under-relaxes the matrix by alpha, alpha <= 0 leaves it unchanged
func (M *ScalarMatrix) Relax(alpha float64) {
	if alpha <= 0 {
		return
	}
	icMag := make([][]ad.Real, len(M.InternalCoeffs))
	for patchI, ic := range M.InternalCoeffs {
		icMag[patchI] = make([]ad.Real, len(ic))
		for i := range ic {
			icMag[patchI][i] = ic[i].Abs()
		}
	}
	D0 := M.relax(alpha, icMag, M.InternalCoeffs)
	for cellI := range M.Diag {
		M.Source[cellI] = M.Source[cellI].Add(M.Diag[cellI].Sub(D0[cellI]).Mul(M.Psi.Internal[cellI]))
	}
}

// D is the diagonal including the patch contributions
func (M *ScalarMatrix) D() (D []ad.Real) {
	D = append([]ad.Real{}, M.Diag...)
	for patchI := range M.InternalCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			D[cellI] = D[cellI].Add(M.InternalCoeffs[patchI][i])
		}
	}
	return
}

// A is the diagonal per unit volume
func (M *ScalarMatrix) A() (A []ad.Real) {
	A = M.D()
	for cellI := range A {
		A[cellI] = A[cellI].Scale(1. / M.Mesh.V[cellI])
	}
	return
}

// H is the right hand side minus the off diagonal part, per unit volume
func (M *ScalarMatrix) H() (H []ad.Real) {
	H = M.LduH(M.Psi.Internal)
	for cellI := range H {
		H[cellI] = H[cellI].Add(M.Source[cellI])
	}
	for patchI := range M.BoundaryCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			H[cellI] = H[cellI].Add(M.BoundaryCoeffs[patchI][i])
		}
	}
	for cellI := range H {
		H[cellI] = H[cellI].Scale(1. / M.Mesh.V[cellI])
	}
	return
}

// Flux is the face flux of the operator at the current psi
func (M *ScalarMatrix) Flux() (flux *fields.SurfaceScalarField) {
	flux = fields.NewSurfaceScalarField(M.Psi.Name+"Flux", M.Mesh)
	flux.Internal = M.FaceH(M.Psi.Internal)
	for patchI := range M.InternalCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			flux.Boundary[patchI][i] = M.InternalCoeffs[patchI][i].Mul(M.Psi.Internal[cellI]).Sub(M.BoundaryCoeffs[patchI][i])
		}
	}
	return
}

// Residual is M*psi - source with the patch contributions
func (M *ScalarMatrix) Residual() (res []ad.Real) {
	var (
		psi = M.Psi.Internal
		h   = M.LduH(psi)
	)
	res = make([]ad.Real, len(psi))
	for cellI := range res {
		res[cellI] = M.Diag[cellI].Mul(psi[cellI]).Sub(M.Source[cellI]).Sub(h[cellI])
	}
	for patchI := range M.InternalCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			res[cellI] = res[cellI].Add(M.InternalCoeffs[patchI][i].Mul(psi[cellI])).Sub(M.BoundaryCoeffs[patchI][i])
		}
	}
	return
}

// SetReference pins psi to value at cell when no patch fixes the level of psi
func (M *ScalarMatrix) SetReference(cell int, value float64) {
	if !M.Psi.NeedReference() {
		return
	}
	if cell < 0 || cell >= M.Mesh.NCells {
		panic(fmt.Errorf("fvm: reference cell %d out of range for %s", cell, M.Psi.Name))
	}
	M.ref = &reference{cell: cell, value: value}
}

// ReplaceSource overwrites the source with the values of src
func (M *ScalarMatrix) ReplaceSource(src []ad.Real) {
	for cellI := range M.Source {
		M.Source[cellI] = src[cellI].Passive()
	}
}

// SubtractBoundarySource removes the boundary coefficients from the source so
// that they cancel out of the solve.
func (M *ScalarMatrix) SubtractBoundarySource() {
	for patchI := range M.BoundaryCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			M.Source[cellI] = M.Source[cellI].Sub(M.BoundaryCoeffs[patchI][i])
		}
	}
}

// system returns the passive diagonal and right hand side with the patch
// contributions added.
func (M *ScalarMatrix) system() (diag, b []float64) {
	diag, b = ad.Values(M.Diag), ad.Values(M.Source)
	for patchI := range M.InternalCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			diag[cellI] += M.InternalCoeffs[patchI][i].Val
			b[cellI] += M.BoundaryCoeffs[patchI][i].Val
		}
	}
	return
}

// Solve solves for psi in place starting from its current values
func (M *ScalarMatrix) Solve(ctl SolverControls) (perf SolverPerformance, err error) {
	var (
		diag, b      = M.system()
		lower, upper = M.passive()
		x            []float64
	)
	x, perf, err = solve(M.Psi.Name, M.Mesh, diag, lower, upper, b, M.Psi.Values(), M.ref, ctl)
	if x == nil {
		return
	}
	M.Psi.SetValues(x)
	M.Psi.CorrectBoundaryConditions()
	return
}
