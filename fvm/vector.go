package fvm

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
)

// VectorMatrix shares the LDU coefficients between the components, the
// source and patch coefficients are per component.
type VectorMatrix struct {
	Ldu
	Psi            *fields.VolVectorField
	Source         []ad.Vec3
	InternalCoeffs [][]ad.Vec3
	BoundaryCoeffs [][]ad.Vec3
}

func NewVectorMatrix(psi *fields.VolVectorField) (M *VectorMatrix) {
	m := psi.Mesh
	M = &VectorMatrix{
		Ldu:            newLdu(m),
		Psi:            psi,
		Source:         make([]ad.Vec3, m.NCells),
		InternalCoeffs: make([][]ad.Vec3, m.NPatches()),
		BoundaryCoeffs: make([][]ad.Vec3, m.NPatches()),
	}
	for i, p := range m.Patches {
		M.InternalCoeffs[i] = make([]ad.Vec3, p.Size)
		M.BoundaryCoeffs[i] = make([]ad.Vec3, p.Size)
	}
	return
}

func splat(r ad.Real) ad.Vec3 { return ad.Vec3{r, r, r} }

// DivVector is the implicit upwind convection of U by the face flux phi
func DivVector(phi *fields.SurfaceScalarField, U *fields.VolVectorField) (M *VectorMatrix) {
	M = NewVectorMatrix(U)
	for faceI, F := range phi.Internal {
		M.Lower[faceI] = F.Scale(-F.Pos0())
		M.Upper[faceI] = M.Lower[faceI].Add(F)
	}
	M.NegSumDiag()
	for patchI := range U.Boundary {
		vic := U.ValueInternalCoeffs(patchI)
		for i, F := range phi.Boundary[patchI] {
			M.InternalCoeffs[patchI][i] = splat(F.Scale(vic))
			M.BoundaryCoeffs[patchI][i] = U.ValueBoundaryCoeffs(patchI, i).Mul(F).Scale(-1)
		}
	}
	return
}

func LaplacianVector(gamma *fields.SurfaceScalarField, U *fields.VolVectorField) (M *VectorMatrix) {
	m := U.Mesh
	M = NewVectorMatrix(U)
	for faceI, g := range gamma.Internal {
		M.Upper[faceI] = g.Scale(m.MagSf[faceI] * m.DeltaCoeffs[faceI])
		M.Lower[faceI] = M.Upper[faceI]
	}
	M.NegSumDiag()
	for patchI, p := range m.Patches {
		for i, g := range gamma.Boundary[patchI] {
			gMagSf := g.Scale(m.MagSf[p.Start+i])
			M.InternalCoeffs[patchI][i] = splat(gMagSf.Scale(U.GradientInternalCoeffs(patchI, i)))
			M.BoundaryCoeffs[patchI][i] = U.GradientBoundaryCoeffs(patchI, i).Mul(gMagSf).Scale(-1)
		}
	}
	return
}

func (M *VectorMatrix) Add(o *VectorMatrix) *VectorMatrix { return M.combine(o, 1) }

func (M *VectorMatrix) Sub(o *VectorMatrix) *VectorMatrix { return M.combine(o, -1) }

func (M *VectorMatrix) combine(o *VectorMatrix, sign float64) *VectorMatrix {
	if M.Psi != o.Psi {
		panic(fmt.Errorf("fvm: incompatible fields for operation, %s and %s", M.Psi.Name, o.Psi.Name))
	}
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

// AddRHS moves an explicit cell source su to the right hand side, M == su
func (M *VectorMatrix) AddRHS(su []ad.Vec3) *VectorMatrix {
	for cellI, s := range su {
		M.Source[cellI] = M.Source[cellI].Add(s.Scale(M.Mesh.V[cellI]))
	}
	return M
}

func (M *VectorMatrix) Relax(alpha float64) {
	if alpha <= 0 {
		return
	}
	var (
		icMax = make([][]ad.Real, len(M.InternalCoeffs))
		icMin = make([][]ad.Real, len(M.InternalCoeffs))
	)
	for patchI, ic := range M.InternalCoeffs {
		icMax[patchI] = make([]ad.Real, len(ic))
		icMin[patchI] = make([]ad.Real, len(ic))
		for i, c := range ic {
			icMax[patchI][i] = ad.Max(ad.Max(c[0].Abs(), c[1].Abs()), c[2].Abs())
			icMin[patchI][i] = c.CmptMin()
		}
	}
	D0 := M.relax(alpha, icMax, icMin)
	for cellI := range M.Diag {
		M.Source[cellI] = M.Source[cellI].Add(M.Psi.Internal[cellI].Mul(M.Diag[cellI].Sub(D0[cellI])))
	}
}

// D is the diagonal with the component average of the patch contributions
func (M *VectorMatrix) D() (D []ad.Real) {
	D = append([]ad.Real{}, M.Diag...)
	for patchI := range M.InternalCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			D[cellI] = D[cellI].Add(M.InternalCoeffs[patchI][i].CmptAv())
		}
	}
	return
}

func (M *VectorMatrix) A() (A []ad.Real) {
	A = M.D()
	for cellI := range A {
		A[cellI] = A[cellI].Scale(1. / M.Mesh.V[cellI])
	}
	return
}

/*
H is the right hand side minus the off diagonal part, per unit volume. The
part of the patch diagonal that differs from its component average in D is
moved into H:

	H = (lduH(U) + source + Σ bc + Σ (cmptAv(ic) - ic) U_P)/V
*/
func (M *VectorMatrix) H() (H []ad.Vec3) {
	H = make([]ad.Vec3, M.Mesh.NCells)
	for cmpt := 0; cmpt < 3; cmpt++ {
		h := M.LduH(M.component(cmpt))
		for cellI := range H {
			H[cellI][cmpt] = h[cellI]
		}
	}
	for cellI := range H {
		H[cellI] = H[cellI].Add(M.Source[cellI])
	}
	for patchI := range M.BoundaryCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			ic := M.InternalCoeffs[patchI][i]
			H[cellI] = H[cellI].Add(M.BoundaryCoeffs[patchI][i]).
				Add(splat(ic.CmptAv()).Sub(ic).CmptMul(M.Psi.Internal[cellI]))
		}
	}
	for cellI := range H {
		H[cellI] = H[cellI].Scale(1. / M.Mesh.V[cellI])
	}
	return
}

// Residual is M*U - source with the patch contributions
func (M *VectorMatrix) Residual() (res []ad.Vec3) {
	U := M.Psi.Internal
	res = make([]ad.Vec3, len(U))
	for cellI := range res {
		res[cellI] = U[cellI].Mul(M.Diag[cellI]).Sub(M.Source[cellI])
	}
	for cmpt := 0; cmpt < 3; cmpt++ {
		h := M.LduH(M.component(cmpt))
		for cellI := range res {
			res[cellI][cmpt] = res[cellI][cmpt].Sub(h[cellI])
		}
	}
	for patchI := range M.InternalCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			res[cellI] = res[cellI].Add(M.InternalCoeffs[patchI][i].CmptMul(U[cellI])).Sub(M.BoundaryCoeffs[patchI][i])
		}
	}
	return
}

func (M *VectorMatrix) ReplaceSource(src []ad.Vec3) {
	for cellI := range M.Source {
		for cmpt := 0; cmpt < 3; cmpt++ {
			M.Source[cellI][cmpt] = src[cellI][cmpt].Passive()
		}
	}
}

func (M *VectorMatrix) SubtractBoundarySource() {
	for patchI := range M.BoundaryCoeffs {
		for i, cellI := range M.Mesh.FaceCells(patchI) {
			M.Source[cellI] = M.Source[cellI].Sub(M.BoundaryCoeffs[patchI][i])
		}
	}
}

func (M *VectorMatrix) component(cmpt int) (x []ad.Real) {
	x = make([]ad.Real, len(M.Psi.Internal))
	for cellI, v := range M.Psi.Internal {
		x[cellI] = v[cmpt]
	}
	return
}

// Solve solves each component of U in place
func (M *VectorMatrix) Solve(ctl SolverControls) (perf [3]SolverPerformance, err error) {
	lower, upper := M.passive()
	for cmpt := 0; cmpt < 3; cmpt++ {
		var (
			diag = ad.Values(M.Diag)
			b    = make([]float64, M.Mesh.NCells)
			x0   = ad.Values(M.component(cmpt))
			x    []float64
			name = fmt.Sprintf("%s%c", M.Psi.Name, 'x'+cmpt)
		)
		for cellI := range b {
			b[cellI] = M.Source[cellI][cmpt].Val
		}
		for patchI := range M.InternalCoeffs {
			for i, cellI := range M.Mesh.FaceCells(patchI) {
				diag[cellI] += M.InternalCoeffs[patchI][i][cmpt].Val
				b[cellI] += M.BoundaryCoeffs[patchI][i][cmpt].Val
			}
		}
		var cmptErr error
		x, perf[cmpt], cmptErr = solve(name, M.Mesh, diag, lower, upper, b, x0, nil, ctl)
		if x == nil {
			return perf, cmptErr
		}
		for cellI := range x {
			M.Psi.Internal[cellI][cmpt] = ad.Const(x[cellI])
		}
		if err == nil {
			err = cmptErr
		}
	}
	M.Psi.CorrectBoundaryConditions()
	return
}
