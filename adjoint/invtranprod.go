package adjoint

import (
	"errors"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvm"
	"github.com/notargets/fpadj/linsolve"
)

/*
InvTranProdU solves pseudo = M_U^-T src with M_U the relaxed momentum matrix.
The transpose is approximated by swapping the off diagonal coefficients, the
patch coefficients are left in place and removed from the source so that they
cancel out of the solve. pseudo carries the boundary conditions of U.
*/
func (f *SimpleFlow) InvTranProdU(src, pseudo *fields.VolVectorField) (err error) {
	M := f.momentumMatrix(pseudo)
	M.Relax(f.Ctl.RelaxUEqn)
	M.ApproximateTranspose()
	M.ReplaceSource(src.Internal)
	M.SubtractBoundarySource()
	for cellI := range pseudo.Internal {
		pseudo.Internal[cellI] = ad.Vec3{}
	}
	perf, err := M.Solve(f.Ctl.USolver)
	f.logPerf(perf[:]...)
	return
}

/*
InvTranProdP solves pseudo = M_p^-T src with M_p = laplacian(rAU, p), rAU
from the relaxed momentum matrix at the current state. The reference cell
pins pseudo when no patch fixes the pressure level.
*/
func (f *SimpleFlow) InvTranProdP(src, pseudo *fields.VolScalarField) (err error) {
	UEqn := f.momentumMatrix(f.U)
	UEqn.Relax(f.Ctl.RelaxUEqn)
	M := f.pressureEqn(f.rAU(UEqn), nil, pseudo)
	M.ApproximateTranspose()
	M.ReplaceSource(src.Internal)
	M.SetReference(f.Ctl.PRefCell, f.Ctl.PRefValue)
	M.SubtractBoundarySource()
	for cellI := range pseudo.Internal {
		pseudo.Internal[cellI] = ad.Real{}
	}
	perf, err := M.Solve(f.Ctl.PSolver)
	f.logPerf(perf)
	return
}

func (f *SimpleFlow) InvTranProdNuTilda(src, pseudo *fields.VolScalarField) (err error) {
	perf, err := f.Turbulence.InvTranProd(src, pseudo)
	f.logPerf(perf)
	return
}

/*
TransposeDefect measures the swap approximation against the assembled
transpose for the relaxed momentum and the pressure matrices,
|swap(A)x - A^T x|/|A^T x| for a fixed test vector x.
*/
func (f *SimpleFlow) TransposeDefect() (dU, dp float64) {
	UEqn := f.momentumMatrix(f.U)
	UEqn.Relax(f.Ctl.RelaxUEqn)
	pEqn := f.pressureEqn(f.rAU(UEqn), nil, f.P)
	x := make([]float64, f.Mesh.NCells)
	for cellI := range x {
		x[cellI] = 1 + float64(cellI%7)
	}
	return fvm.TransposeDefect(&UEqn.Ldu, x), fvm.TransposeDefect(&pEqn.Ldu, x)
}

// tolerable lets approximately converged sub-solves through
func tolerable(err error) bool {
	return err == nil || errors.Is(err, linsolve.ErrIterationLimit)
}
