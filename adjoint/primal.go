package adjoint

import (
	"math"
	"time"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fvc"
)

type PrimalResult struct {
	Iterations int
	Converged  bool
	// InitialResiduals is the largest normalized initial residual of the U and
	// p solves of each iteration
	InitialResiduals []float64
	ContinuityError  float64
}

/*
SolvePrimal runs SIMPLE iterations until the initial residuals of the momentum
and pressure solves are below tol:

	solve(UEqn == -grad(p)) with the relaxed UEqn
	HbyA = rAU H, pEqn: laplacian(rAU, p) == div(phiHbyA)
	phi = phiHbyA - pEqn.flux(), p relaxed explicitly
	U = HbyA - rAU grad(p), then the turbulence correction
*/
func (f *SimpleFlow) SolvePrimal(maxIters int, tol float64) (r PrimalResult, err error) {
	var (
		m     = f.Mesh
		start = time.Now()
		vTot  float64
	)
	for _, v := range m.V {
		vTot += v
	}
	for iter := 0; iter < maxIters; iter++ {
		UEqn := f.momentumEqn()
		UEqn.Relax(f.Ctl.RelaxUEqn)

		source := append([]ad.Vec3{}, UEqn.Source...)
		gradp := fvc.Grad(f.P)
		for cellI := range gradp {
			gradp[cellI] = gradp[cellI].Scale(-1)
		}
		UEqn.AddRHS(gradp)
		perfU, errU := UEqn.Solve(f.Ctl.USolver)
		if !tolerable(errU) {
			return r, errU
		}
		copy(UEqn.Source, source)
		f.logPerf(perfU[:]...)

		var (
			rAU     = f.rAU(UEqn)
			HbyA    = f.HbyA(UEqn, rAU)
			phiHbyA = fvc.Flux(HbyA)
			pEqn    = f.pressureEqn(rAU, phiHbyA, f.P)
			p0      = f.P.Values()
		)
		pEqn.SetReference(f.Ctl.PRefCell, f.Ctl.PRefValue)
		perfP, errP := pEqn.Solve(f.Ctl.PSolver)
		if !tolerable(errP) {
			return r, errP
		}
		f.logPerf(perfP)

		pFlux := pEqn.Flux()
		for faceI := range f.Phi.Internal {
			f.Phi.Internal[faceI] = phiHbyA.Internal[faceI].Sub(pFlux.Internal[faceI]).Passive()
		}
		for patchI := range f.Phi.Boundary {
			for i := range f.Phi.Boundary[patchI] {
				f.Phi.Boundary[patchI][i] = phiHbyA.Boundary[patchI][i].Sub(pFlux.Boundary[patchI][i]).Passive()
			}
		}
		var sumLocal, global float64
		for cellI, c := range fvc.Div(f.Phi) {
			sumLocal += m.V[cellI] * math.Abs(c.Val)
			global += m.V[cellI] * c.Val
		}
		r.ContinuityError = sumLocal / vTot

		for cellI, p := range f.P.Internal {
			f.P.Internal[cellI] = ad.Const(p0[cellI] + f.Ctl.RelaxP*(p.Val-p0[cellI]))
		}
		f.P.CorrectBoundaryConditions()
		gradp = fvc.Grad(f.P)
		for cellI, h := range HbyA.Internal {
			f.U.Internal[cellI] = h.Sub(gradp[cellI].Mul(rAU.Internal[cellI]))
		}
		f.U.CorrectBoundaryConditions()

		perfT, errT := f.Turbulence.Correct()
		if !tolerable(errT) {
			return r, errT
		}
		f.logPerf(perfT)

		maxRes := perfP.InitialResidual
		for _, sp := range perfU {
			maxRes = math.Max(maxRes, sp.InitialResidual)
		}
		r.InitialResiduals = append(r.InitialResiduals, maxRes)
		r.Iterations = iter + 1
		f.Log.Infof("Time = %d, continuity errors: sum local = %8.5e, global = %8.5e, ExecutionTime = %.3f s",
			iter+1, r.ContinuityError, global/vTot, time.Since(start).Seconds())
		if maxRes < tol {
			r.Converged = true
			f.Log.Infof("SIMPLE solution converged in %d iterations", r.Iterations)
			break
		}
	}
	return
}
