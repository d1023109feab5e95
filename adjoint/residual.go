package adjoint

import (
	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvc"
	"github.com/notargets/fpadj/fvm"
	"github.com/notargets/fpadj/mesh"
	"github.com/notargets/fpadj/types"
	"github.com/notargets/fpadj/utils"
	"github.com/sirupsen/logrus"
)

// TurbulenceModel supplies the effective viscosity and the nuTilda block
type TurbulenceModel interface {
	Name() string
	NuEff() *fields.VolScalarField
	NuTilda() *fields.VolScalarField
	RefreshIntermediateVariables()
	CalcResidual(res *fields.VolScalarField)
	InvTranProd(src, pseudo *fields.VolScalarField) (fvm.SolverPerformance, error)
	Correct() (fvm.SolverPerformance, error)
}

type FlowControls struct {
	RelaxUEqn float64 // implicit relaxation of the momentum matrix
	RelaxP    float64 // explicit relaxation of the pressure, primal only
	PRefCell  int
	PRefValue float64
	USolver   fvm.SolverControls
	PSolver   fvm.SolverControls
}

func DefaultFlowControls() FlowControls {
	return FlowControls{
		RelaxUEqn: 0.7,
		RelaxP:    0.3,
		USolver:   fvm.DefaultSolverControls("PBiCGStab"),
		PSolver:   fvm.DefaultSolverControls("PCG"),
	}
}

/*
SimpleFlow is the steady incompressible flow of the SIMPLE algorithm. The
fields are shared with the turbulence model, they are updated in place.

	UEqn:  div(phi, U) - laplacian(nuEff, U) - div(nuEff dev2(T(grad(U)))) == -grad(p)
	pEqn:  laplacian(rAU, p) == div(phiHbyA)
	phi = phiHbyA - pEqn.flux()
*/
type SimpleFlow struct {
	Mesh       *mesh.Mesh
	U          *fields.VolVectorField
	P          *fields.VolScalarField
	Phi        *fields.SurfaceScalarField
	Turbulence TurbulenceModel
	Ctl        FlowControls
	Log        *logrus.Logger
}

func NewSimpleFlow(U *fields.VolVectorField, p *fields.VolScalarField, phi *fields.SurfaceScalarField,
	turbulence TurbulenceModel, ctl FlowControls, verbose bool) (f *SimpleFlow) {
	f = &SimpleFlow{
		Mesh:       U.Mesh,
		U:          U,
		P:          p,
		Phi:        phi,
		Turbulence: turbulence,
		Ctl:        ctl,
		Log:        utils.NewLogger(verbose),
	}
	f.Log.Infof("SIMPLE flow, turbulence model = %s, cells = %d, faces = %d",
		turbulence.Name(), f.Mesh.NCells, f.Mesh.NFaces)
	return
}

func (f *SimpleFlow) State() *State {
	return &State{U: f.U, P: f.P, Phi: f.Phi, NuTilda: f.Turbulence.NuTilda()}
}

// PrepareRecording propagates the state into the patches and the turbulence
// intermediates, so that they depend on the registered inputs.
func (f *SimpleFlow) PrepareRecording() {
	f.U.CorrectBoundaryConditions()
	f.P.CorrectBoundaryConditions()
	f.Turbulence.NuTilda().CorrectBoundaryConditions()
	f.Turbulence.RefreshIntermediateVariables()
}

func (f *SimpleFlow) logPerf(perf ...fvm.SolverPerformance) {
	for _, sp := range perf {
		f.Log.Info(sp)
	}
}

// momentumMatrix is the implicit part of UEqn for psi with the coefficients of
// the current flux and viscosity
func (f *SimpleFlow) momentumMatrix(psi *fields.VolVectorField) *fvm.VectorMatrix {
	nuEff := fields.Interpolate(f.Turbulence.NuEff())
	return fvm.DivVector(f.Phi, psi).Sub(fvm.LaplacianVector(nuEff, psi))
}

// divDevReff is div(nuEff dev2(T(grad(U)))) per unit volume
func (f *SimpleFlow) divDevReff() []ad.Vec3 {
	var (
		nuEff        = f.Turbulence.NuEff()
		gInt, gBound = fvc.GradVector(f.U)
	)
	for cellI, g := range gInt {
		gInt[cellI] = g.T().Dev2().Mul(nuEff.Internal[cellI])
	}
	for patchI := range gBound {
		for i, g := range gBound[patchI] {
			gBound[patchI][i] = g.T().Dev2().Mul(nuEff.Boundary[patchI][i])
		}
	}
	return fvc.DivTensor(f.Mesh, gInt, gBound)
}

// momentumEqn is UEqn without the pressure gradient
func (f *SimpleFlow) momentumEqn() (UEqn *fvm.VectorMatrix) {
	UEqn = f.momentumMatrix(f.U)
	UEqn.AddRHS(f.divDevReff())
	return
}

// rAU is 1/A of the momentum matrix, extrapolated to the patches
func (f *SimpleFlow) rAU(UEqn *fvm.VectorMatrix) (rAU *fields.VolScalarField) {
	rAU = fields.NewVolScalarField("rAU", f.Mesh, fields.UniformBCs(f.Mesh, types.BC_ZeroGradient))
	for cellI, a := range UEqn.A() {
		rAU.Internal[cellI] = a.Inv()
	}
	rAU.CorrectBoundaryConditions()
	return
}

// HbyA is rAU*H, patches fixing U keep the value of U
func (f *SimpleFlow) HbyA(UEqn *fvm.VectorMatrix, rAU *fields.VolScalarField) (HbyA *fields.VolVectorField) {
	HbyA = f.U.Clone("HbyA")
	for cellI, h := range UEqn.H() {
		HbyA.Internal[cellI] = h.Mul(rAU.Internal[cellI])
	}
	HbyA.CorrectBoundaryConditions()
	return
}

func (f *SimpleFlow) pressureEqn(rAU *fields.VolScalarField, phiHbyA *fields.SurfaceScalarField,
	psi *fields.VolScalarField) (pEqn *fvm.ScalarMatrix) {
	pEqn = fvm.Laplacian(fields.Interpolate(rAU), psi)
	if phiHbyA != nil {
		pEqn.AddRHS(fvc.Div(phiHbyA))
	}
	return
}

/*
CalcLduResiduals evaluates the momentum, pressure and flux residuals at the
current state:

	URes   = UEqn residual + V grad(p), before relaxation
	pRes   = pEqn residual, with rAU from the relaxed UEqn
	phiRes = phiHbyA - pEqn.flux() - phi
*/
func (f *SimpleFlow) CalcLduResiduals(URes *fields.VolVectorField, pRes *fields.VolScalarField,
	phiRes *fields.SurfaceScalarField) {
	var (
		UEqn  = f.momentumEqn()
		gradp = fvc.Grad(f.P)
	)
	for cellI, r := range UEqn.Residual() {
		URes.Internal[cellI] = r.Add(gradp[cellI].Scale(f.Mesh.V[cellI]))
	}
	URes.CorrectBoundaryConditions()

	UEqn.Relax(f.Ctl.RelaxUEqn)
	var (
		rAU     = f.rAU(UEqn)
		phiHbyA = fvc.Flux(f.HbyA(UEqn, rAU))
		pEqn    = f.pressureEqn(rAU, phiHbyA, f.P)
	)
	copy(pRes.Internal, pEqn.Residual())
	pRes.CorrectBoundaryConditions()

	pFlux := pEqn.Flux()
	for faceI := range phiRes.Internal {
		phiRes.Internal[faceI] = phiHbyA.Internal[faceI].Sub(pFlux.Internal[faceI]).Sub(f.Phi.Internal[faceI])
	}
	for patchI := range phiRes.Boundary {
		for i := range phiRes.Boundary[patchI] {
			phiRes.Boundary[patchI][i] = phiHbyA.Boundary[patchI][i].Sub(pFlux.Boundary[patchI][i]).
				Sub(f.Phi.Boundary[patchI][i])
		}
	}
}

// CalcAllResiduals adds the turbulence residual to CalcLduResiduals
func (f *SimpleFlow) CalcAllResiduals(res *State) {
	f.CalcLduResiduals(res.U, res.P, res.Phi)
	f.Turbulence.CalcResidual(res.NuTilda)
}
