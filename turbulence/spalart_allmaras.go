package turbulence

import (
	"errors"
	"math"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvc"
	"github.com/notargets/fpadj/fvm"
	"github.com/notargets/fpadj/linsolve"
	"github.com/notargets/fpadj/types"
)

const (
	CB1        = 0.1355
	Sigma      = 2.0 / 3.0
	CB2        = 0.622
	Kappa      = 0.41
	K2         = Kappa * Kappa
	CW2        = 0.3
	CW3        = 2
	CV1        = 7.1
	CV1Cubed   = CV1 * CV1 * CV1
	CW3Sixthed = CW3 * CW3 * CW3 * CW3 * CW3 * CW3
	CW1        = CB1/K2 + (1+CB2)/Sigma
	Cs         = 0.3
	SMALL      = 1.e-15
)

/*
SpalartAllmaras is the one equation model without the ft2 trip term:

	div(phi, nuTilda) - div((nuTilda + nu)/Sigma grad(nuTilda)) - CB2/Sigma |grad(nuTilda)|^2
		= CB1 Stilda nuTilda - CW1 fw nuTilda^2/y^2

	Stilda = max(Omega + fv2 nuTilda/(K2 y^2), Cs Omega), Omega = sqrt(2) |skew(grad(U))|
	nut = nuTilda fv1
*/
type SpalartAllmaras struct {
	U       *fields.VolVectorField
	Phi     *fields.SurfaceScalarField
	Nu      float64
	ctl     Controls
	nuTilda *fields.VolScalarField
	nut     *fields.VolScalarField
	nuEff   *fields.VolScalarField
}

func NewSpalartAllmaras(U *fields.VolVectorField, phi *fields.SurfaceScalarField,
	nuTilda *fields.VolScalarField, nu float64, ctl Controls) (sa *SpalartAllmaras) {
	m := nuTilda.Mesh
	sa = &SpalartAllmaras{
		U:       U,
		Phi:     phi,
		Nu:      nu,
		ctl:     ctl,
		nuTilda: nuTilda,
		nut:     fields.NewVolScalarField("nut", m, fields.UniformBCs(m, types.BC_Calculated)),
		nuEff:   fields.NewVolScalarField("nuEff", m, fields.UniformBCs(m, types.BC_Calculated)),
	}
	sa.RefreshIntermediateVariables()
	return
}

func (sa *SpalartAllmaras) Name() string { return "SpalartAllmaras" }

func (sa *SpalartAllmaras) NuEff() *fields.VolScalarField { return sa.nuEff }

func (sa *SpalartAllmaras) NuTilda() *fields.VolScalarField { return sa.nuTilda }

func (sa *SpalartAllmaras) fv1(nuTilda ad.Real) ad.Real {
	chi3 := nuTilda.Scale(1. / sa.Nu).PowInt(3)
	return chi3.Div(chi3.AddConst(CV1Cubed))
}

func (sa *SpalartAllmaras) fv2(nuTilda, fv1 ad.Real) ad.Real {
	chi := nuTilda.Scale(1. / sa.Nu)
	return ad.Const(1).Sub(chi.Div(chi.Mul(fv1).AddConst(1)))
}

func (sa *SpalartAllmaras) fw(nuTilda, Stilda ad.Real, y float64) ad.Real {
	r := nuTilda.Div(Stilda.MaxConst(SMALL).Scale(K2 * y * y)).MinConst(10)
	g := r.Add(r.PowInt(6).Sub(r).Scale(CW2))
	return g.Mul(g.PowInt(6).AddConst(CW3Sixthed).Inv().Scale(1 + CW3Sixthed).Pow(1. / 6.))
}

// RefreshIntermediateVariables recomputes nut and nuEff from nuTilda
func (sa *SpalartAllmaras) RefreshIntermediateVariables() {
	for cellI, v := range sa.nuTilda.Internal {
		sa.nut.Internal[cellI] = v.Mul(sa.fv1(v))
		sa.nuEff.Internal[cellI] = sa.nut.Internal[cellI].AddConst(sa.Nu)
	}
	for patchI := range sa.nuTilda.Boundary {
		for i, v := range sa.nuTilda.Boundary[patchI] {
			sa.nut.Boundary[patchI][i] = v.Mul(sa.fv1(v))
			sa.nuEff.Boundary[patchI][i] = sa.nut.Boundary[patchI][i].AddConst(sa.Nu)
		}
	}
}

// dnuTildaEff is the face diffusivity (nuTilda + nu)/Sigma
func (sa *SpalartAllmaras) dnuTildaEff() *fields.SurfaceScalarField {
	d := sa.nuTilda.Clone("DnuTildaEff")
	for cellI, v := range d.Internal {
		d.Internal[cellI] = v.AddConst(sa.Nu).Scale(1. / Sigma)
	}
	for patchI := range d.Boundary {
		for i, v := range d.Boundary[patchI] {
			d.Boundary[patchI][i] = v.AddConst(sa.Nu).Scale(1. / Sigma)
		}
	}
	return fields.Interpolate(d)
}

// stilda is the modified vorticity, destruction is CW1 fw nuTilda/y^2
func (sa *SpalartAllmaras) stilda() (Stilda, destruction []ad.Real) {
	var (
		gradU, _ = fvc.GradVector(sa.U)
		nCells   = len(sa.nuTilda.Internal)
	)
	Stilda = make([]ad.Real, nCells)
	destruction = make([]ad.Real, nCells)
	for cellI, v := range sa.nuTilda.Internal {
		var (
			y     = sa.nuTilda.Mesh.WallDist[cellI]
			omega = gradU[cellI].MagSkew().Scale(math.Sqrt2)
			fv2   = sa.fv2(v, sa.fv1(v))
		)
		Stilda[cellI] = ad.Max(omega.Add(fv2.Mul(v).Scale(1./(K2*y*y))), omega.Scale(Cs))
		destruction[cellI] = sa.fw(v, Stilda[cellI], y).Mul(v).Scale(CW1 / (y * y))
	}
	return
}

// nuTildaEqn assembles the transport equation for psi with coefficients from
// the current nuTilda. Explicit sources are included when withSources is set.
func (sa *SpalartAllmaras) nuTildaEqn(psi *fields.VolScalarField, withSources bool) (M *fvm.ScalarMatrix) {
	Stilda, destruction := sa.stilda()
	M = fvm.Div(sa.Phi, psi).Sub(fvm.Laplacian(sa.dnuTildaEff(), psi))
	M.Sp(destruction)
	if !withSources {
		return
	}
	var (
		gradNuTilda = fvc.Grad(sa.nuTilda)
		su          = make([]ad.Real, len(Stilda))
	)
	for cellI, v := range sa.nuTilda.Internal {
		su[cellI] = gradNuTilda[cellI].MagSqr().Scale(CB2 / Sigma).Add(Stilda[cellI].Mul(v).Scale(CB1))
	}
	M.AddRHS(su)
	return
}

func (sa *SpalartAllmaras) CalcResidual(res *fields.VolScalarField) {
	M := sa.nuTildaEqn(sa.nuTilda, true)
	copy(res.Internal, M.Residual())
}

func (sa *SpalartAllmaras) InvTranProd(src, pseudo *fields.VolScalarField) (perf fvm.SolverPerformance, err error) {
	M := sa.nuTildaEqn(pseudo, false)
	M.Relax(sa.ctl.RelaxNuTildaEqn)
	M.ApproximateTranspose()
	M.ReplaceSource(src.Internal)
	M.SubtractBoundarySource()
	for cellI := range pseudo.Internal {
		pseudo.Internal[cellI] = ad.Real{}
	}
	return M.Solve(sa.ctl.Solver)
}

// Correct solves the transport equation, bounds nuTilda at zero and updates
// the viscosities.
func (sa *SpalartAllmaras) Correct() (perf fvm.SolverPerformance, err error) {
	M := sa.nuTildaEqn(sa.nuTilda, true)
	M.Relax(sa.ctl.RelaxNuTildaEqn)
	if perf, err = M.Solve(sa.ctl.Solver); err != nil && !errors.Is(err, linsolve.ErrIterationLimit) {
		return
	}
	for cellI, v := range sa.nuTilda.Internal {
		sa.nuTilda.Internal[cellI] = v.MaxConst(0)
	}
	sa.nuTilda.CorrectBoundaryConditions()
	sa.RefreshIntermediateVariables()
	return
}
