package turbulence

import (
	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvm"
	"github.com/notargets/fpadj/types"
)

// Laminar holds nuTilda fixed at its initial value, its residual is
// nuTilda - nuTilda0 and its inverse transpose is the identity.
type Laminar struct {
	nuEff    *fields.VolScalarField
	nuTilda  *fields.VolScalarField
	nuTilda0 []float64
}

func NewLaminar(nuTilda *fields.VolScalarField, nu float64) (l *Laminar) {
	m := nuTilda.Mesh
	l = &Laminar{
		nuEff:    fields.NewVolScalarField("nuEff", m, fields.UniformBCs(m, types.BC_Calculated)),
		nuTilda:  nuTilda,
		nuTilda0: nuTilda.Values(),
	}
	l.nuEff.SetUniform(nu)
	return
}

func (l *Laminar) Name() string { return "laminar" }

func (l *Laminar) NuEff() *fields.VolScalarField { return l.nuEff }

func (l *Laminar) NuTilda() *fields.VolScalarField { return l.nuTilda }

func (l *Laminar) RefreshIntermediateVariables() {}

func (l *Laminar) CalcResidual(res *fields.VolScalarField) {
	for cellI, v := range l.nuTilda.Internal {
		res.Internal[cellI] = v.AddConst(-l.nuTilda0[cellI])
	}
}

func (l *Laminar) InvTranProd(src, pseudo *fields.VolScalarField) (perf fvm.SolverPerformance, err error) {
	for cellI, v := range src.Internal {
		pseudo.Internal[cellI] = ad.Const(v.Val)
	}
	pseudo.CorrectBoundaryConditions()
	perf = fvm.SolverPerformance{Solver: "diagonal", FieldName: pseudo.Name}
	return
}

func (l *Laminar) Correct() (perf fvm.SolverPerformance, err error) {
	perf = fvm.SolverPerformance{Solver: "none", FieldName: l.nuTilda.Name}
	return
}
