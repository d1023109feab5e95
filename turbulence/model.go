// Package turbulence provides the eddy viscosity models coupled to the
// incompressible flow solver. Every model carries a transported variable
// nuTilda, frozen for laminar flow.
package turbulence

import (
	"fmt"
	"strings"

	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvm"
)

type Controls struct {
	RelaxNuTildaEqn float64
	Solver          fvm.SolverControls
}

func DefaultControls() Controls {
	return Controls{
		RelaxNuTildaEqn: 0.7,
		Solver:          fvm.DefaultSolverControls("PBiCGStab"),
	}
}

type Model interface {
	Name() string
	NuEff() *fields.VolScalarField
	NuTilda() *fields.VolScalarField
	RefreshIntermediateVariables()
	CalcResidual(res *fields.VolScalarField)
	InvTranProd(src, pseudo *fields.VolScalarField) (fvm.SolverPerformance, error)
	Correct() (fvm.SolverPerformance, error)
}

// NewModel selects a model by name
func NewModel(name string, U *fields.VolVectorField, phi *fields.SurfaceScalarField,
	nuTilda *fields.VolScalarField, nu float64, ctl Controls) (Model, error) {
	switch strings.ToLower(name) {
	case "laminar", "":
		return NewLaminar(nuTilda, nu), nil
	case "spalartallmaras", "sa":
		return NewSpalartAllmaras(U, phi, nuTilda, nu, ctl), nil
	}
	return nil, fmt.Errorf("unknown turbulence model \"%s\", valid models are laminar and SpalartAllmaras", name)
}
