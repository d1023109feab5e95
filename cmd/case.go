/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/notargets/fpadj/InputParameters"
	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/adjoint"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvc"
	"github.com/notargets/fpadj/fvm"
	"github.com/notargets/fpadj/mesh"
	"github.com/notargets/fpadj/turbulence"
	"github.com/notargets/fpadj/types"
)

const exampleFile = `
########################################
Title: "Channel"
Mesh: {nx: 20, ny: 10, nz: 1, lx: 2., ly: 1., lz: 0.1, walls: [bottom, top]}
Nu: 0.01
TurbulenceModel: laminar # Can be "SpalartAllmaras"
BCs:
  U: {inlet: fixedValue, bottom: wall, top: wall}
  p: {outlet: fixedValue}
  nuTilda: {inlet: fixedValue, bottom: wall, top: wall}
InletU: [1., 0., 0.]
PrimalMaxIters: 500
Objective: {type: totalPressureFlux, patches: [inlet, outlet]}
AdjEqnOption: {adjEqnSolMethod: fixedPoint, fpMaxIters: 200, fpRelTol: 1.e-6}
########################################
`

// Case is the flow of a box channel set up from the case parameters
type Case struct {
	Params    *InputParameters.CaseParameters
	Mesh      *mesh.Mesh
	Flow      *adjoint.SimpleFlow
	Objective adjoint.Objective
	Options   adjoint.Options
	Verbose   bool
}

func solverControls(sp InputParameters.SolverParameters) fvm.SolverControls {
	return fvm.SolverControls{Solver: sp.Solver, Tolerance: sp.Tolerance, MaxIter: sp.MaxIter}
}

// setFixedPatches calls set for every fixed value patch in byName
func setFixedPatches(m *mesh.Mesh, byName map[string]string, set func(patchI int, wall bool)) (err error) {
	for name, bcName := range byName {
		var bc types.BCFLAG
		if bc, err = types.NewBCFLAG(bcName); err != nil {
			return fmt.Errorf("patch %s: %w", name, err)
		}
		patchI := m.FindPatch(name)
		if patchI < 0 {
			return fmt.Errorf("boundary condition given for unknown patch \"%s\"", name)
		}
		if bc.Fixes() {
			set(patchI, strings.EqualFold(bcName, "wall"))
		}
	}
	return
}

func NewCase(cp *InputParameters.CaseParameters, verbose bool) (c *Case, err error) {
	if err = cp.Validate(); err != nil {
		return
	}
	mp := cp.Mesh
	m := mesh.NewBoxMesh(mp.NX, mp.NY, mp.NZ, mp.LX, mp.LY, mp.LZ)
	if err = m.SetWalls(mp.Walls...); err != nil {
		return
	}
	if cp.PRefCell < 0 || cp.PRefCell >= m.NCells {
		return nil, fmt.Errorf("pressure reference cell %d is outside the mesh of %d cells", cp.PRefCell, m.NCells)
	}
	var bcU, bcP, bcNuTilda fields.BCs
	if bcU, err = fields.NewBCs(m, cp.BCs["U"], types.BC_ZeroGradient); err != nil {
		return
	}
	if bcP, err = fields.NewBCs(m, cp.BCs["p"], types.BC_ZeroGradient); err != nil {
		return
	}
	if bcNuTilda, err = fields.NewBCs(m, cp.BCs["nuTilda"], types.BC_ZeroGradient); err != nil {
		return
	}

	U := fields.NewVolVectorField("U", m, bcU)
	U.SetUniform(cp.InletU)
	if err = setFixedPatches(m, cp.BCs["U"], func(patchI int, wall bool) {
		if wall {
			U.SetPatch(patchI, [3]float64{})
		}
	}); err != nil {
		return
	}
	p := fields.NewVolScalarField("p", m, bcP)
	nuTilda := fields.NewVolScalarField("nuTilda", m, bcNuTilda)
	nuTilda.SetUniform(cp.InitialNuTilda)
	if err = setFixedPatches(m, cp.BCs["nuTilda"], func(patchI int, wall bool) {
		if wall {
			nuTilda.SetPatch(patchI, 0)
		} else {
			nuTilda.SetPatch(patchI, cp.InletNuTilda)
		}
	}); err != nil {
		return
	}
	phi := fvc.Flux(U)
	phi.Name = "phi"

	turb, err := turbulence.NewModel(cp.TurbulenceModel, U, phi, nuTilda, cp.Nu, turbulence.Controls{
		RelaxNuTildaEqn: cp.RelaxNuTildaEqn,
		Solver:          solverControls(cp.Solver("nuTilda")),
	})
	if err != nil {
		return
	}
	c = &Case{Params: cp, Mesh: m, Verbose: verbose}
	c.Flow = adjoint.NewSimpleFlow(U, p, phi, turb, adjoint.FlowControls{
		RelaxUEqn: cp.RelaxUEqn,
		RelaxP:    cp.RelaxP,
		PRefCell:  cp.PRefCell,
		PRefValue: cp.PRefValue,
		USolver:   solverControls(cp.Solver("U")),
		PSolver:   solverControls(cp.Solver("p")),
	}, verbose)
	ob := cp.Objective
	if c.Objective, err = adjoint.NewObjective(ob.Type, m, ob.Direction, ob.Patches...); err != nil {
		return nil, err
	}
	ao := cp.AdjEqnOption
	c.Options = adjoint.Options{
		AdjEqnSolMethod: ao.AdjEqnSolMethod,
		FPMaxIters:      ao.FPMaxIters,
		RelaxU:          ao.RelaxU,
		RelaxP:          ao.RelaxP,
		RelaxPhi:        ao.RelaxPhi,
		RelaxNuTilda:    ao.RelaxNuTilda,
		FPRelTol:        ao.FPRelTol,
		CheckTranspose:  ao.CheckTranspose,
	}
	if err = c.Options.Validate(); err != nil {
		return nil, err
	}
	if verbose {
		fmt.Println(m)
	}
	return
}

func (c *Case) SolvePrimal() (adjoint.PrimalResult, error) {
	return c.Flow.SolvePrimal(c.Params.PrimalMaxIters, c.Params.PrimalTol)
}

// SolveAdjoint solves the adjoint of the objective at the current flow state
func (c *Case) SolveAdjoint() (F float64, r adjoint.Result, psi *adjoint.State, err error) {
	var (
		tape    = ad.NewTape()
		dFdW    []float64
		idx     = adjoint.NewStateIndexer(c.Mesh)
		psiFlat = make([]float64, idx.NLocalAdjointStates)
	)
	F, dFdW = adjoint.ObjectiveGradient(tape, c.Flow, c.Objective)
	d := adjoint.NewDriver(c.Flow, tape, c.Options, c.Verbose)
	if r, err = d.RunFPAdj(dFdW, psiFlat); err != nil {
		return
	}
	c.Flow.Log.Info(tape.Stats())
	psi = c.Flow.State().ZeroLike("%sPsi")
	idx.FromFlat(psiFlat, psi)
	return
}

// readCase reads the case file, printing an example when none is given
func readCase(fileName string) (cp *InputParameters.CaseParameters) {
	if len(fileName) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		panic(err)
	}
	cp = InputParameters.NewCaseParameters()
	if err = cp.Parse(data); err != nil {
		panic(err)
	}
	return
}
