package cmd

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/fpadj/InputParameters"
	"github.com/notargets/fpadj/adjoint"
	"github.com/notargets/fpadj/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallCase() (cp *InputParameters.CaseParameters) {
	cp = InputParameters.NewCaseParameters()
	cp.Mesh.NX, cp.Mesh.NY = 8, 4
	cp.PrimalMaxIters = 30
	cp.AdjEqnOption.FPMaxIters = 5
	return
}

func TestNewCase(t *testing.T) {
	for _, model := range []string{"laminar", "SpalartAllmaras"} {
		cp := smallCase()
		cp.TurbulenceModel = model
		c, err := NewCase(cp, false)
		require.NoError(t, err, model)
		assert.Equal(t, 32, c.Mesh.NCells)
		inlet, bottom := c.Mesh.FindPatch("inlet"), c.Mesh.FindPatch("bottom")
		assert.Equal(t, [3]float64{1, 0, 0}, c.Flow.U.Boundary[inlet][0].Values())
		assert.Equal(t, [3]float64{}, c.Flow.U.Boundary[bottom][0].Values())
		nuTilda := c.Flow.Turbulence.NuTilda()
		assert.InDelta(t, 0.03, nuTilda.Boundary[inlet][0].Val, 1.e-15)
		assert.Equal(t, 0., nuTilda.Boundary[bottom][0].Val)
		assert.Equal(t, "totalPressureFlux", c.Objective.Name())

		pr, err := c.SolvePrimal()
		require.NoError(t, err, model)
		assert.Greater(t, pr.Iterations, 0)
		assert.LessOrEqual(t, pr.Iterations, 30)
		F, r, psi, err := c.SolveAdjoint()
		require.NoError(t, err, model)
		assert.False(t, math.IsNaN(F))
		assert.Equal(t, 5, r.Iterations)
		norms := adjoint.NewResidualNorms(psi)
		assert.Greater(t, norms.P, 0.)
		assert.False(t, math.IsNaN(norms.U[0]))
	}
}

func TestNewCaseErrors(t *testing.T) {
	for _, mod := range []func(cp *InputParameters.CaseParameters){
		func(cp *InputParameters.CaseParameters) { cp.TurbulenceModel = "kEpsilon" },
		func(cp *InputParameters.CaseParameters) { cp.Mesh.Walls = []string{"side"} },
		func(cp *InputParameters.CaseParameters) { cp.BCs["U"]["side"] = "fixedValue" },
		func(cp *InputParameters.CaseParameters) { cp.BCs["p"]["outlet"] = "periodic" },
		func(cp *InputParameters.CaseParameters) { cp.Objective.Type = "lift" },
		func(cp *InputParameters.CaseParameters) { cp.Objective.Patches = nil },
		func(cp *InputParameters.CaseParameters) { cp.AdjEqnOption.RelaxPhi = 0 },
		func(cp *InputParameters.CaseParameters) { cp.PRefCell = 32 },
		func(cp *InputParameters.CaseParameters) { cp.Nu = -1 },
	} {
		cp := smallCase()
		mod(cp)
		_, err := NewCase(cp, false)
		assert.Error(t, err)
	}
}

func TestSetFixedPatches(t *testing.T) {
	m := mesh.NewBoxMesh(4, 2, 1, 2, 1, 1)
	var (
		fixed = map[int]bool{}
		set   = func(patchI int, wall bool) { fixed[patchI] = wall }
	)
	require.NoError(t, setFixedPatches(m, map[string]string{
		"inlet": "fixedValue", "bottom": "wall", "outlet": "zeroGradient",
	}, set))
	assert.Equal(t, map[int]bool{m.FindPatch("inlet"): false, m.FindPatch("bottom"): true}, fixed)

	fixed = map[int]bool{}
	assert.Error(t, setFixedPatches(m, map[string]string{"inlet": "periodic"}, set))
	assert.Error(t, setFixedPatches(m, map[string]string{"side": "fixedValue"}, set))
	assert.Empty(t, fixed)
}

func TestAdjointCommand(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "case.yaml")
	require.NoError(t, os.WriteFile(fileName, []byte(`
Title: Short channel
Mesh: {nx: 6, ny: 3, lx: 1.5}
PrimalMaxIters: 10
Objective: {type: force, patches: [inlet], direction: [1, 0, 0]}
AdjEqnOption: {fpMaxIters: 3}
`), 0644))
	for _, command := range []string{"primal", "adjoint"} {
		rootCmd.SetArgs([]string{command, "-I", fileName})
		require.NotPanics(t, func() { require.NoError(t, rootCmd.Execute()) }, command)
	}
}
