package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Bent channel
Mesh:
  nx: 12
  ny: 6
  lx: 3.
  walls: [bottom]
Nu: 1.e-3
TurbulenceModel: SpalartAllmaras
BCs:
  U:
    inlet: fixedValue
    bottom: wall
    top: zeroGradient
  p:
    outlet: fixedValue
Solvers:
  p:
    solver: PBiCGStab
    tolerance: 1.e-10
    maxIter: 200
Objective:
  type: force
  patches: [bottom]
  direction: [0, 1, 0]
AdjEqnOption:
  fpMaxIters: 200
  relaxPhi: 0.8
  checkTranspose: true
`)
	cp := NewCaseParameters()
	require.NoError(t, cp.Parse(fileInput))
	assert.Equal(t, "Bent channel", cp.Title)
	assert.Equal(t, 12, cp.Mesh.NX)
	assert.Equal(t, 3., cp.Mesh.LX)
	// Missing keys keep the defaults
	assert.Equal(t, 1, cp.Mesh.NZ)
	assert.Equal(t, 1., cp.Mesh.LY)
	assert.Equal(t, []string{"bottom"}, cp.Mesh.Walls)
	assert.Equal(t, 1.e-3, cp.Nu)
	assert.Equal(t, "SpalartAllmaras", cp.TurbulenceModel)
	assert.Equal(t, "zeroGradient", cp.BCs["U"]["top"])
	assert.Equal(t, "wall", cp.BCs["nuTilda"]["bottom"])
	assert.Equal(t, 200, cp.Solver("p").MaxIter)
	assert.Equal(t, 1.e-10, cp.Solver("p").Tolerance)
	assert.Equal(t, "PBiCGStab", cp.Solver("U").Solver)
	assert.Equal(t, "PBiCGStab", cp.Solver("T").Solver)
	assert.Equal(t, [3]float64{0, 1, 0}, cp.Objective.Direction)
	assert.Equal(t, "fixedPoint", cp.AdjEqnOption.AdjEqnSolMethod)
	assert.Equal(t, 200, cp.AdjEqnOption.FPMaxIters)
	assert.Equal(t, 0.8, cp.AdjEqnOption.RelaxPhi)
	assert.Equal(t, 1., cp.AdjEqnOption.RelaxU)
	assert.True(t, cp.AdjEqnOption.CheckTranspose)
	cp.Print()
}

func TestValidate(t *testing.T) {
	for _, input := range []string{
		"Mesh: {nx: 0}",
		"Mesh: {lz: -1}",
		"Nu: 0",
		"PrimalMaxIters: -3",
		"BCs: {T: {inlet: fixedValue}}",
	} {
		assert.Error(t, NewCaseParameters().Parse([]byte(input)), input)
	}
	assert.Error(t, NewCaseParameters().Parse([]byte("Mesh: [1, 2]")))
	assert.NoError(t, NewCaseParameters().Validate())
}
