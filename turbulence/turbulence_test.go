package turbulence

import (
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/fvc"
	"github.com/notargets/fpadj/fvm"
	"github.com/notargets/fpadj/mesh"
	"github.com/notargets/fpadj/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

const nu = 0.01

// channel is a sheared flow between the bottom and top walls
func channel(t *testing.T) (U *fields.VolVectorField, phi *fields.SurfaceScalarField, nuTilda *fields.VolScalarField) {
	m := mesh.NewBoxMesh(6, 4, 1, 3, 1, 0.25)
	bcU, err := fields.NewBCs(m, map[string]string{
		"inlet": "fixedValue", "bottom": "fixedValue", "top": "fixedValue"}, types.BC_ZeroGradient)
	require.NoError(t, err)
	U = fields.NewVolVectorField("U", m, bcU)
	for cellI, c := range m.C {
		y := c[1]
		U.Internal[cellI] = ad.ConstVec3([3]float64{4 * y * (1 - y), 0.05 * y, 0})
	}
	U.SetPatch(m.FindPatch("inlet"), [3]float64{1, 0, 0})
	U.CorrectBoundaryConditions()
	phi = fvc.Flux(U)
	nuTilda = fields.NewVolScalarField("nuTilda", m, bcU)
	nuTilda.SetUniform(3 * nu)
	nuTilda.SetPatch(m.FindPatch("bottom"), 0)
	nuTilda.SetPatch(m.FindPatch("top"), 0)
	rnd := rand.New(rand.NewSource(3))
	for cellI := range nuTilda.Internal {
		nuTilda.Internal[cellI] = ad.Const(nu * (1 + 4*rnd.Float64()))
	}
	nuTilda.CorrectBoundaryConditions()
	return
}

func residualNorm(model Model) float64 {
	res := model.NuTilda().ZeroLike("nuTildaRes")
	model.CalcResidual(res)
	return floats.Norm(res.Values(), 2)
}

func TestNewModel(t *testing.T) {
	U, phi, nuTilda := channel(t)
	model, err := NewModel("laminar", U, phi, nuTilda, nu, DefaultControls())
	require.NoError(t, err)
	assert.Equal(t, "laminar", model.Name())
	model, err = NewModel("SpalartAllmaras", U, phi, nuTilda, nu, DefaultControls())
	require.NoError(t, err)
	assert.Equal(t, "SpalartAllmaras", model.Name())
	_, err = NewModel("kEpsilon", U, phi, nuTilda, nu, DefaultControls())
	assert.Error(t, err)
}

func TestLaminar(t *testing.T) {
	U, phi, nuTilda := channel(t)
	model, err := NewModel("laminar", U, phi, nuTilda, nu, DefaultControls())
	require.NoError(t, err)
	for _, v := range model.NuEff().Values() {
		assert.Equal(t, nu, v)
	}
	assert.Equal(t, 0., residualNorm(model))
	nuTilda.Internal[2] = nuTilda.Internal[2].AddConst(0.5)
	res := nuTilda.ZeroLike("res")
	model.CalcResidual(res)
	assert.InDelta(t, 0.5, res.Internal[2].Val, 1.e-15)
	assert.Equal(t, 0., res.Internal[3].Val)

	src := nuTilda.ZeroLike("src")
	for i := range src.Internal {
		src.Internal[i] = ad.Const(float64(i))
	}
	pseudo := nuTilda.Clone("pseudo")
	_, err = model.InvTranProd(src, pseudo)
	require.NoError(t, err)
	assert.Equal(t, src.Values(), pseudo.Values())
	_, err = model.Correct()
	require.NoError(t, err)
}

func TestSpalartAllmarasViscosity(t *testing.T) {
	assert.InDelta(t, 3.2391, CW1, 1.e-4)
	U, phi, nuTilda := channel(t)
	sa := NewSpalartAllmaras(U, phi, nuTilda, nu, DefaultControls())
	for cellI, v := range nuTilda.Values() {
		chi3 := math.Pow(v/nu, 3)
		fv1 := chi3 / (chi3 + CV1Cubed)
		assert.InDelta(t, nu+v*fv1, sa.NuEff().Internal[cellI].Val, 1.e-14)
	}
	// Walls carry no eddy viscosity
	for _, v := range sa.NuEff().Boundary[nuTilda.Mesh.FindPatch("bottom")] {
		assert.Equal(t, nu, v.Val)
	}
	{ // A field free of nuTilda is an exact solution
		zero := nuTilda.ZeroLike("nuTilda")
		assert.Equal(t, 0., residualNorm(NewSpalartAllmaras(U, phi, zero, nu, DefaultControls())))
	}
}

func TestSpalartAllmarasResidualGradient(t *testing.T) {
	var (
		U, phi, nuTilda = channel(t)
		sa              = NewSpalartAllmaras(U, phi, nuTilda, nu, DefaultControls())
		n               = len(nuTilda.Internal)
		rnd             = rand.New(rand.NewSource(11))
		seed, dir       = make([]float64, n), make([]float64, n)
		nuTilda0        = nuTilda.Values()
		tape            = ad.NewTape()
	)
	for i := range seed {
		seed[i], dir[i] = rnd.Float64()-0.5, rnd.Float64()-0.5
	}
	tape.SetActive()
	for cellI := range nuTilda.Internal {
		tape.RegisterInput(&nuTilda.Internal[cellI])
	}
	nuTilda.CorrectBoundaryConditions()
	res := nuTilda.ZeroLike("nuTildaRes")
	sa.CalcResidual(res)
	for cellI := range res.Internal {
		tape.RegisterOutput(&res.Internal[cellI])
	}
	tape.SetPassive()
	for cellI, r := range res.Internal {
		tape.SetGradient(r, seed[cellI])
	}
	tape.Evaluate()
	var adj float64
	for cellI, v := range nuTilda.Internal {
		adj += tape.Gradient(v) * dir[cellI]
	}

	weighted := func(eps float64) float64 {
		x := make([]float64, n)
		floats.AddScaledTo(x, nuTilda0, eps, dir)
		nuTilda.SetValues(x)
		nuTilda.CorrectBoundaryConditions()
		r := nuTilda.ZeroLike("nuTildaRes")
		sa.CalcResidual(r)
		return floats.Dot(seed, r.Values())
	}
	eps := 1.e-7
	fd := (weighted(eps) - weighted(-eps)) / (2 * eps)
	assert.InDelta(t, fd, adj, 1.e-5*math.Max(1, math.Abs(fd)))
}

func TestSpalartAllmarasInvTranProd(t *testing.T) {
	U, phi, nuTilda := channel(t)
	ctl := DefaultControls()
	ctl.Solver = fvm.SolverControls{Solver: "PBiCGStab", Tolerance: 1.e-12, MaxIter: 500}
	sa := NewSpalartAllmaras(U, phi, nuTilda, nu, ctl)
	src := nuTilda.ZeroLike("src")
	rnd := rand.New(rand.NewSource(5))
	for i := range src.Internal {
		src.Internal[i] = ad.Const(rnd.Float64() - 0.5)
	}
	pseudo := nuTilda.Clone("pseudoNuTilda")
	_, err := sa.InvTranProd(src, pseudo)
	require.NoError(t, err)

	// The solution satisfies the transposed relaxed system
	M := sa.nuTildaEqn(pseudo, false)
	M.Relax(ctl.RelaxNuTildaEqn)
	A := M.ToCSR(ad.Values(M.D()), "nuTildaEqn")
	lhs := A.MulVec(pseudo.Values(), true)
	for i, v := range src.Values() {
		assert.InDelta(t, v, lhs[i], 1.e-8)
	}
}

func TestSpalartAllmarasCorrect(t *testing.T) {
	U, phi, nuTilda := channel(t)
	sa := NewSpalartAllmaras(U, phi, nuTilda, nu, DefaultControls())
	initial := residualNorm(sa)
	for iter := 0; iter < 100; iter++ {
		_, err := sa.Correct()
		require.NoError(t, err)
	}
	assert.Less(t, residualNorm(sa), initial)
	for _, v := range nuTilda.Values() {
		assert.GreaterOrEqual(t, v, 0.)
	}
}
