package adjoint

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

/*
linearToy is the residual R = J W of a fixed sparse J, with every block
diagonally dominant and weakly coupled to the others:

	U:       4 on the diagonal, -1 to the x neighbours, 0.1 to p of the cell
	p:       2 on the diagonal, -0.5 to p of the next cell, 0.1 to U of the cell
	phi:    -1 on the diagonal, 0.05 to p of the face owner
	nuTilda: 2 on the diagonal, -0.5 to nuTilda of the previous cell, 0.05 to Ux

The block inverse transposes are exact dense solves.
*/
type linearToy struct {
	state *State
	idx   *StateIndexer
	J     *mat.Dense
}

func newLinearToy(t *testing.T) (toy *linearToy) {
	m := mesh.NewBoxMesh(5, 1, 1, 5, 1, 1)
	toy = &linearToy{state: newState(m), idx: NewStateIndexer(m)}
	var (
		idx = toy.idx
		n   = idx.NLocalAdjointStates
		nc  = m.NCells
		J   = mat.NewDense(n, n, nil)
		iU  = func(c, k int) int { return idx.LocalAdjointStateIndex(StateU, c, k) }
		iP  = func(c int) int { return idx.LocalAdjointStateIndex(StateP, c) }
		iNT = func(c int) int { return idx.LocalAdjointStateIndex(StateNuTilda, c) }
	)
	require.Equal(t, 51, n)
	for c := 0; c < nc; c++ {
		for k := 0; k < 3; k++ {
			J.Set(iU(c, k), iU(c, k), 4)
			if c > 0 {
				J.Set(iU(c, k), iU(c-1, k), -1)
			}
			if c < nc-1 {
				J.Set(iU(c, k), iU(c+1, k), -1)
			}
			J.Set(iU(c, k), iP(c), 0.1)
		}
		J.Set(iP(c), iP(c), 2)
		if c < nc-1 {
			J.Set(iP(c), iP(c+1), -0.5)
		}
		for k := 0; k < 3; k++ {
			J.Set(iP(c), iU(c, k), 0.1)
		}
		J.Set(iNT(c), iNT(c), 2)
		if c > 0 {
			J.Set(iNT(c), iNT(c-1), -0.5)
		}
		J.Set(iNT(c), iU(c, 0), 0.05)
	}
	for faceI := 0; faceI < m.NFaces; faceI++ {
		i := idx.LocalAdjointStateIndex(StatePhi, faceI)
		J.Set(i, i, -1)
		J.Set(i, iP(m.Owner[faceI]), 0.05)
	}
	toy.J = J
	return
}

func (toy *linearToy) State() *State { return toy.state }

func (toy *linearToy) PrepareRecording() {}

func (toy *linearToy) CalcAllResiduals(res *State) {
	var (
		w      = toy.state.components()
		r      = res.components()
		n, _   = toy.J.Dims()
		jRow   = make([]float64, n)
		target ad.Real
	)
	for i := range r {
		mat.Row(jRow, i, toy.J)
		target = ad.Real{}
		for j, a := range jRow {
			if a != 0 {
				target = target.Add(w[j].Scale(a))
			}
		}
		*r[i] = target
	}
}

// blockSolve solves J[i0:i1,i0:i1]^T x = b
func (toy *linearToy) blockSolve(i0, i1 int, b []float64) []float64 {
	var x mat.VecDense
	if err := x.SolveVec(toy.J.Slice(i0, i1, i0, i1).T(), mat.NewVecDense(len(b), b)); err != nil {
		panic(err)
	}
	return x.RawVector().Data
}

func (toy *linearToy) InvTranProdU(src, pseudo *fields.VolVectorField) error {
	b := make([]float64, 0, 3*len(src.Internal))
	for _, v := range src.Internal {
		b = append(b, v[0].Val, v[1].Val, v[2].Val)
	}
	i0 := toy.idx.LocalAdjointStateIndex(StateU, 0, 0)
	x := toy.blockSolve(i0, i0+len(b), b)
	for cellI := range pseudo.Internal {
		pseudo.Internal[cellI] = ad.ConstVec3([3]float64{x[3*cellI], x[3*cellI+1], x[3*cellI+2]})
	}
	return nil
}

func (toy *linearToy) scalarBlock(name string, src, pseudo *fields.VolScalarField) error {
	b := src.Values()
	i0 := toy.idx.LocalAdjointStateIndex(name, 0)
	pseudo.SetValues(toy.blockSolve(i0, i0+len(b), b))
	return nil
}

func (toy *linearToy) InvTranProdP(src, pseudo *fields.VolScalarField) error {
	return toy.scalarBlock(StateP, src, pseudo)
}

func (toy *linearToy) InvTranProdNuTilda(src, pseudo *fields.VolScalarField) error {
	return toy.scalarBlock(StateNuTilda, src, pseudo)
}

func toyOptions() (opts Options) {
	opts = DefaultOptions()
	opts.RelaxPhi = 0.7
	opts.FPMaxIters = 50
	return
}

func TestFixedPointConvergence(t *testing.T) {
	var (
		toy = newLinearToy(t)
		n   = toy.idx.NLocalAdjointStates
		rnd = rand.New(rand.NewSource(7))
		dF  = randomVec(n, rnd)
		psi = make([]float64, n)
		out bytes.Buffer
	)
	d := NewDriver(toy, ad.NewTape(), toyOptions(), true)
	d.Log.SetOutput(&out)
	r, err := d.RunFPAdj(dF, psi)
	require.NoError(t, err)
	assert.True(t, r.Converged)
	assert.Less(t, r.Iterations, 50)
	assert.Equal(t, "fixedPoint", r.Method)
	assert.Contains(t, out.String(), "Residual drop of 1e-06 has been achieved!")

	var want mat.VecDense
	require.NoError(t, want.SolveVec(toy.J.T(), mat.NewVecDense(n, dF)))
	assert.InDeltaSlice(t, want.RawVector().Data, psi, 1.e-5)

	// The first normalized entry is the baseline itself, the last one is
	// below the tolerance
	require.Len(t, r.Norms, r.Iterations-1)
	assert.Equal(t, 1., r.Norms[0].P)
	assert.Equal(t, 1., r.Norms[0].Phi)
	assert.Equal(t, [3]float64{1, 1, 1}, r.Norms[0].U)
	// nuTilda only couples to itself in the transpose, one sweep solves it and
	// its baseline is roundoff measured against dFdW
	assert.Less(t, r.Norms[0].NuTilda, RoundoffTol)
	last := r.Norms[len(r.Norms)-1]
	assert.True(t, last.Below(1.e-6))
	assert.Less(t, last.Phi, r.Norms[0].Phi)
	for k := 1; k < len(r.Norms); k++ {
		prev, cur := r.Norms[k-1].values(), r.Norms[k].values()
		for i := range cur {
			if prev[i] < 1.e-10 {
				continue
			}
			assert.LessOrEqual(t, cur[i], 1.01*prev[i], "sweep %d, norm %d", k+1, i)
		}
	}
}

func TestFixedPointIterationLimit(t *testing.T) {
	var (
		toy = newLinearToy(t)
		n   = toy.idx.NLocalAdjointStates
		dF  = randomVec(n, rand.New(rand.NewSource(8)))
	)
	{ // A single sweep has no normalized norms, psi still carries the sweep
		opts := toyOptions()
		opts.FPMaxIters = 1
		psi := make([]float64, n)
		r, err := NewDriver(toy, ad.NewTape(), opts, false).RunFPAdj(dF, psi)
		require.NoError(t, err)
		assert.False(t, r.Converged)
		assert.Equal(t, 1, r.Iterations)
		assert.Empty(t, r.Norms)
		assert.Greater(t, math.Abs(psi[0]), 0.)
	}
	{ // Without sweeps psi stays zero
		opts := toyOptions()
		opts.FPMaxIters = 0
		psi := randomVec(n, rand.New(rand.NewSource(9)))
		r, err := NewDriver(toy, ad.NewTape(), opts, false).RunFPAdj(dF, psi)
		require.NoError(t, err)
		assert.Equal(t, 0, r.Iterations)
		assert.Equal(t, make([]float64, n), psi)
	}
	{ // Loose tolerances stop early
		opts := toyOptions()
		opts.FPRelTol = 0.5
		psi := make([]float64, n)
		r, err := NewDriver(toy, ad.NewTape(), opts, false).RunFPAdj(dF, psi)
		require.NoError(t, err)
		assert.True(t, r.Converged)
		assert.Less(t, r.Iterations, 10)
	}
}

func TestFixedPointOptions(t *testing.T) {
	var (
		toy = newLinearToy(t)
		n   = toy.idx.NLocalAdjointStates
		dF  = randomVec(n, rand.New(rand.NewSource(12)))
	)
	{
		opts := toyOptions()
		opts.AdjEqnSolMethod = "newtonKrylov"
		_, err := NewDriver(toy, ad.NewTape(), opts, false).RunFPAdj(dF, make([]float64, n))
		assert.True(t, errors.Is(err, ErrUnknownMethod))
	}
	{ // The coloured variant is accepted and leaves psi at zero
		opts := toyOptions()
		opts.AdjEqnSolMethod = "fixedPointC"
		psi := randomVec(n, rand.New(rand.NewSource(13)))
		r, err := NewDriver(toy, ad.NewTape(), opts, false).RunFPAdj(dF, psi)
		require.NoError(t, err)
		assert.Equal(t, 0, r.Iterations)
		assert.Equal(t, make([]float64, n), psi)
	}
	{
		_, err := NewDriver(toy, ad.NewTape(), toyOptions(), false).RunFPAdj(dF[1:], make([]float64, n))
		assert.True(t, errors.Is(err, ErrSizeMismatch))
		_, err = NewDriver(toy, ad.NewTape(), toyOptions(), false).RunFPAdj(dF, make([]float64, n+1))
		assert.True(t, errors.Is(err, ErrSizeMismatch))
	}
	for _, mod := range []func(o *Options){
		func(o *Options) { o.RelaxU = 0 },
		func(o *Options) { o.RelaxP = 1.5 },
		func(o *Options) { o.RelaxPhi = -0.1 },
		func(o *Options) { o.RelaxNuTilda = math.NaN() },
		func(o *Options) { o.FPMaxIters = -1 },
		func(o *Options) { o.FPRelTol = 0 },
	} {
		opts := toyOptions()
		mod(&opts)
		assert.Error(t, opts.Validate())
		_, err := NewDriver(toy, ad.NewTape(), opts, false).RunFPAdj(dF, make([]float64, n))
		assert.Error(t, err)
	}
	assert.NoError(t, DefaultOptions().Validate())
}

func TestFixedPointChannel(t *testing.T) {
	f := channelFlow(t, "SpalartAllmaras", true)
	_, err := f.SolvePrimal(20, 1.e-8)
	require.NoError(t, err)
	obj, err := NewTotalPressureFlux(f.Mesh, "inlet", "outlet")
	require.NoError(t, err)
	var (
		tape    = ad.NewTape()
		_, dFdW = ObjectiveGradient(tape, f, obj)
		psi     = make([]float64, len(dFdW))
		opts    = DefaultOptions()
		out     bytes.Buffer
	)
	opts.FPMaxIters = 3
	opts.CheckTranspose = true
	d := NewDriver(f, tape, opts, true)
	d.Log.SetOutput(&out)
	r, err := d.RunFPAdj(dFdW, psi)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Iterations)
	assert.Len(t, r.Norms, 2)
	assert.Contains(t, out.String(), "Transpose defect")
	var nonZero bool
	for _, v := range psi {
		require.False(t, math.IsNaN(v))
		nonZero = nonZero || v != 0
	}
	assert.True(t, nonZero)
}
