package adjoint

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"gonum.org/v1/gonum/floats"
)

// Differentiable is a residual that can be recorded on a tape
type Differentiable interface {
	// State returns the blocks the residual is evaluated at, they are
	// registered in place as tape inputs.
	State() *State
	// PrepareRecording re-evaluates everything derived from the state
	PrepareRecording()
	CalcAllResiduals(res *State)
}

/*
TapeOperator evaluates adjoint residuals of a Differentiable:

	adjRes = -dFdW + (dR/dW)^T psi

The residual is recorded on the tape by the call with cnt == 0 and replayed
with new seeds by every later call.
*/
type TapeOperator struct {
	Model Differentiable
	Tape  *ad.Tape
	res   *State
}

func NewTapeOperator(tape *ad.Tape, model Differentiable) *TapeOperator {
	return &TapeOperator{Model: model, Tape: tape}
}

func (op *TapeOperator) record() {
	var (
		tape = op.Tape
		s    = op.Model.State()
	)
	if op.res == nil {
		op.res = s.ZeroLike("%sRes")
	}
	tape.Reset()
	tape.SetActive()
	for _, r := range s.components() {
		tape.RegisterInput(r)
	}
	op.Model.PrepareRecording()
	op.Model.CalcAllResiduals(op.res)
	for _, r := range op.res.components() {
		tape.RegisterOutput(r)
	}
	tape.SetPassive()
}

func (op *TapeOperator) CalcAdjointResidual(dFdW, psi, adjRes *State, cnt int) {
	adjRes.Assign(dFdW, -1)
	if cnt == 0 {
		op.record()
	} else if op.res == nil || !op.Tape.IsRecorded() {
		panic(fmt.Errorf("adjoint residual replayed at cnt = %d before it was recorded", cnt))
	}
	var (
		tape   = op.Tape
		seeds  = psi.components()
		adj    = adjRes.components()
		inputs = op.Model.State().components()
	)
	for i, r := range op.res.components() {
		tape.SetGradient(*r, seeds[i].Val)
	}
	tape.Evaluate()
	for i, r := range inputs {
		*adj[i] = ad.Const(adj[i].Val + tape.Gradient(*r))
	}
	tape.ClearAdjoints()
}

/*
DotProductTest checks the recorded transpose against the residual itself:

	fd  = w . (R(W+eps v) - R(W-eps v))/(2 eps)
	rev = (dR/dW^T w) . v

The state is restored before returning.
*/
func DotProductTest(tape *ad.Tape, model Differentiable, w, v []float64, eps float64) (fd, rev float64) {
	var (
		s   = model.State()
		idx = NewStateIndexer(s.U.Mesh)
		n   = idx.NLocalAdjointStates
		w0  = make([]float64, n)
		res = s.ZeroLike("%sRes")
	)
	idx.ToFlat(s, w0)
	residual := func(h float64) (r []float64) {
		x := make([]float64, n)
		floats.AddScaledTo(x, w0, h, v)
		idx.FromFlat(x, s)
		model.PrepareRecording()
		model.CalcAllResiduals(res)
		r = make([]float64, n)
		idx.ToFlat(res, r)
		return
	}
	rp, rm := residual(eps), residual(-eps)
	floats.Sub(rp, rm)
	fd = floats.Dot(w, rp) / (2 * eps)

	idx.FromFlat(w0, s)
	var (
		zero   = s.ZeroLike("dFd%s")
		psi    = s.ZeroLike("%sPsi")
		adjRes = s.ZeroLike("adj%sRes")
		g      = make([]float64, n)
	)
	idx.FromFlat(w, psi)
	NewTapeOperator(tape, model).CalcAdjointResidual(zero, psi, adjRes, 0)
	idx.ToFlat(adjRes, g)
	rev = floats.Dot(g, v)
	model.PrepareRecording()
	return
}
