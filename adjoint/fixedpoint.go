package adjoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/utils"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownMethod = errors.New("unknown adjoint equation solution method")
	ErrSizeMismatch  = errors.New("adjoint vector size does not match the mesh")
)

// InverseTranspose approximately applies the inverse transpose of each
// block's discretisation operator to src.
type InverseTranspose interface {
	InvTranProdU(src, pseudo *fields.VolVectorField) error
	InvTranProdP(src, pseudo *fields.VolScalarField) error
	InvTranProdNuTilda(src, pseudo *fields.VolScalarField) error
}

type Model interface {
	Differentiable
	InverseTranspose
}

// TransposeChecker is implemented by models that can measure the error of the
// lower/upper swap against the exact transpose.
type TransposeChecker interface {
	TransposeDefect() (dU, dp float64)
}

type Options struct {
	AdjEqnSolMethod string
	FPMaxIters      int
	RelaxU          float64
	RelaxP          float64
	RelaxPhi        float64
	RelaxNuTilda    float64
	FPRelTol        float64
	CheckTranspose  bool
}

func DefaultOptions() Options {
	return Options{
		AdjEqnSolMethod: "fixedPoint",
		FPMaxIters:      1000,
		RelaxU:          1,
		RelaxP:          1,
		RelaxPhi:        1,
		RelaxNuTilda:    1,
		FPRelTol:        1.e-6,
	}
}

func (o Options) Validate() (err error) {
	for _, r := range []struct {
		name string
		val  float64
	}{{"relaxU", o.RelaxU}, {"relaxP", o.RelaxP}, {"relaxPhi", o.RelaxPhi}, {"relaxNuTilda", o.RelaxNuTilda}} {
		if !(r.val > 0 && r.val <= 1) {
			return fmt.Errorf("relaxation factor %s = %g is outside (0,1]", r.name, r.val)
		}
	}
	switch {
	case o.FPMaxIters < 0:
		err = fmt.Errorf("fpMaxIters = %d must not be negative", o.FPMaxIters)
	case !(o.FPRelTol > 0):
		err = fmt.Errorf("fpRelTol = %g must be positive", o.FPRelTol)
	}
	return
}

type Result struct {
	Method     string
	Iterations int
	Converged  bool
	// Norms holds the normalized adjoint residual norms from the second
	// sweep on, the first entry is all ones.
	Norms []ResidualNorms
}

func (r Result) String() string {
	return fmt.Sprintf("%s: iterations = %d, converged = %v", r.Method, r.Iterations, r.Converged)
}

type Driver struct {
	Model   Model
	Indexer *StateIndexer
	Tape    *ad.Tape
	Options Options
	Log     *logrus.Logger
}

func NewDriver(model Model, tape *ad.Tape, opts Options, verbose bool) *Driver {
	return &Driver{
		Model:   model,
		Indexer: NewStateIndexer(model.State().U.Mesh),
		Tape:    tape,
		Options: opts,
		Log:     utils.NewLogger(verbose),
	}
}

func (d *Driver) logf(format string, args ...interface{}) {
	d.Log.Infof(format, args...)
}

func (d *Driver) subSolve(name string, err error) error {
	if tolerable(err) {
		if err != nil {
			d.Log.Warnf("%s: %v, continuing", name, err)
		}
		return nil
	}
	return fmt.Errorf("inverse transpose product for %s: %w", name, err)
}

/*
RunFPAdj solves (dR/dW)^T psi = dFdW by block Gauss-Seidel sweeps over U, p,
phi and nuTilda, in that order. Each block update is

	psi_X -= relaxX * M_X^-T adjXRes     for U, p and nuTilda
	psi_phi += relaxPhi * adjphiRes

with the adjoint residual recomputed before every block. The loop ends when all
residual norms normalized by those of the second sweep fall below FPRelTol, or
after FPMaxIters sweeps. psi receives the result in both cases. Blocks whose
second sweep residual is already at roundoff are measured against the largest
norm of dFdW instead.
*/
func (d *Driver) RunFPAdj(dFdW, psi []float64) (r Result, err error) {
	var (
		opts = d.Options
		n    = d.Indexer.NLocalAdjointStates
	)
	r.Method = opts.AdjEqnSolMethod
	if len(dFdW) != n || len(psi) != n {
		err = fmt.Errorf("%w: len(dFdW) = %d, len(psi) = %d, adjoint states = %d",
			ErrSizeMismatch, len(dFdW), len(psi), n)
		return
	}
	for i := range psi {
		psi[i] = 0
	}
	switch opts.AdjEqnSolMethod {
	case "fixedPoint":
	case "fixedPointC":
		return
	default:
		err = fmt.Errorf("%w \"%s\", valid methods are fixedPoint and fixedPointC", ErrUnknownMethod, opts.AdjEqnSolMethod)
		return
	}
	if err = opts.Validate(); err != nil {
		return
	}
	d.logf("Solving the adjoint using fixed-point iteration method...")

	var (
		state   = d.Model.State()
		dFdWs   = state.ZeroLike("dFd%s")
		psiS    = state.ZeroLike("%sPsi")
		adjRes  = state.ZeroLike("adj%sRes")
		res     = state.ZeroLike("%sRes")
		pseudo  = state.Clone("pseudo%s")
		op      = NewTapeOperator(d.Tape, d.Model)
		initial ResidualNorms
		ref     float64
		start   = time.Now()
	)
	if err = d.Indexer.Vec2Fields("vec2Field", dFdW, dFdWs); err != nil {
		return
	}
	ref = NewResidualNorms(dFdWs).Max()
	d.Model.CalcAllResiduals(res)
	d.logf("Residual of the primal: %v", NewResidualNorms(res))
	if tc, ok := d.Model.(TransposeChecker); ok && opts.CheckTranspose {
		dU, dp := tc.TransposeDefect()
		d.logf("Transpose defect of the swapped operators: U = %8.5e, p = %8.5e", dU, dp)
	}

	for cnt := 0; cnt < opts.FPMaxIters; cnt++ {
		d.logf("Step = %d  Execution Time: %.3f s", cnt, time.Since(start).Seconds())

		op.CalcAdjointResidual(dFdWs, psiS, adjRes, cnt)
		if err = d.subSolve("U", d.Model.InvTranProdU(adjRes.U, pseudo.U)); err != nil {
			return
		}
		for cellI, v := range pseudo.U.Internal {
			psiS.U.Internal[cellI] = psiS.U.Internal[cellI].Sub(v.Scale(opts.RelaxU))
		}

		op.CalcAdjointResidual(dFdWs, psiS, adjRes, cnt)
		if err = d.subSolve("p", d.Model.InvTranProdP(adjRes.P, pseudo.P)); err != nil {
			return
		}
		for cellI, v := range pseudo.P.Internal {
			psiS.P.Internal[cellI] = psiS.P.Internal[cellI].Sub(v.Scale(opts.RelaxP))
		}

		op.CalcAdjointResidual(dFdWs, psiS, adjRes, cnt)
		for faceI, v := range adjRes.Phi.Internal {
			psiS.Phi.Internal[faceI] = psiS.Phi.Internal[faceI].Add(v.Scale(opts.RelaxPhi))
		}
		for patchI := range adjRes.Phi.Boundary {
			for i, v := range adjRes.Phi.Boundary[patchI] {
				psiS.Phi.Boundary[patchI][i] = psiS.Phi.Boundary[patchI][i].Add(v.Scale(opts.RelaxPhi))
			}
		}

		op.CalcAdjointResidual(dFdWs, psiS, adjRes, cnt)
		if err = d.subSolve("nuTilda", d.Model.InvTranProdNuTilda(adjRes.NuTilda, pseudo.NuTilda)); err != nil {
			return
		}
		for cellI, v := range pseudo.NuTilda.Internal {
			psiS.NuTilda.Internal[cellI] = psiS.NuTilda.Internal[cellI].Sub(v.Scale(opts.RelaxNuTilda))
		}
		r.Iterations = cnt + 1

		if cnt < 1 {
			continue
		}
		norms := NewResidualNorms(adjRes)
		utils.IsNanPanic("adjoint residual norms", norms.values())
		if cnt == 1 {
			initial = norms
		}
		normalized := norms.Normalize(initial, ref)
		r.Norms = append(r.Norms, normalized)
		d.logf("Normalized L2 norm of adjoint residuals: %v", normalized)
		if normalized.Below(opts.FPRelTol) {
			d.logf("Residual drop of %g has been achieved!", opts.FPRelTol)
			r.Converged = true
			break
		}
	}

	err = d.Indexer.Vec2Fields("field2Vec", psi, psiS)
	d.logf("%v", r)
	d.logf("%s", utils.GetMemUsage())
	return
}
