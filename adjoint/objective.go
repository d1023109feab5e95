package adjoint

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/mesh"
)

// Objective is a scalar function of the flow state
type Objective interface {
	Name() string
	Calc(s *State) ad.Real
}

func findPatches(m *mesh.Mesh, names []string) (patches []int, err error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("objective needs at least one patch")
	}
	for _, name := range names {
		patchI := m.FindPatch(name)
		if patchI < 0 {
			return nil, fmt.Errorf("unable to find objective patch \"%s\"", name)
		}
		patches = append(patches, patchI)
	}
	return
}

// PatchForce is the pressure force on the patches along Direction, sum(p Sf . dir)
type PatchForce struct {
	Direction [3]float64
	patches   []int
}

func NewPatchForce(m *mesh.Mesh, dir [3]float64, patches ...string) (pf *PatchForce, err error) {
	pf = &PatchForce{Direction: dir}
	pf.patches, err = findPatches(m, patches)
	return
}

func (pf *PatchForce) Name() string { return "force" }

func (pf *PatchForce) Calc(s *State) (F ad.Real) {
	m := s.P.Mesh
	for _, patchI := range pf.patches {
		start := m.Patches[patchI].Start
		for i, p := range s.P.Boundary[patchI] {
			sf := m.Sf[start+i]
			F = F.Add(p.Scale(sf[0]*pf.Direction[0] + sf[1]*pf.Direction[1] + sf[2]*pf.Direction[2]))
		}
	}
	return
}

// TotalPressureFlux is the flux of total pressure through the patches,
// sum((p + 0.5|U|^2) phi)
type TotalPressureFlux struct {
	patches []int
}

func NewTotalPressureFlux(m *mesh.Mesh, patches ...string) (tp *TotalPressureFlux, err error) {
	tp = &TotalPressureFlux{}
	tp.patches, err = findPatches(m, patches)
	return
}

func (tp *TotalPressureFlux) Name() string { return "totalPressureFlux" }

func (tp *TotalPressureFlux) Calc(s *State) (F ad.Real) {
	for _, patchI := range tp.patches {
		for i, phi := range s.Phi.Boundary[patchI] {
			p0 := s.P.Boundary[patchI][i].Add(s.U.Boundary[patchI][i].MagSqr().Scale(0.5))
			F = F.Add(p0.Mul(phi))
		}
	}
	return
}

// NewObjective selects an objective by name
func NewObjective(name string, m *mesh.Mesh, dir [3]float64, patches ...string) (Objective, error) {
	switch name {
	case "force":
		return NewPatchForce(m, dir, patches...)
	case "totalPressureFlux":
		return NewTotalPressureFlux(m, patches...)
	}
	return nil, fmt.Errorf("unknown objective \"%s\", valid objectives are force and totalPressureFlux", name)
}

// ObjectiveGradient records obj at the state of model and returns its value
// and dF/dW in flat vector order.
func ObjectiveGradient(tape *ad.Tape, model Differentiable, obj Objective) (F float64, dFdW []float64) {
	var (
		s   = model.State()
		idx = NewStateIndexer(s.U.Mesh)
	)
	tape.Reset()
	tape.SetActive()
	inputs := s.components()
	for _, r := range inputs {
		tape.RegisterInput(r)
	}
	model.PrepareRecording()
	f := obj.Calc(s)
	tape.RegisterOutput(&f)
	tape.SetPassive()

	tape.SetGradient(f, 1)
	tape.Evaluate()
	grad := s.ZeroLike("dFd%s")
	for i, r := range grad.components() {
		*r = ad.Const(tape.Gradient(*inputs[i]))
	}
	tape.ClearAdjoints()
	dFdW = make([]float64, idx.NLocalAdjointStates)
	idx.ToFlat(grad, dFdW)
	return f.Val, dFdW
}
