package adjoint

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/mesh"
)

const (
	StateU       = "U"
	StateP       = "p"
	StatePhi     = "phi"
	StateNuTilda = "nuTilda"
)

/*
StateIndexer maps the flat adjoint vector onto the state blocks, state by state:

	[ U: 3*cell+cmpt | p: cell | phi: face | nuTilda: cell ]

Faces are numbered as in the mesh, internal faces first and then the boundary
faces patch by patch.
*/
type StateIndexer struct {
	NLocalCells         int
	NLocalInternalFaces int
	NLocalFaces         int
	NLocalAdjointStates int
	// patch and face within the patch of boundary face NLocalInternalFaces+i
	BFacePatchI, BFaceFaceI []int
	patchSizes              []int
	offsets                 map[string]int
}

func NewStateIndexer(m *mesh.Mesh) (si *StateIndexer) {
	si = &StateIndexer{
		NLocalCells:         m.NCells,
		NLocalInternalFaces: m.NInternalFaces,
		NLocalFaces:         m.NFaces,
		BFacePatchI:         make([]int, m.NBoundaryFaces()),
		BFaceFaceI:          make([]int, m.NBoundaryFaces()),
	}
	for patchI, p := range m.Patches {
		si.patchSizes = append(si.patchSizes, p.Size)
		for i := 0; i < p.Size; i++ {
			relI := p.Start + i - m.NInternalFaces
			si.BFacePatchI[relI], si.BFaceFaceI[relI] = patchI, i
		}
	}
	nc := m.NCells
	si.offsets = map[string]int{
		StateU:       0,
		StateP:       3 * nc,
		StatePhi:     4 * nc,
		StateNuTilda: 4*nc + m.NFaces,
	}
	si.NLocalAdjointStates = 5*nc + m.NFaces
	return
}

// FaceToPatch resolves a boundary face into its patch and local face index
func (si *StateIndexer) FaceToPatch(faceI int) (patchI, localFaceI int) {
	if faceI < si.NLocalInternalFaces || faceI >= si.NLocalFaces {
		panic(fmt.Errorf("face %d is not a boundary face", faceI))
	}
	relI := faceI - si.NLocalInternalFaces
	return si.BFacePatchI[relI], si.BFaceFaceI[relI]
}

// LocalAdjointStateIndex is the flat index of component cmpt of state name at
// cell or face idx, cmpt is ignored for the scalar states.
func (si *StateIndexer) LocalAdjointStateIndex(name string, idx int, cmpt ...int) int {
	offset, ok := si.offsets[name]
	if !ok {
		panic(fmt.Errorf("unknown adjoint state \"%s\"", name))
	}
	if name == StateU {
		if len(cmpt) != 1 || cmpt[0] < 0 || cmpt[0] > 2 {
			panic(fmt.Errorf("state U needs one component in [0,2], have %v", cmpt))
		}
		return offset + 3*idx + cmpt[0]
	}
	return offset + idx
}

func (si *StateIndexer) checkSizes(vec []float64, s *State) {
	if len(vec) != si.NLocalAdjointStates {
		panic(fmt.Errorf("adjoint vector length %d does not match the number of adjoint states %d",
			len(vec), si.NLocalAdjointStates))
	}
	mismatch := len(s.U.Internal) != si.NLocalCells || len(s.P.Internal) != si.NLocalCells ||
		len(s.NuTilda.Internal) != si.NLocalCells || len(s.Phi.Internal) != si.NLocalInternalFaces ||
		len(s.Phi.Boundary) != len(si.patchSizes)
	for patchI := 0; !mismatch && patchI < len(si.patchSizes); patchI++ {
		mismatch = len(s.Phi.Boundary[patchI]) != si.patchSizes[patchI]
	}
	if mismatch {
		panic(fmt.Errorf("state blocks do not match the mesh, cells = %d, faces = %d",
			si.NLocalCells, si.NLocalFaces))
	}
}

// ToFlat writes the blocks of s into vec
func (si *StateIndexer) ToFlat(s *State, vec []float64) {
	si.checkSizes(vec, s)
	for cellI := 0; cellI < si.NLocalCells; cellI++ {
		for cmpt := 0; cmpt < 3; cmpt++ {
			vec[si.LocalAdjointStateIndex(StateU, cellI, cmpt)] = s.U.Internal[cellI][cmpt].Val
		}
		vec[si.LocalAdjointStateIndex(StateP, cellI)] = s.P.Internal[cellI].Val
		vec[si.LocalAdjointStateIndex(StateNuTilda, cellI)] = s.NuTilda.Internal[cellI].Val
	}
	for faceI := 0; faceI < si.NLocalFaces; faceI++ {
		idx := si.LocalAdjointStateIndex(StatePhi, faceI)
		if faceI < si.NLocalInternalFaces {
			vec[idx] = s.Phi.Internal[faceI].Val
			continue
		}
		patchI, i := si.FaceToPatch(faceI)
		vec[idx] = s.Phi.Boundary[patchI][i].Val
	}
}

// FromFlat reads vec into the blocks of s as passive values
func (si *StateIndexer) FromFlat(vec []float64, s *State) {
	si.checkSizes(vec, s)
	for cellI := 0; cellI < si.NLocalCells; cellI++ {
		for cmpt := 0; cmpt < 3; cmpt++ {
			s.U.Internal[cellI][cmpt] = ad.Const(vec[si.LocalAdjointStateIndex(StateU, cellI, cmpt)])
		}
		s.P.Internal[cellI] = ad.Const(vec[si.LocalAdjointStateIndex(StateP, cellI)])
		s.NuTilda.Internal[cellI] = ad.Const(vec[si.LocalAdjointStateIndex(StateNuTilda, cellI)])
	}
	for faceI := 0; faceI < si.NLocalFaces; faceI++ {
		val := ad.Const(vec[si.LocalAdjointStateIndex(StatePhi, faceI)])
		if faceI < si.NLocalInternalFaces {
			s.Phi.Internal[faceI] = val
			continue
		}
		patchI, i := si.FaceToPatch(faceI)
		s.Phi.Boundary[patchI][i] = val
	}
}

// Vec2Fields moves data between vec and s, mode is "vec2Field" or "field2Vec"
func (si *StateIndexer) Vec2Fields(mode string, vec []float64, s *State) (err error) {
	switch mode {
	case "vec2Field":
		si.FromFlat(vec, s)
	case "field2Vec":
		si.ToFlat(s, vec)
	default:
		err = fmt.Errorf("invalid mode \"%s\", valid modes are vec2Field and field2Vec", mode)
	}
	return
}
