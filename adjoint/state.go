/*
Package adjoint solves the discrete adjoint of the steady incompressible flow
residual by a block Gauss-Seidel fixed point iteration. Transpose Jacobian
products come from a tape recorded once per solve, and each block update is
preconditioned by an approximate inverse transpose of its discretisation
operator.
*/
package adjoint

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
)

// State is one set of the four co-located flow blocks
type State struct {
	U       *fields.VolVectorField
	P       *fields.VolScalarField
	Phi     *fields.SurfaceScalarField
	NuTilda *fields.VolScalarField
}

// ZeroLike creates zeroed blocks carrying the boundary conditions of s. The
// block names are format applied to the names in s, "%sPsi" gives UPsi.
func (s *State) ZeroLike(format string) *State {
	return &State{
		U:       s.U.ZeroLike(fmt.Sprintf(format, s.U.Name)),
		P:       s.P.ZeroLike(fmt.Sprintf(format, s.P.Name)),
		Phi:     s.Phi.ZeroLike(fmt.Sprintf(format, s.Phi.Name)),
		NuTilda: s.NuTilda.ZeroLike(fmt.Sprintf(format, s.NuTilda.Name)),
	}
}

// Clone copies values and boundary conditions of every block
func (s *State) Clone(format string) *State {
	return &State{
		U:       s.U.Clone(fmt.Sprintf(format, s.U.Name)),
		P:       s.P.Clone(fmt.Sprintf(format, s.P.Name)),
		Phi:     s.Phi.Clone(fmt.Sprintf(format, s.Phi.Name)),
		NuTilda: s.NuTilda.Clone(fmt.Sprintf(format, s.NuTilda.Name)),
	}
}

/*
components lists every degree of freedom of s in flat vector order:

	U (3 per cell), p, phi internal faces, phi boundary faces patch by patch, nuTilda
*/
func (s *State) components() (c []*ad.Real) {
	nPhi := len(s.Phi.Internal)
	for _, b := range s.Phi.Boundary {
		nPhi += len(b)
	}
	c = make([]*ad.Real, 0, 3*len(s.U.Internal)+len(s.P.Internal)+nPhi+len(s.NuTilda.Internal))
	for cellI := range s.U.Internal {
		for cmpt := 0; cmpt < 3; cmpt++ {
			c = append(c, &s.U.Internal[cellI][cmpt])
		}
	}
	for cellI := range s.P.Internal {
		c = append(c, &s.P.Internal[cellI])
	}
	for faceI := range s.Phi.Internal {
		c = append(c, &s.Phi.Internal[faceI])
	}
	for patchI := range s.Phi.Boundary {
		for i := range s.Phi.Boundary[patchI] {
			c = append(c, &s.Phi.Boundary[patchI][i])
		}
	}
	for cellI := range s.NuTilda.Internal {
		c = append(c, &s.NuTilda.Internal[cellI])
	}
	return
}

// Assign sets every degree of freedom of s to scale times the one of o,
// the values are passive.
func (s *State) Assign(o *State, scale float64) {
	dst, src := s.components(), o.components()
	for i, r := range src {
		*dst[i] = ad.Const(scale * r.Val)
	}
}
