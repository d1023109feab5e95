package adjoint

import (
	"fmt"

	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/utils"
	"gonum.org/v1/gonum/floats"
)

// L2NormScalar is the L2 norm of the cell values divided by the cell volumes
func L2NormScalar(f *fields.VolScalarField) float64 {
	v := make([]float64, len(f.Internal))
	for cellI, r := range f.Internal {
		v[cellI] = r.Val / f.Mesh.V[cellI]
	}
	return floats.Norm(v, 2)
}

// L2NormVector is L2NormScalar taken component by component
func L2NormVector(f *fields.VolVectorField) (norm [3]float64) {
	v := make([]float64, len(f.Internal))
	for cmpt := 0; cmpt < 3; cmpt++ {
		for cellI, r := range f.Internal {
			v[cellI] = r[cmpt].Val / f.Mesh.V[cellI]
		}
		norm[cmpt] = floats.Norm(v, 2)
	}
	return
}

// L2NormSurface is the L2 norm over the internal and boundary faces
func L2NormSurface(f *fields.SurfaceScalarField) float64 {
	v := make([]float64, 0, f.Mesh.NFaces)
	for _, r := range f.Internal {
		v = append(v, r.Val)
	}
	for _, b := range f.Boundary {
		for _, r := range b {
			v = append(v, r.Val)
		}
	}
	return floats.Norm(v, 2)
}

type ResidualNorms struct {
	U               [3]float64
	P, Phi, NuTilda float64
}

func NewResidualNorms(s *State) ResidualNorms {
	return ResidualNorms{
		U:       L2NormVector(s.U),
		P:       L2NormScalar(s.P),
		Phi:     L2NormSurface(s.Phi),
		NuTilda: L2NormScalar(s.NuTilda),
	}
}

func (rn ResidualNorms) values() []float64 {
	return []float64{rn.U[0], rn.U[1], rn.U[2], rn.P, rn.Phi, rn.NuTilda}
}

// RoundoffTol is the fraction of the reference norm below which a baseline norm
// is taken as roundoff
const RoundoffTol = 1.e-12

/*
Normalize divides by the baseline norms. A baseline at or below RoundoffTol*ref
belongs to a block already solved to roundoff, those components are divided by
ref instead so that a later growth of the block still shows. With ref zero
every component is zero.
*/
func (rn ResidualNorms) Normalize(base ResidualNorms, ref float64) (n ResidualNorms) {
	div := func(a, b float64) float64 {
		if b <= RoundoffTol*ref {
			b = ref
		}
		return utils.SafeDivide(a, b)
	}
	for i := range rn.U {
		n.U[i] = div(rn.U[i], base.U[i])
	}
	n.P = div(rn.P, base.P)
	n.Phi = div(rn.Phi, base.Phi)
	n.NuTilda = div(rn.NuTilda, base.NuTilda)
	return
}

// Max is the largest component
func (rn ResidualNorms) Max() float64 {
	return floats.Max(rn.values())
}

// Below reports whether every component is below tol
func (rn ResidualNorms) Below(tol float64) bool {
	return utils.AllBelow(tol, rn.values()...)
}

func (rn ResidualNorms) String() string {
	return fmt.Sprintf("U: %8.5e %8.5e %8.5e, p: %8.5e, phi: %8.5e, nuTilda: %8.5e",
		rn.U[0], rn.U[1], rn.U[2], rn.P, rn.Phi, rn.NuTilda)
}
