package fvc

import (
	"testing"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/mesh"
	"github.com/notargets/fpadj/types"
	"github.com/stretchr/testify/assert"
)

func linear(x [3]float64) float64 { return 2*x[0] + 3*x[1] - x[2] }

func TestGrad(t *testing.T) {
	m := mesh.NewBoxMesh(3, 3, 2, 1, 1.5, 0.5)
	{ // Gauss gradient of a linear field with exact patch values
		p := fields.NewVolScalarField("p", m, fields.UniformBCs(m, types.BC_FixedValue))
		for cellI := range p.Internal {
			p.Internal[cellI] = ad.Const(linear(m.C[cellI]))
		}
		for patchI, pt := range m.Patches {
			for i := range p.Boundary[patchI] {
				p.Boundary[patchI][i] = ad.Const(linear(m.Cf[pt.Start+i]))
			}
		}
		for _, g := range Grad(p) {
			v := g.Values()
			assert.InDeltaSlice(t, []float64{2, 3, -1}, v[:], 1.e-12)
		}
	}
	{ // Gradient of U = (x, 0, 0) keeps d Ux/dx = 1 on the patches
		U := fields.NewVolVectorField("U", m, fields.UniformBCs(m, types.BC_FixedValue))
		for cellI := range U.Internal {
			U.Internal[cellI] = ad.ConstVec3([3]float64{m.C[cellI][0], 0, 0})
		}
		for patchI, pt := range m.Patches {
			for i := range U.Boundary[patchI] {
				U.Boundary[patchI][i] = ad.ConstVec3([3]float64{m.Cf[pt.Start+i][0], 0, 0})
			}
		}
		internal, boundary := GradVector(U)
		for _, g := range internal {
			assert.InDelta(t, 1., g[0].Val, 1.e-12)
			assert.InDelta(t, 0., g[1].Val, 1.e-12)
		}
		for patchI := range boundary {
			for _, g := range boundary[patchI] {
				assert.InDelta(t, 1., g[0].Val, 1.e-12)
				assert.InDelta(t, 0., g[3].Val, 1.e-12)
			}
		}
		// div(U) = 1
		for _, d := range Div(Flux(U)) {
			assert.InDelta(t, 1., d.Val, 1.e-12)
		}
		// The divergence of a uniform tensor field vanishes
		var T ad.Tensor
		for i := range T {
			T[i] = ad.Const(float64(i))
		}
		tInt := make([]ad.Tensor, m.NCells)
		for i := range tInt {
			tInt[i] = T
		}
		tB := make([][]ad.Tensor, m.NPatches())
		for patchI, pt := range m.Patches {
			tB[patchI] = make([]ad.Tensor, pt.Size)
			for i := range tB[patchI] {
				tB[patchI][i] = T
			}
		}
		for _, d := range DivTensor(m, tInt, tB) {
			v := d.Values()
			assert.InDeltaSlice(t, []float64{0, 0, 0}, v[:], 1.e-11)
		}
	}
}
