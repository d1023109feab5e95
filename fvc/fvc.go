// Package fvc evaluates explicit finite volume operators (Gauss theorem with
// linear face interpolation) on active fields.
package fvc

import (
	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/fields"
	"github.com/notargets/fpadj/mesh"
)

// Grad is the Gauss gradient of a scalar field
func Grad(vf *fields.VolScalarField) (grad []ad.Vec3) {
	var (
		m  = vf.Mesh
		sf = fields.Interpolate(vf)
	)
	grad = make([]ad.Vec3, m.NCells)
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		flux := vecScale(m.Sf[faceI], sf.Internal[faceI])
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		grad[own] = grad[own].Add(flux)
		grad[nei] = grad[nei].Sub(flux)
	}
	for patchI, p := range m.Patches {
		for i, cellI := range m.FaceCells(patchI) {
			grad[cellI] = grad[cellI].Add(vecScale(m.Sf[p.Start+i], sf.Boundary[patchI][i]))
		}
	}
	for cellI := range grad {
		grad[cellI] = grad[cellI].Scale(1. / m.V[cellI])
	}
	return
}

/*
GradVector is the Gauss gradient of a vector field, (grad U)_ij = d U_j / d x_i.

The patch values are corrected to carry the patch normal gradient of U:
	grad_b = grad_P + n (x) (snGrad(U) - n . grad_P)
*/
func GradVector(vf *fields.VolVectorField) (internal []ad.Tensor, boundary [][]ad.Tensor) {
	var (
		m      = vf.Mesh
		uf, ub = fields.InterpolateVector(vf)
	)
	internal = make([]ad.Tensor, m.NCells)
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		flux := ad.OuterF(m.Sf[faceI], uf[faceI])
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		internal[own] = internal[own].Add(flux)
		internal[nei] = internal[nei].Add(flux.Scale(-1))
	}
	for patchI, p := range m.Patches {
		for i, cellI := range m.FaceCells(patchI) {
			internal[cellI] = internal[cellI].Add(ad.OuterF(m.Sf[p.Start+i], ub[patchI][i]))
		}
	}
	for cellI := range internal {
		internal[cellI] = internal[cellI].Scale(1. / m.V[cellI])
	}
	boundary = make([][]ad.Tensor, m.NPatches())
	for patchI, p := range m.Patches {
		boundary[patchI] = make([]ad.Tensor, p.Size)
		for i, cellI := range m.FaceCells(patchI) {
			var (
				faceI = p.Start + i
				n     = unit(m.Sf[faceI], m.MagSf[faceI])
				gP    = internal[cellI]
				corr  = vf.SnGrad(patchI, i).Sub(gP.LeftDotF(n))
			)
			boundary[patchI][i] = gP.Add(ad.OuterF(n, corr))
		}
	}
	return
}

// Flux is Sf . U on every face
func Flux(vf *fields.VolVectorField) (phi *fields.SurfaceScalarField) {
	var (
		m      = vf.Mesh
		uf, ub = fields.InterpolateVector(vf)
	)
	phi = fields.NewSurfaceScalarField("phi"+vf.Name, m)
	for faceI := range phi.Internal {
		phi.Internal[faceI] = uf[faceI].DotF(m.Sf[faceI])
	}
	for patchI, p := range m.Patches {
		for i := range phi.Boundary[patchI] {
			phi.Boundary[patchI][i] = ub[patchI][i].DotF(m.Sf[p.Start+i])
		}
	}
	return
}

// SurfaceSum is the signed sum of the face values around each cell, outward
// positive.
func SurfaceSum(sf *fields.SurfaceScalarField) (sum []ad.Real) {
	m := sf.Mesh
	sum = make([]ad.Real, m.NCells)
	for faceI, v := range sf.Internal {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		sum[own] = sum[own].Add(v)
		sum[nei] = sum[nei].Sub(v)
	}
	for patchI := range sf.Boundary {
		for i, cellI := range m.FaceCells(patchI) {
			sum[cellI] = sum[cellI].Add(sf.Boundary[patchI][i])
		}
	}
	return
}

// Div is the divergence of a face flux field, SurfaceSum/V
func Div(sf *fields.SurfaceScalarField) (div []ad.Real) {
	div = SurfaceSum(sf)
	for cellI := range div {
		div[cellI] = div[cellI].Scale(1. / sf.Mesh.V[cellI])
	}
	return
}

/*
DivTensor is the Gauss divergence of a cell tensor field T, (div T)_j = d T_ij / d x_i,
using the linear interpolate on internal faces and the given patch values.
*/
func DivTensor(m *mesh.Mesh, internal []ad.Tensor, boundary [][]ad.Tensor) (div []ad.Vec3) {
	div = make([]ad.Vec3, m.NCells)
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		own, nei := m.Owner[faceI], m.Neighbour[faceI]
		tf := ad.LerpTensor(internal[own], internal[nei], m.Weights[faceI])
		flux := tf.LeftDotF(m.Sf[faceI])
		div[own] = div[own].Add(flux)
		div[nei] = div[nei].Sub(flux)
	}
	for patchI, p := range m.Patches {
		for i, cellI := range m.FaceCells(patchI) {
			div[cellI] = div[cellI].Add(boundary[patchI][i].LeftDotF(m.Sf[p.Start+i]))
		}
	}
	for cellI := range div {
		div[cellI] = div[cellI].Scale(1. / m.V[cellI])
	}
	return
}

func vecScale(s [3]float64, r ad.Real) ad.Vec3 {
	return ad.Vec3{r.Scale(s[0]), r.Scale(s[1]), r.Scale(s[2])}
}

func unit(s [3]float64, mag float64) [3]float64 {
	return [3]float64{s[0] / mag, s[1] / mag, s[2] / mag}
}
