package fields

import (
	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/mesh"
)

// SurfaceScalarField holds one value per face, internal faces and patch faces
// stored separately.
type SurfaceScalarField struct {
	Name     string
	Mesh     *mesh.Mesh
	Internal []ad.Real
	Boundary [][]ad.Real
}

func NewSurfaceScalarField(name string, m *mesh.Mesh) (f *SurfaceScalarField) {
	f = &SurfaceScalarField{
		Name:     name,
		Mesh:     m,
		Internal: make([]ad.Real, m.NInternalFaces),
		Boundary: make([][]ad.Real, m.NPatches()),
	}
	for i, p := range m.Patches {
		f.Boundary[i] = make([]ad.Real, p.Size)
	}
	return
}

func (f *SurfaceScalarField) Clone(name string) (g *SurfaceScalarField) {
	g = NewSurfaceScalarField(name, f.Mesh)
	copy(g.Internal, f.Internal)
	for i := range f.Boundary {
		copy(g.Boundary[i], f.Boundary[i])
	}
	return
}

func (f *SurfaceScalarField) ZeroLike(name string) *SurfaceScalarField {
	return NewSurfaceScalarField(name, f.Mesh)
}

// Face returns the value on a global face index
func (f *SurfaceScalarField) Face(faceI int) ad.Real {
	if faceI < f.Mesh.NInternalFaces {
		return f.Internal[faceI]
	}
	patchI, i := f.Mesh.WhichPatch(faceI)
	return f.Boundary[patchI][i]
}

// Interpolate is the linear interpolate of a cell field onto the faces, patch
// faces take the patch values.
func Interpolate(vf *VolScalarField) (sf *SurfaceScalarField) {
	m := vf.Mesh
	sf = NewSurfaceScalarField(vf.Name+"f", m)
	for faceI := 0; faceI < m.NInternalFaces; faceI++ {
		sf.Internal[faceI] = ad.Lerp(vf.Internal[m.Owner[faceI]], vf.Internal[m.Neighbour[faceI]], m.Weights[faceI])
	}
	for patchI := range vf.Boundary {
		copy(sf.Boundary[patchI], vf.Boundary[patchI])
	}
	return
}

// InterpolateVector interpolates onto the faces, internal and patch faces
func InterpolateVector(vf *VolVectorField) (internal []ad.Vec3, boundary [][]ad.Vec3) {
	m := vf.Mesh
	internal = make([]ad.Vec3, m.NInternalFaces)
	for faceI := range internal {
		internal[faceI] = ad.LerpVec3(vf.Internal[m.Owner[faceI]], vf.Internal[m.Neighbour[faceI]], m.Weights[faceI])
	}
	return internal, vf.Boundary
}
