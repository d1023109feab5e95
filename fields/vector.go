package fields

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/mesh"
)

type VolVectorField struct {
	Name     string
	Mesh     *mesh.Mesh
	Internal []ad.Vec3
	Boundary [][]ad.Vec3
	BCs      BCs
}

func NewVolVectorField(name string, m *mesh.Mesh, bcs BCs) (f *VolVectorField) {
	if len(bcs) != m.NPatches() {
		panic(fmt.Errorf("field %s: %d boundary conditions for %d patches", name, len(bcs), m.NPatches()))
	}
	f = &VolVectorField{
		Name:     name,
		Mesh:     m,
		Internal: make([]ad.Vec3, m.NCells),
		Boundary: make([][]ad.Vec3, m.NPatches()),
		BCs:      append(BCs{}, bcs...),
	}
	for i, p := range m.Patches {
		f.Boundary[i] = make([]ad.Vec3, p.Size)
	}
	return
}

func (f *VolVectorField) SetUniform(val [3]float64) {
	for i := range f.Internal {
		f.Internal[i] = ad.ConstVec3(val)
	}
	for i := range f.Boundary {
		f.SetPatch(i, val)
	}
}

func (f *VolVectorField) SetPatch(patchI int, val [3]float64) {
	for i := range f.Boundary[patchI] {
		f.Boundary[patchI][i] = ad.ConstVec3(val)
	}
}

func (f *VolVectorField) Clone(name string) (g *VolVectorField) {
	g = NewVolVectorField(name, f.Mesh, f.BCs)
	copy(g.Internal, f.Internal)
	for i := range f.Boundary {
		copy(g.Boundary[i], f.Boundary[i])
	}
	return
}

func (f *VolVectorField) ZeroLike(name string) *VolVectorField {
	return NewVolVectorField(name, f.Mesh, f.BCs)
}

func (f *VolVectorField) CorrectBoundaryConditions() {
	for patchI, bc := range f.BCs {
		if imposesValue(bc) {
			continue
		}
		for i, cellI := range f.Mesh.FaceCells(patchI) {
			f.Boundary[patchI][i] = f.Internal[cellI]
		}
	}
}

func (f *VolVectorField) ValueInternalCoeffs(patchI int) float64 {
	return valueInternalCoeff(f.BCs[patchI])
}

func (f *VolVectorField) ValueBoundaryCoeffs(patchI, faceI int) ad.Vec3 {
	if imposesValue(f.BCs[patchI]) {
		return f.Boundary[patchI][faceI]
	}
	return ad.Vec3{}
}

func (f *VolVectorField) GradientInternalCoeffs(patchI, faceI int) float64 {
	return gradientInternalCoeff(f.BCs[patchI], f.deltaCoeff(patchI, faceI))
}

func (f *VolVectorField) GradientBoundaryCoeffs(patchI, faceI int) ad.Vec3 {
	if imposesValue(f.BCs[patchI]) {
		return f.Boundary[patchI][faceI].Scale(f.deltaCoeff(patchI, faceI))
	}
	return ad.Vec3{}
}

func (f *VolVectorField) SnGrad(patchI, faceI int) ad.Vec3 {
	cellI := f.Mesh.FaceCells(patchI)[faceI]
	return f.Boundary[patchI][faceI].Sub(f.Internal[cellI]).Scale(f.deltaCoeff(patchI, faceI))
}

func (f *VolVectorField) deltaCoeff(patchI, faceI int) float64 {
	return f.Mesh.DeltaCoeffs[f.Mesh.Patches[patchI].Start+faceI]
}
