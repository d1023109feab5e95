// Package fields holds cell centred and face centred fields whose values are
// active scalars, together with the per patch boundary conditions used by the
// finite volume operators.
package fields

import (
	"fmt"

	"github.com/notargets/fpadj/ad"
	"github.com/notargets/fpadj/mesh"
	"github.com/notargets/fpadj/types"
)

// BCs holds one boundary condition per mesh patch
type BCs []types.BCFLAG

// NewBCs builds the patch conditions from a patch name map, missing patches
// default to dflt.
func NewBCs(m *mesh.Mesh, byName map[string]string, dflt types.BCFLAG) (bcs BCs, err error) {
	bcs = make(BCs, m.NPatches())
	for i := range bcs {
		bcs[i] = dflt
	}
	for name, bcName := range byName {
		patchI := m.FindPatch(name)
		if patchI < 0 {
			return nil, fmt.Errorf("boundary condition given for unknown patch \"%s\"", name)
		}
		if bcs[patchI], err = types.NewBCFLAG(bcName); err != nil {
			return nil, fmt.Errorf("patch %s: %w", name, err)
		}
	}
	return
}

func UniformBCs(m *mesh.Mesh, bc types.BCFLAG) (bcs BCs) {
	bcs = make(BCs, m.NPatches())
	for i := range bcs {
		bcs[i] = bc
	}
	return
}

/*
Boundary condition coefficients, for a patch value written as
	x_b = vic*x_P + vbc
and a patch normal gradient written as
	snGrad = gic*x_P + gbc
*/
func valueInternalCoeff(bc types.BCFLAG) float64 {
	if bc.Fixes() || bc == types.BC_Calculated {
		return 0
	}
	return 1
}

func gradientInternalCoeff(bc types.BCFLAG, deltaCoeff float64) float64 {
	if bc.Fixes() || bc == types.BC_Calculated {
		return -deltaCoeff
	}
	return 0
}

func imposesValue(bc types.BCFLAG) bool { return bc.Fixes() || bc == types.BC_Calculated }

type VolScalarField struct {
	Name     string
	Mesh     *mesh.Mesh
	Internal []ad.Real
	Boundary [][]ad.Real
	BCs      BCs
}

func NewVolScalarField(name string, m *mesh.Mesh, bcs BCs) (f *VolScalarField) {
	if len(bcs) != m.NPatches() {
		panic(fmt.Errorf("field %s: %d boundary conditions for %d patches", name, len(bcs), m.NPatches()))
	}
	f = &VolScalarField{
		Name:     name,
		Mesh:     m,
		Internal: make([]ad.Real, m.NCells),
		Boundary: make([][]ad.Real, m.NPatches()),
		BCs:      append(BCs{}, bcs...),
	}
	for i, p := range m.Patches {
		f.Boundary[i] = make([]ad.Real, p.Size)
	}
	return
}

func (f *VolScalarField) SetUniform(val float64) {
	for i := range f.Internal {
		f.Internal[i] = ad.Const(val)
	}
	for i := range f.Boundary {
		f.SetPatch(i, val)
	}
}

func (f *VolScalarField) SetPatch(patchI int, val float64) {
	for i := range f.Boundary[patchI] {
		f.Boundary[patchI][i] = ad.Const(val)
	}
}

// Clone copies values and boundary conditions
func (f *VolScalarField) Clone(name string) (g *VolScalarField) {
	g = NewVolScalarField(name, f.Mesh, f.BCs)
	copy(g.Internal, f.Internal)
	for i := range f.Boundary {
		copy(g.Boundary[i], f.Boundary[i])
	}
	return
}

// ZeroLike has the boundary conditions of f and all values zero
func (f *VolScalarField) ZeroLike(name string) *VolScalarField {
	return NewVolScalarField(name, f.Mesh, f.BCs)
}

func (f *VolScalarField) Values() []float64 { return ad.Values(f.Internal) }

func (f *VolScalarField) SetValues(vals []float64) {
	for i, val := range vals {
		f.Internal[i] = ad.Const(val)
	}
}

// CorrectBoundaryConditions re-evaluates the extrapolated patches from the
// adjacent cell values.
func (f *VolScalarField) CorrectBoundaryConditions() {
	for patchI, bc := range f.BCs {
		if imposesValue(bc) {
			continue
		}
		for i, cellI := range f.Mesh.FaceCells(patchI) {
			f.Boundary[patchI][i] = f.Internal[cellI]
		}
	}
}

// NeedReference is true when no patch fixes the level of the field
func (f *VolScalarField) NeedReference() bool {
	for _, bc := range f.BCs {
		if bc.Fixes() {
			return false
		}
	}
	return true
}

func (f *VolScalarField) ValueInternalCoeffs(patchI int) float64 {
	return valueInternalCoeff(f.BCs[patchI])
}

func (f *VolScalarField) ValueBoundaryCoeffs(patchI, faceI int) ad.Real {
	if imposesValue(f.BCs[patchI]) {
		return f.Boundary[patchI][faceI]
	}
	return ad.Real{}
}

func (f *VolScalarField) GradientInternalCoeffs(patchI, faceI int) float64 {
	return gradientInternalCoeff(f.BCs[patchI], f.deltaCoeff(patchI, faceI))
}

func (f *VolScalarField) GradientBoundaryCoeffs(patchI, faceI int) ad.Real {
	if imposesValue(f.BCs[patchI]) {
		return f.Boundary[patchI][faceI].Scale(f.deltaCoeff(patchI, faceI))
	}
	return ad.Real{}
}

// SnGrad is the patch normal gradient (x_b - x_P)*deltaCoeff
func (f *VolScalarField) SnGrad(patchI, faceI int) ad.Real {
	cellI := f.Mesh.FaceCells(patchI)[faceI]
	return f.Boundary[patchI][faceI].Sub(f.Internal[cellI]).Scale(f.deltaCoeff(patchI, faceI))
}

func (f *VolScalarField) deltaCoeff(patchI, faceI int) float64 {
	return f.Mesh.DeltaCoeffs[f.Mesh.Patches[patchI].Start+faceI]
}
