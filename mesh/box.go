package mesh

import (
	"fmt"
)

var BoxPatchNames = []string{"inlet", "outlet", "bottom", "top", "back", "front"}

/*
NewBoxMesh builds a uniform nx*ny*nz hexahedral mesh of the box [0,lx]x[0,ly]x[0,lz].

	cell (i,j,k) = i + nx*(j + ny*k)
	patches: inlet x=0, outlet x=lx, bottom y=0, top y=ly, back z=0, front z=lz

The bottom and top patches are walls.
*/
func NewBoxMesh(nx, ny, nz int, lx, ly, lz float64) (m *Mesh) {
	if nx < 1 || ny < 1 || nz < 1 || lx <= 0 || ly <= 0 || lz <= 0 {
		panic(fmt.Errorf("invalid box mesh dimensions %dx%dx%d, %gx%gx%g", nx, ny, nz, lx, ly, lz))
	}
	var (
		dx, dy, dz = lx / float64(nx), ly / float64(ny), lz / float64(nz)
		nCells     = nx * ny * nz
		nInternal  = (nx-1)*ny*nz + nx*(ny-1)*nz + nx*ny*(nz-1)
		nBoundary  = 2 * (ny*nz + nx*nz + nx*ny)
		cellID     = func(i, j, k int) int { return i + nx*(j+ny*k) }
		area       = [3]float64{dy * dz, dx * dz, dx * dy}
		spacing    = [3]float64{dx, dy, dz}
	)
	m = &Mesh{
		NCells:         nCells,
		NInternalFaces: nInternal,
		NFaces:         nInternal + nBoundary,
		Owner:          make([]int, 0, nInternal+nBoundary),
		Neighbour:      make([]int, 0, nInternal),
		V:              make([]float64, nCells),
		C:              make([][3]float64, nCells),
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				cellI := cellID(i, j, k)
				m.V[cellI] = dx * dy * dz
				m.C[cellI] = [3]float64{(float64(i) + 0.5) * dx, (float64(j) + 0.5) * dy, (float64(k) + 0.5) * dz}
			}
		}
	}
	addFace := func(owner int, dir int, sign float64) {
		var sf, cf [3]float64
		sf[dir] = sign * area[dir]
		cf = m.C[owner]
		cf[dir] += sign * 0.5 * spacing[dir]
		m.Owner = append(m.Owner, owner)
		m.Sf = append(m.Sf, sf)
		m.Cf = append(m.Cf, cf)
		m.MagSf = append(m.MagSf, area[dir])
	}
	// Internal faces in owner order, neighbours ascending: +x, +y, +z
	for cellI := 0; cellI < nCells; cellI++ {
		i, j, k := cellI%nx, (cellI/nx)%ny, cellI/(nx*ny)
		if i < nx-1 {
			addFace(cellI, 0, 1)
			m.Neighbour = append(m.Neighbour, cellID(i+1, j, k))
		}
		if j < ny-1 {
			addFace(cellI, 1, 1)
			m.Neighbour = append(m.Neighbour, cellID(i, j+1, k))
		}
		if k < nz-1 {
			addFace(cellI, 2, 1)
			m.Neighbour = append(m.Neighbour, cellID(i, j, k+1))
		}
	}
	addPatch := func(name string, dir int, sign float64, cells []int) {
		m.Patches = append(m.Patches, Patch{Name: name, Start: len(m.Owner), Size: len(cells)})
		for _, cellI := range cells {
			addFace(cellI, dir, sign)
		}
	}
	var xLo, xHi, yLo, yHi, zLo, zHi []int
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			xLo = append(xLo, cellID(0, j, k))
			xHi = append(xHi, cellID(nx-1, j, k))
		}
	}
	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			yLo = append(yLo, cellID(i, 0, k))
			yHi = append(yHi, cellID(i, ny-1, k))
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			zLo = append(zLo, cellID(i, j, 0))
			zHi = append(zHi, cellID(i, j, nz-1))
		}
	}
	addPatch(BoxPatchNames[0], 0, -1, xLo)
	addPatch(BoxPatchNames[1], 0, 1, xHi)
	addPatch(BoxPatchNames[2], 1, -1, yLo)
	addPatch(BoxPatchNames[3], 1, 1, yHi)
	addPatch(BoxPatchNames[4], 2, -1, zLo)
	addPatch(BoxPatchNames[5], 2, 1, zHi)

	m.Weights = make([]float64, nInternal)
	m.DeltaCoeffs = make([]float64, m.NFaces)
	for faceI := 0; faceI < m.NFaces; faceI++ {
		if faceI < nInternal {
			m.Weights[faceI] = 0.5
			m.DeltaCoeffs[faceI] = 1. / dist(m.C[m.Owner[faceI]], m.C[m.Neighbour[faceI]])
			continue
		}
		m.DeltaCoeffs[faceI] = 1. / dist(m.C[m.Owner[faceI]], m.Cf[faceI])
	}
	if err := m.SetWalls("bottom", "top"); err != nil {
		panic(err)
	}
	return
}
