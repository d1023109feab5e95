// Package mesh holds the face addressed finite volume mesh used by the
// solvers: cells, faces with owner/neighbour addressing and boundary patches.
package mesh

import (
	"fmt"
	"math"
	"strings"
)

const GREAT = 1.e15

type PatchType uint8

const (
	PatchGeneric PatchType = iota
	PatchWall
)

func (pt PatchType) String() string {
	if pt == PatchWall {
		return "wall"
	}
	return "patch"
}

type Patch struct {
	Name  string
	Type  PatchType
	Start int // first global face
	Size  int
}

/*
Mesh uses upper triangular face ordering: internal faces come first, sorted by
owner and then by neighbour, followed by the boundary faces patch by patch.

	Owner[f] < Neighbour[f] for every internal face f
	Sf[f] points out of Owner[f]
*/
type Mesh struct {
	NCells, NInternalFaces, NFaces int
	Owner, Neighbour               []int
	Sf, Cf, C                      [][3]float64
	MagSf, V                       []float64
	// Weights is the linear interpolation weight of the owner value on
	// internal faces
	Weights     []float64
	DeltaCoeffs []float64 // 1/|d| across every face
	Patches     []Patch
	WallDist    []float64
}

func (m *Mesh) NPatches() int { return len(m.Patches) }

func (m *Mesh) NBoundaryFaces() int { return m.NFaces - m.NInternalFaces }

func (m *Mesh) FindPatch(name string) int {
	for i, p := range m.Patches {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// FaceCells returns the cells adjacent to the faces of a patch
func (m *Mesh) FaceCells(patchI int) (cells []int) {
	p := m.Patches[patchI]
	return m.Owner[p.Start : p.Start+p.Size]
}

// WhichPatch resolves a global boundary face into its patch and the face
// index within that patch.
func (m *Mesh) WhichPatch(faceI int) (patchI, localFaceI int) {
	if faceI < m.NInternalFaces || faceI >= m.NFaces {
		panic(fmt.Errorf("face %d is not a boundary face, internal faces = %d, faces = %d",
			faceI, m.NInternalFaces, m.NFaces))
	}
	for patchI = range m.Patches {
		p := m.Patches[patchI]
		if faceI < p.Start+p.Size {
			return patchI, faceI - p.Start
		}
	}
	panic("unreachable")
}

// SetWalls marks the named patches as walls and recomputes the wall distance
func (m *Mesh) SetWalls(names ...string) (err error) {
	for i := range m.Patches {
		m.Patches[i].Type = PatchGeneric
	}
	for _, name := range names {
		patchI := m.FindPatch(name)
		if patchI < 0 {
			return fmt.Errorf("unable to find wall patch \"%s\"", name)
		}
		m.Patches[patchI].Type = PatchWall
	}
	m.calcWallDist()
	return
}

// calcWallDist is the distance from each cell centre to the nearest wall face
// centre, GREAT without walls.
func (m *Mesh) calcWallDist() {
	if len(m.WallDist) != m.NCells {
		m.WallDist = make([]float64, m.NCells)
	}
	for cellI := range m.WallDist {
		m.WallDist[cellI] = GREAT
	}
	for _, p := range m.Patches {
		if p.Type != PatchWall {
			continue
		}
		for faceI := p.Start; faceI < p.Start+p.Size; faceI++ {
			for cellI, c := range m.C {
				d := dist(c, m.Cf[faceI])
				if d < m.WallDist[cellI] {
					m.WallDist[cellI] = d
				}
			}
		}
	}
}

func (m *Mesh) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cells: %d, faces: %d, internal faces: %d\n", m.NCells, m.NFaces, m.NInternalFaces)
	for _, p := range m.Patches {
		fmt.Fprintf(&b, "\tpatch %-8s type %-5s start %6d size %6d\n", p.Name, p.Type, p.Start, p.Size)
	}
	return b.String()
}

func dist(a, b [3]float64) float64 {
	return math.Sqrt((a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1]) + (a[2]-b[2])*(a[2]-b[2]))
}
