package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxMesh(t *testing.T) {
	{
		m := NewBoxMesh(5, 1, 1, 5, 1, 1)
		assert.Equal(t, 5, m.NCells)
		assert.Equal(t, 4, m.NInternalFaces)
		assert.Equal(t, 26, m.NFaces)
		assert.Equal(t, 22, m.NBoundaryFaces())
		assert.Equal(t, []int{1, 2, 3, 4}, m.Neighbour)
		assert.Equal(t, []int{0}, m.FaceCells(m.FindPatch("inlet")))
		assert.Equal(t, []int{4}, m.FaceCells(m.FindPatch("outlet")))
		assert.Equal(t, []int{0, 1, 2, 3, 4}, m.FaceCells(m.FindPatch("top")))
		assert.Equal(t, -1, m.FindPatch("farfield"))
		assert.InDelta(t, 1., m.DeltaCoeffs[0], 1.e-14)
		assert.InDelta(t, 2., m.DeltaCoeffs[m.NInternalFaces], 1.e-14)
		assert.InDelta(t, 0.5, m.WallDist[2], 1.e-14)
		patchI, faceI := m.WhichPatch(m.NInternalFaces + 3)
		assert.Equal(t, m.FindPatch("bottom"), patchI)
		assert.Equal(t, 1, faceI)
		require.Panics(t, func() { m.WhichPatch(0) })
	}
	{ // Closed surface and upper triangular ordering
		m := NewBoxMesh(3, 4, 2, 1.5, 2, 1)
		var sum [3]float64
		div := make([][3]float64, m.NCells)
		for faceI := 0; faceI < m.NFaces; faceI++ {
			for d := 0; d < 3; d++ {
				div[m.Owner[faceI]][d] += m.Sf[faceI][d]
				if faceI < m.NInternalFaces {
					div[m.Neighbour[faceI]][d] -= m.Sf[faceI][d]
				}
			}
		}
		for _, dv := range div {
			for d := 0; d < 3; d++ {
				sum[d] += dv[d]
				assert.InDelta(t, 0., dv[d], 1.e-14)
			}
		}
		for faceI := 1; faceI < m.NInternalFaces; faceI++ {
			assert.True(t, m.Owner[faceI] > m.Owner[faceI-1] ||
				(m.Owner[faceI] == m.Owner[faceI-1] && m.Neighbour[faceI] > m.Neighbour[faceI-1]))
			assert.True(t, m.Owner[faceI] < m.Neighbour[faceI])
		}
		var vol float64
		for _, v := range m.V {
			vol += v
		}
		assert.InDelta(t, 3., vol, 1.e-12)
		require.NoError(t, m.SetWalls("inlet"))
		assert.InDelta(t, 0.25, m.WallDist[0], 1.e-14)
		assert.InDelta(t, 1.25, m.WallDist[2], 1.e-14)
		assert.Error(t, m.SetWalls("nowhere"))
	}
}
