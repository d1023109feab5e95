package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK is an assembly-friendly sparse matrix, converted to CSR once assembled
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int, name string) (R DOK) {
	R = DOK{
		M:    sparse.NewDOK(nr, nc),
		name: name,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) Set(i, j int, val float64) {
	m.checkBounds(i, j)
	m.M.Set(i, j, val)
}

// AddTo accumulates val into entry (i,j)
func (m DOK) AddTo(i, j int, val float64) {
	m.checkBounds(i, j)
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkBounds(i, j int) {
	nr, nc := m.M.Dims()
	if i < 0 || i >= nr || j < 0 || j >= nc {
		panic(fmt.Errorf("index (%d,%d) out of bounds for %dx%d matrix \"%s\"", i, j, nr, nc, m.name))
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) NNZ() int                      { return m.M.NNZ() }
func (m CSR) Name() string                  { return m.name }

// MulVec returns A*x, or A^T*x when trans is set
func (m CSR) MulVec(x []float64, trans bool) (y []float64) {
	var (
		nr, nc = m.Dims()
		A      mat.Matrix
		yv     *mat.VecDense
	)
	A = m.M
	if trans {
		A = m.M.T()
		nr, nc = nc, nr
	}
	if len(x) != nc {
		panic(fmt.Errorf("dimension mismatch multiplying \"%s\": len(x) = %d, want %d", m.name, len(x), nc))
	}
	yv = mat.NewVecDense(nr, nil)
	yv.MulVec(A, mat.NewVecDense(nc, x))
	y = yv.RawVector().Data
	return
}

// Dense is a dense copy, used for reference solves on small systems
func (m CSR) Dense() (D *mat.Dense) {
	nr, nc := m.Dims()
	D = mat.NewDense(nr, nc, nil)
	raw := m.M.RawMatrix()
	for i := 0; i < nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			D.Set(i, raw.Ind[k], raw.Data[k])
		}
	}
	return
}
