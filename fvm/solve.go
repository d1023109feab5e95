package fvm

import (
	"errors"
	"fmt"

	"github.com/notargets/fpadj/linsolve"
	"github.com/notargets/fpadj/mesh"
	"gonum.org/v1/gonum/floats"
)

type SolverControls struct {
	Solver    string // PCG or PBiCGStab
	Tolerance float64
	MaxIter   int
}

func DefaultSolverControls(solver string) SolverControls {
	return SolverControls{Solver: solver, Tolerance: 1.e-8, MaxIter: 1000}
}

type SolverPerformance struct {
	Solver          string
	FieldName       string
	InitialResidual float64
	FinalResidual   float64
	NIterations     int
}

func (sp SolverPerformance) String() string {
	return fmt.Sprintf("%s:  Solving for %s, Initial residual = %g, Final residual = %g, No Iterations %d",
		sp.Solver, sp.FieldName, sp.InitialResidual, sp.FinalResidual, sp.NIterations)
}

func (ctl SolverControls) method() (linsolve.Method, error) {
	switch ctl.Solver {
	case "PCG", "CG":
		return &linsolve.CG{}, nil
	case "PBiCGStab", "BiCGSTAB", "":
		return &linsolve.BiCGSTAB{}, nil
	}
	return nil, fmt.Errorf("unknown linear solver \"%s\", valid solvers are PCG and PBiCGStab", ctl.Solver)
}

/*
solve solves the assembled system from the initial guess x0. A reference is
imposed by eliminating the reference cell from the system, the returned
solution holds the reference value exactly.

The solution is returned together with linsolve.ErrIterationLimit, it is nil
for any other error.
*/
func solve(name string, m *mesh.Mesh, diag, lower, upper, b, x0 []float64, ref *reference, ctl SolverControls) (
	x []float64, perf SolverPerformance, err error) {
	var (
		method linsolve.Method
		res    linsolve.Result
	)
	perf.Solver, perf.FieldName = ctl.Solver, name
	if method, err = ctl.method(); err != nil {
		return
	}
	if ref != nil {
		lower = append([]float64{}, lower...)
		upper = append([]float64{}, upper...)
		b = append([]float64{}, b...)
		x0 = append([]float64{}, x0...)
		r, v := ref.cell, ref.value
		for faceI := 0; faceI < m.NInternalFaces; faceI++ {
			own, nei := m.Owner[faceI], m.Neighbour[faceI]
			switch r {
			case own:
				b[nei] -= lower[faceI] * v
			case nei:
				b[own] -= upper[faceI] * v
			default:
				continue
			}
			lower[faceI], upper[faceI] = 0, 0
		}
		b[r] = diag[r] * v
		x0[r] = v
	}
	ops := linsolve.MatrixOps{
		MatVec: func(dst, x []float64) { amul(m, diag, lower, upper, dst, x) },
	}
	res, err = linsolve.LinearSolve(ops, b, method, linsolve.Settings{
		X0:            x0,
		Tolerance:     ctl.Tolerance,
		MaxIterations: ctl.MaxIter,
		PSolve:        linsolve.Jacobi(diag),
	})
	normFactor := floats.Norm(b, 2)
	if normFactor == 0 {
		normFactor = 1
	}
	perf.InitialResidual = res.Stats.InitialResidual / normFactor
	perf.FinalResidual = res.Stats.ResidualNorm / normFactor
	perf.NIterations = res.Stats.Iterations
	if err != nil && !errors.Is(err, linsolve.ErrIterationLimit) {
		return nil, perf, fmt.Errorf("solving %s: %w", perf.FieldName, err)
	}
	x = res.X
	if ref != nil {
		x[ref.cell] = ref.value
	}
	return
}
