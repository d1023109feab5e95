// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linsolve provides preconditioned Krylov solvers for the sparse
// systems assembled by the finite volume operators.
//
// Solvers use a reverse-communication interface: a Method commands the caller
// to perform the matrix and preconditioner operations it needs, so the
// solvers are independent of how the matrix is stored.
package linsolve

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ErrIterationLimit is returned together with the last iterate when the
// tolerance was not reached within Settings.MaxIterations.
var ErrIterationLimit = errors.New("linsolve: iteration limit reached")

// MatrixOps describes the matrix of the linear system.
type MatrixOps struct {
	// MatVec computes dst = A*x, it must be non-nil.
	MatVec func(dst, x []float64)
}

type Settings struct {
	// X0 is the initial guess, the zero vector is used when nil.
	X0 []float64
	// Tolerance on the residual norm relative to |b|.
	Tolerance float64
	// MaxIterations defaults to twice the dimension of the system.
	MaxIterations int
	// PSolve stores into dst the solution of M z = rhs. No preconditioning
	// is applied when nil.
	PSolve func(dst, rhs []float64) error
}

type Operation uint64

const (
	NoOperation Operation = 0

	// Compute A*Src into Dst
	MatVec Operation = 1 << (iota - 1)
	// Solve M Dst = Src
	PSolve
	// Set Context.Converged from Context.ResidualNorm
	CheckResidualNorm
	// One iteration is complete. The process terminates if Converged is set.
	EndIteration
)

// Method is an iterative method producing a sequence of vectors converging to
// the solution of A x = b.
type Method interface {
	Init(dim int)
	Iterate(*Context) (Operation, error)
	Name() string
}

// Context mediates between a Method and the caller. It must not be modified
// apart from the commanded Operations.
type Context struct {
	X            []float64
	Residual     []float64
	ResidualNorm float64
	Converged    bool
	Src, Dst     []float64
}

type Stats struct {
	Iterations      int
	MatVec          int
	PSolve          int
	InitialResidual float64
	ResidualNorm    float64
	Runtime         time.Duration
}

type Result struct {
	X      []float64
	Method string
	Stats  Stats
}

func (r Result) String() string {
	return fmt.Sprintf("%s:  Initial residual = %8.5e, Final residual = %8.5e, No Iterations %d",
		r.Method, r.Stats.InitialResidual, r.Stats.ResidualNorm, r.Stats.Iterations)
}

// LinearSolve solves A x = b. On ErrIterationLimit the returned Result still
// holds the last iterate.
func LinearSolve(a MatrixOps, b []float64, method Method, settings Settings) (Result, error) {
	var (
		start = time.Now()
		stats Stats
		dim   = len(b)
	)
	switch {
	case dim == 0:
		panic("linsolve: zero dimension")
	case a.MatVec == nil:
		panic("linsolve: nil matrix-vector multiplication")
	case settings.X0 != nil && len(settings.X0) != dim:
		panic("linsolve: mismatched length of initial guess")
	}
	defaultSettings(&settings, dim)
	if settings.Tolerance < dlamchE || 1 <= settings.Tolerance {
		panic("linsolve: invalid tolerance")
	}

	ctx := &Context{
		X:        make([]float64, dim),
		Residual: make([]float64, dim),
	}
	if settings.X0 != nil {
		copy(ctx.X, settings.X0)
		a.MatVec(ctx.Residual, ctx.X)
		stats.MatVec++
		floats.AddScaledTo(ctx.Residual, b, -1, ctx.Residual) // r = b - Ax
	} else {
		copy(ctx.Residual, b)
	}
	ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
	stats.InitialResidual = ctx.ResidualNorm
	stats.ResidualNorm = ctx.ResidualNorm

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}
	var err error
	if ctx.ResidualNorm/bnorm >= settings.Tolerance {
		err = iterate(a, bnorm, ctx, settings, method, &stats)
	}
	stats.Runtime = time.Since(start)
	return Result{X: ctx.X, Method: method.Name(), Stats: stats}, err
}

func iterate(a MatrixOps, bnorm float64, ctx *Context, settings Settings, method Method, stats *Stats) error {
	method.Init(len(ctx.X))
	for {
		op, err := method.Iterate(ctx)
		if err != nil {
			return err
		}
		switch op {
		case NoOperation:
		case MatVec:
			a.MatVec(ctx.Dst, ctx.Src)
			stats.MatVec++
		case PSolve:
			if settings.PSolve == nil {
				copy(ctx.Dst, ctx.Src)
				continue
			}
			if err = settings.PSolve(ctx.Dst, ctx.Src); err != nil {
				return err
			}
			stats.PSolve++
		case CheckResidualNorm:
			ctx.Converged = ctx.ResidualNorm/bnorm < settings.Tolerance
		case EndIteration:
			stats.Iterations++
			stats.ResidualNorm = ctx.ResidualNorm
			if ctx.Converged {
				return nil
			}
			if stats.Iterations == settings.MaxIterations {
				return ErrIterationLimit
			}
		default:
			panic("linsolve: invalid operation")
		}
	}
}

// Jacobi returns the diagonal preconditioner solve for the given diagonal.
func Jacobi(diag []float64) func(dst, rhs []float64) error {
	return func(dst, rhs []float64) error {
		for i, d := range diag {
			if d == 0 {
				return fmt.Errorf("linsolve: zero diagonal in row %d", i)
			}
			dst[i] = rhs[i] / d
		}
		return nil
	}
}

func DefaultSettings() Settings {
	return Settings{
		Tolerance: 1e-8,
	}
}

func defaultSettings(s *Settings, dim int) {
	if s.Tolerance == 0 {
		s.Tolerance = 1e-8
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}
}

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}

const dlamchE = 1.0 / (1 << 53)
