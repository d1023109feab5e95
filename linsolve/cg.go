// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import "gonum.org/v1/gonum/floats"

// CG is the preconditioned Conjugate Gradient method for symmetric positive
// definite systems.
type CG struct {
	first        bool
	resume       int
	rho, rhoPrev float64

	z, p, ap []float64
}

func (cg *CG) Name() string { return "PCG" }

func (cg *CG) Init(dim int) {
	if dim <= 0 {
		panic("linsolve: dimension not positive")
	}
	cg.z = reuse(cg.z, dim)
	cg.p = reuse(cg.p, dim)
	cg.ap = reuse(cg.ap, dim)
	cg.first = true
	cg.resume = 1
}

func (cg *CG) Iterate(ctx *Context) (Operation, error) {
	switch cg.resume {
	case 1:
		ctx.Src, ctx.Dst = ctx.Residual, cg.z
		cg.resume = 2
		return PSolve, nil
	case 2:
		cg.rho = floats.Dot(ctx.Residual, cg.z) // ρ_i = r_{i-1} · z
		if cg.first {
			copy(cg.p, cg.z)
		} else {
			beta := cg.rho / cg.rhoPrev // β = ρ_i / ρ_{i-1}
			floats.Scale(beta, cg.p)
			floats.Add(cg.p, cg.z) // p_i = z + β p_{i-1}
		}
		ctx.Src, ctx.Dst = cg.p, cg.ap
		cg.resume = 3
		return MatVec, nil
	case 3:
		alpha := cg.rho / floats.Dot(cg.p, cg.ap)     // α = ρ_i / (p_i · Ap_i)
		floats.AddScaled(ctx.Residual, -alpha, cg.ap) // r_i = r_{i-1} - α Ap_i
		floats.AddScaled(ctx.X, alpha, cg.p)          // x_i = x_{i-1} + α p_i
		ctx.Src, ctx.Dst = nil, nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Converged = false
		cg.resume = 4
		return CheckResidualNorm, nil
	case 4:
		if ctx.Converged {
			cg.resume = 0
			return EndIteration, nil
		}
		cg.rhoPrev = cg.rho
		cg.first = false
		cg.resume = 1
		return EndIteration, nil
	default:
		panic("linsolve: CG.Init not called")
	}
}
