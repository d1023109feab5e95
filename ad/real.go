package ad

import (
	"fmt"
	"math"

	"github.com/notargets/fpadj/utils"
)

// Real is an active scalar. Operations involving a Real registered on an
// active Tape are recorded on that tape; everything else is plain arithmetic.
type Real struct {
	Val   float64
	id    int32
	epoch int32
	tape  *Tape
}

func Const(val float64) Real { return Real{Val: val} }

func Consts(vals []float64) (r []Real) {
	r = make([]Real, len(vals))
	for i, val := range vals {
		r[i] = Real{Val: val}
	}
	return
}

func Values(r []Real) (vals []float64) {
	vals = make([]float64, len(r))
	for i := range r {
		vals[i] = r[i].Val
	}
	return
}

// Passive drops the tape identity, keeping the value.
func (a Real) Passive() Real { return Real{Val: a.Val} }

// IsRecording reports whether operations on a are currently being recorded.
func (a Real) IsRecording() bool { return a.tapeFor() != nil }

func (a Real) String() string { return fmt.Sprintf("%g", a.Val) }

func (a Real) tapeFor() *Tape {
	if a.id == 0 || a.tape == nil || !a.tape.active || a.epoch != a.tape.epoch {
		return nil
	}
	return a.tape
}

func unary(a Real, val, da float64) Real {
	if t := a.tapeFor(); t != nil {
		return t.push1(val, a.id, da)
	}
	return Real{Val: val}
}

func binary(a, b Real, val, da, db float64) Real {
	var (
		ta, tb = a.tapeFor(), b.tapeFor()
	)
	switch {
	case ta == nil && tb == nil:
		return Real{Val: val}
	case tb == nil:
		return ta.push1(val, a.id, da)
	case ta == nil:
		return tb.push1(val, b.id, db)
	case ta != tb:
		panic(fmt.Errorf("ad: operands recorded on two different tapes"))
	}
	return ta.push2(val, a.id, da, b.id, db)
}

func (a Real) Add(b Real) Real { return binary(a, b, a.Val+b.Val, 1, 1) }

func (a Real) Sub(b Real) Real { return binary(a, b, a.Val-b.Val, 1, -1) }

func (a Real) Mul(b Real) Real { return binary(a, b, a.Val*b.Val, b.Val, a.Val) }

func (a Real) Div(b Real) Real {
	inv := 1. / b.Val
	return binary(a, b, a.Val*inv, inv, -a.Val*inv*inv)
}

func (a Real) Neg() Real { return unary(a, -a.Val, -1) }

func (a Real) Scale(s float64) Real { return unary(a, s*a.Val, s) }

func (a Real) AddConst(c float64) Real { return unary(a, a.Val+c, 1) }

// Inv is 1/a
func (a Real) Inv() Real {
	inv := 1. / a.Val
	return unary(a, inv, -inv*inv)
}

func (a Real) Sqr() Real { return unary(a, a.Val*a.Val, 2*a.Val) }

func (a Real) Sqrt() Real {
	val := math.Sqrt(a.Val)
	return unary(a, val, 0.5/val)
}

func (a Real) Exp() Real {
	val := math.Exp(a.Val)
	return unary(a, val, val)
}

func (a Real) Log() Real { return unary(a, math.Log(a.Val), 1./a.Val) }

func (a Real) Pow(p float64) Real {
	val := math.Pow(a.Val, p)
	return unary(a, val, p*math.Pow(a.Val, p-1))
}

func (a Real) PowInt(p int) Real {
	return unary(a, utils.POW(a.Val, p), float64(p)*utils.POW(a.Val, p-1))
}

func (a Real) Abs() Real {
	if a.Val < 0 {
		return a.Neg()
	}
	return a
}

// Max and Min keep the branch taken while recording.
func Max(a, b Real) Real {
	if a.Val >= b.Val {
		return a
	}
	return b
}

func Min(a, b Real) Real {
	if a.Val <= b.Val {
		return a
	}
	return b
}

func (a Real) MaxConst(c float64) Real {
	if a.Val >= c {
		return a
	}
	return Real{Val: c}
}

func (a Real) MinConst(c float64) Real {
	if a.Val <= c {
		return a
	}
	return Real{Val: c}
}

// Pos0 is 1 for a >= 0, else 0.
func (a Real) Pos0() float64 {
	if a.Val >= 0 {
		return 1
	}
	return 0
}

func Sum(r []Real) (s Real) {
	for _, v := range r {
		s = s.Add(v)
	}
	return
}
