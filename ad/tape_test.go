package ad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTape(t *testing.T) {
	{ // Gradient of a scalar function against the analytic derivative
		tape := NewTape()
		x, y := Const(1.3), Const(0.7)
		tape.SetActive()
		tape.RegisterInput(&x)
		tape.RegisterInput(&y)
		// f = x*y + exp(x)/y + sqrt(x^2 + y^3)
		f := x.Mul(y).Add(x.Exp().Div(y)).Add(x.Sqr().Add(y.PowInt(3)).Sqrt())
		tape.RegisterOutput(&f)
		tape.SetPassive()

		tape.SetGradient(f, 1)
		tape.Evaluate()
		xv, yv := 1.3, 0.7
		s := math.Sqrt(xv*xv + yv*yv*yv)
		dfdx := yv + math.Exp(xv)/yv + xv/s
		dfdy := xv - math.Exp(xv)/(yv*yv) + 1.5*yv*yv/s
		assert.InDelta(t, dfdx, tape.Gradient(x), 1.e-12)
		assert.InDelta(t, dfdy, tape.Gradient(y), 1.e-12)
		tape.ClearAdjoints()
		assert.Equal(t, 0., tape.Gradient(x))

		// Replay with a different seed scales linearly
		tape.SetGradient(f, -2)
		tape.Evaluate()
		assert.InDelta(t, -2*dfdx, tape.Gradient(x), 1.e-12)
		assert.InDelta(t, -2*dfdy, tape.Gradient(y), 1.e-12)
	}
	{ // Outputs never alias each other, even when they hold the same value
		tape := NewTape()
		x := Const(2)
		tape.SetActive()
		tape.RegisterInput(&x)
		r1 := x.Scale(3)
		r2 := r1
		c := Const(5) // passive output
		tape.RegisterOutput(&r1)
		tape.RegisterOutput(&r2)
		tape.RegisterOutput(&c)
		tape.SetPassive()
		tape.SetGradient(r1, 1)
		tape.SetGradient(r2, 10)
		tape.SetGradient(c, 100)
		tape.Evaluate()
		assert.InDelta(t, 33., tape.Gradient(x), 1.e-14)
		assert.Equal(t, 5, tape.Stats().Identifiers)
		assert.Equal(t, 1, tape.Stats().Inputs)
		assert.Equal(t, 3, tape.Stats().Outputs)
	}
	{ // Operations on a passive tape are not recorded
		tape := NewTape()
		x := Const(2)
		tape.SetActive()
		tape.RegisterInput(&x)
		y := x.Mul(x)
		tape.RegisterOutput(&y)
		tape.SetPassive()
		n := tape.Stats().Statements
		z := x.Mul(x).Add(y)
		assert.False(t, z.IsRecording())
		assert.Equal(t, n, tape.Stats().Statements)
		assert.Equal(t, 8., z.Val)
	}
	{ // A reset makes values from the previous session passive
		tape := NewTape()
		x := Const(3)
		tape.SetActive()
		tape.RegisterInput(&x)
		y := x.Sqr()
		tape.RegisterOutput(&y)
		tape.SetPassive()
		tape.Reset()
		tape.SetActive()
		w := Const(1)
		tape.RegisterInput(&w)
		z := x.Mul(w)
		tape.RegisterOutput(&z)
		tape.SetPassive()
		tape.SetGradient(z, 1)
		tape.Evaluate()
		assert.InDelta(t, 3., tape.Gradient(w), 1.e-14)
		assert.Equal(t, 0., tape.Gradient(x))
	}
	{ // Branches are frozen at record time
		tape := NewTape()
		a, b := Const(1), Const(2)
		tape.SetActive()
		tape.RegisterInput(&a)
		tape.RegisterInput(&b)
		m := Max(a, b).Add(Min(a, b).Scale(10)).Add(a.Neg().Abs())
		tape.RegisterOutput(&m)
		tape.SetPassive()
		tape.SetGradient(m, 1)
		tape.Evaluate()
		assert.InDelta(t, 11., tape.Gradient(a), 1.e-14)
		assert.InDelta(t, 1., tape.Gradient(b), 1.e-14)
	}
}

func TestTapeProtocol(t *testing.T) {
	tape := NewTape()
	require.Panics(t, func() { tape.Evaluate() })
	x := Const(1)
	require.Panics(t, func() { tape.RegisterInput(&x) })
	tape.SetActive()
	require.Panics(t, func() { tape.Reset() })
	tape.RegisterInput(&x)
	tape.SetPassive()
	require.Panics(t, func() { tape.SetActive() })
	require.NotPanics(t, func() { tape.Evaluate() })
}

func TestTensor(t *testing.T) {
	var (
		g Tensor
	)
	for i := range g {
		g[i] = Const(float64(i + 1))
	}
	// tr = 1 + 5 + 9
	assert.Equal(t, 15., g.Tr().Val)
	d := g.Dev2()
	assert.Equal(t, 1.-10., d[0].Val)
	assert.Equal(t, 2., d[1].Val)
	assert.Equal(t, 4., g.T()[1].Val)
	v := g.LeftDotF([3]float64{1, 0, 0})
	assert.Equal(t, [3]float64{1, 2, 3}, v.Values())
	v = g.LeftDotF([3]float64{0, 1, 0})
	assert.Equal(t, [3]float64{4, 5, 6}, v.Values())
	o := OuterF([3]float64{1, 2, 3}, ConstVec3([3]float64{1, 0, -1}))
	assert.Equal(t, -3., o[8].Val)
	assert.Equal(t, 2., o[3].Val)
	// skew part of g: w01 = (2-4)/2 = -1, w02 = (3-7)/2 = -2, w12 = (6-8)/2 = -1
	assert.InDelta(t, math.Sqrt(2*(1+4+1)), g.MagSkew().Val, 1.e-14)
	assert.True(t, NearlyEqual(ConstVec3([3]float64{1, 2, 3}).CmptAv().Val, 2, 1.e-15))
}
