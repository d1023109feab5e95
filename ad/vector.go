package ad

import "math"

type Vec3 [3]Real

// Tensor is a 3x3 tensor stored row major, T[3*i+j] = T_ij
type Tensor [9]Real

func ConstVec3(v [3]float64) Vec3 {
	return Vec3{Const(v[0]), Const(v[1]), Const(v[2])}
}

func (v Vec3) Values() [3]float64 { return [3]float64{v[0].Val, v[1].Val, v[2].Val} }

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v[0].Add(w[0]), v[1].Add(w[1]), v[2].Add(w[2])} }

func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v[0].Sub(w[0]), v[1].Sub(w[1]), v[2].Sub(w[2])} }

func (v Vec3) Mul(s Real) Vec3 { return Vec3{v[0].Mul(s), v[1].Mul(s), v[2].Mul(s)} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0].Scale(s), v[1].Scale(s), v[2].Scale(s)} }

// CmptMul multiplies component by component
func (v Vec3) CmptMul(w Vec3) Vec3 { return Vec3{v[0].Mul(w[0]), v[1].Mul(w[1]), v[2].Mul(w[2])} }

func (v Vec3) Dot(w Vec3) Real {
	return v[0].Mul(w[0]).Add(v[1].Mul(w[1])).Add(v[2].Mul(w[2]))
}

// DotF is v . f for a passive vector f
func (v Vec3) DotF(f [3]float64) Real {
	return v[0].Scale(f[0]).Add(v[1].Scale(f[1])).Add(v[2].Scale(f[2]))
}

func (v Vec3) MagSqr() Real { return v.Dot(v) }

// CmptAv is the component average
func (v Vec3) CmptAv() Real { return v[0].Add(v[1]).Add(v[2]).Scale(1. / 3.) }

// CmptMin is the smallest component
func (v Vec3) CmptMin() Real { return Min(Min(v[0], v[1]), v[2]) }

// OuterF is f ⊗ v for a passive f, (f ⊗ v)_ij = f_i v_j
func OuterF(f [3]float64, v Vec3) (t Tensor) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[3*i+j] = v[j].Scale(f[i])
		}
	}
	return
}

func (t Tensor) Add(o Tensor) (r Tensor) {
	for i := range t {
		r[i] = t[i].Add(o[i])
	}
	return
}

func (t Tensor) Mul(s Real) (r Tensor) {
	for i := range t {
		r[i] = t[i].Mul(s)
	}
	return
}

func (t Tensor) Scale(s float64) (r Tensor) {
	for i := range t {
		r[i] = t[i].Scale(s)
	}
	return
}

func (t Tensor) T() (r Tensor) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[3*i+j] = t[3*j+i]
		}
	}
	return
}

func (t Tensor) Tr() Real { return t[0].Add(t[4]).Add(t[8]) }

// Dev2 is t - (2/3) tr(t) I
func (t Tensor) Dev2() (r Tensor) {
	r = t
	tr := t.Tr().Scale(2. / 3.)
	for i := 0; i < 3; i++ {
		r[4*i] = t[4*i].Sub(tr)
	}
	return
}

// LeftDotF is f . t for a passive f, (f . t)_j = f_i t_ij
func (t Tensor) LeftDotF(f [3]float64) (v Vec3) {
	for j := 0; j < 3; j++ {
		v[j] = t[j].Scale(f[0]).Add(t[3+j].Scale(f[1])).Add(t[6+j].Scale(f[2]))
	}
	return
}

// MagSkew is |0.5*(t - t^T)|, the Frobenius norm of the skew part
func (t Tensor) MagSkew() Real {
	var s Real
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				continue
			}
			w := t[3*i+j].Sub(t[3*j+i]).Scale(0.5)
			s = s.Add(w.Sqr())
		}
	}
	if s.Val == 0 {
		return Real{}
	}
	return s.Sqrt()
}

func Lerp(a, b Real, w float64) Real { return a.Scale(w).Add(b.Scale(1 - w)) }

func LerpVec3(a, b Vec3, w float64) Vec3 { return a.Scale(w).Add(b.Scale(1 - w)) }

func LerpTensor(a, b Tensor, w float64) Tensor { return a.Scale(w).Add(b.Scale(1 - w)) }

func NearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
