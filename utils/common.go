package utils

const (
	// SMALL guards divisions by quantities that can legitimately reach zero
	SMALL  = 1.e-15
	VSMALL = 1.e-300
)

type EvalOp uint8

const (
	Equal EvalOp = iota
	Less
	Greater
	LessOrEqual
	GreaterOrEqual
)

// Compare evaluates (a op b)
func (op EvalOp) Compare(a, b float64) bool {
	switch op {
	case Equal:
		return a == b
	case Less:
		return a < b
	case Greater:
		return a > b
	case LessOrEqual:
		return a <= b
	case GreaterOrEqual:
		return a >= b
	}
	return false
}

// AllBelow is true when every value satisfies (val < tol)
func AllBelow(tol float64, vals ...float64) bool {
	for _, val := range vals {
		if !Less.Compare(val, tol) {
			return false
		}
	}
	return true
}
