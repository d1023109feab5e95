package types

import (
	"fmt"
	"strings"
)

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_FixedValue
	BC_ZeroGradient
	BC_Calculated
)

var BCNameMap = map[string]BCFLAG{
	"fixedvalue":   BC_FixedValue,
	"dirichlet":    BC_FixedValue,
	"wall":         BC_FixedValue,
	"zerogradient": BC_ZeroGradient,
	"neuman":       BC_ZeroGradient,
	"neumann":      BC_ZeroGradient,
	"calculated":   BC_Calculated,
}

func (bc BCFLAG) String() string {
	switch bc {
	case BC_FixedValue:
		return "fixedValue"
	case BC_ZeroGradient:
		return "zeroGradient"
	case BC_Calculated:
		return "calculated"
	}
	return "none"
}

// Fixes reports whether the patch value is imposed rather than extrapolated
func (bc BCFLAG) Fixes() bool { return bc == BC_FixedValue }

func NewBCFLAG(name string) (bc BCFLAG, err error) {
	var ok bool
	if bc, ok = BCNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		err = fmt.Errorf("unknown boundary condition type: \"%s\"", name)
	}
	return
}
