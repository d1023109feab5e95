package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
)

type MeshParameters struct {
	NX    int      `json:"nx"`
	NY    int      `json:"ny"`
	NZ    int      `json:"nz"`
	LX    float64  `json:"lx"`
	LY    float64  `json:"ly"`
	LZ    float64  `json:"lz"`
	Walls []string `json:"walls"`
}

type SolverParameters struct {
	Solver    string  `json:"solver"` // PCG or PBiCGStab
	Tolerance float64 `json:"tolerance"`
	MaxIter   int     `json:"maxIter"`
}

type ObjectiveParameters struct {
	Type      string     `json:"type"` // force or totalPressureFlux
	Patches   []string   `json:"patches"`
	Direction [3]float64 `json:"direction"`
}

type AdjEqnOption struct {
	AdjEqnSolMethod string  `json:"adjEqnSolMethod"`
	FPMaxIters      int     `json:"fpMaxIters"`
	FPRelTol        float64 `json:"fpRelTol"`
	RelaxU          float64 `json:"relaxU"`
	RelaxP          float64 `json:"relaxP"`
	RelaxPhi        float64 `json:"relaxPhi"`
	RelaxNuTilda    float64 `json:"relaxNuTilda"`
	CheckTranspose  bool    `json:"checkTranspose"`
}

// Parameters obtained from the YAML case file
type CaseParameters struct {
	Title           string         `json:"Title"`
	Mesh            MeshParameters `json:"Mesh"`
	Nu              float64        `json:"Nu"`
	TurbulenceModel string         `json:"TurbulenceModel"` // laminar or SpalartAllmaras
	// First key is the field, second the patch name, value the condition type
	BCs map[string]map[string]string `json:"BCs"`
	// Values imposed on the fixed patches, keyed by patch name
	InletU          [3]float64 `json:"InletU"`
	InletNuTilda    float64    `json:"InletNuTilda"`
	InitialNuTilda  float64    `json:"InitialNuTilda"`
	PrimalMaxIters  int        `json:"PrimalMaxIters"`
	PrimalTol       float64    `json:"PrimalTol"`
	RelaxUEqn       float64    `json:"RelaxUEqn"`
	RelaxP          float64    `json:"RelaxP"`
	RelaxNuTildaEqn float64    `json:"RelaxNuTildaEqn"`
	PRefCell        int        `json:"PRefCell"`
	PRefValue       float64    `json:"PRefValue"`
	// Linear solvers keyed by field name, U p or nuTilda
	Solvers      map[string]SolverParameters `json:"Solvers"`
	Objective    ObjectiveParameters         `json:"Objective"`
	AdjEqnOption AdjEqnOption                `json:"AdjEqnOption"`
}

// NewCaseParameters carries the defaults that a case file overrides
func NewCaseParameters() (cp *CaseParameters) {
	cp = &CaseParameters{
		Title:           "channel",
		Mesh:            MeshParameters{NX: 20, NY: 10, NZ: 1, LX: 2, LY: 1, LZ: 0.1, Walls: []string{"bottom", "top"}},
		Nu:              1.e-2,
		TurbulenceModel: "laminar",
		BCs: map[string]map[string]string{
			"U":       {"inlet": "fixedValue", "bottom": "wall", "top": "wall"},
			"p":       {"outlet": "fixedValue"},
			"nuTilda": {"inlet": "fixedValue", "bottom": "wall", "top": "wall"},
		},
		InletU:          [3]float64{1, 0, 0},
		PrimalMaxIters:  1000,
		PrimalTol:       1.e-6,
		RelaxUEqn:       0.7,
		RelaxP:          0.3,
		RelaxNuTildaEqn: 0.7,
		Solvers: map[string]SolverParameters{
			"U":       {Solver: "PBiCGStab", Tolerance: 1.e-8, MaxIter: 1000},
			"p":       {Solver: "PCG", Tolerance: 1.e-8, MaxIter: 1000},
			"nuTilda": {Solver: "PBiCGStab", Tolerance: 1.e-8, MaxIter: 1000},
		},
		Objective: ObjectiveParameters{Type: "totalPressureFlux", Patches: []string{"inlet", "outlet"}},
		AdjEqnOption: AdjEqnOption{
			AdjEqnSolMethod: "fixedPoint",
			FPMaxIters:      1000,
			FPRelTol:        1.e-6,
			RelaxU:          1,
			RelaxP:          1,
			RelaxPhi:        1,
			RelaxNuTilda:    1,
		},
	}
	cp.InletNuTilda = 3 * cp.Nu
	cp.InitialNuTilda = cp.InletNuTilda
	return
}

func (cp *CaseParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, cp); err != nil {
		return
	}
	return cp.Validate()
}

func (cp *CaseParameters) Validate() error {
	m := cp.Mesh
	switch {
	case m.NX < 1 || m.NY < 1 || m.NZ < 1:
		return fmt.Errorf("mesh needs at least one cell per direction, have %dx%dx%d", m.NX, m.NY, m.NZ)
	case m.LX <= 0 || m.LY <= 0 || m.LZ <= 0:
		return fmt.Errorf("mesh extents must be positive, have %gx%gx%g", m.LX, m.LY, m.LZ)
	case cp.Nu <= 0:
		return fmt.Errorf("viscosity Nu = %g must be positive", cp.Nu)
	case cp.PrimalMaxIters < 0:
		return fmt.Errorf("PrimalMaxIters = %d must not be negative", cp.PrimalMaxIters)
	}
	for field := range cp.BCs {
		switch field {
		case "U", "p", "nuTilda":
		default:
			return fmt.Errorf("boundary conditions given for unknown field \"%s\"", field)
		}
	}
	return nil
}

// Solver returns the linear solver settings of field, the defaults when the
// case file has none.
func (cp *CaseParameters) Solver(field string) SolverParameters {
	if sp, ok := cp.Solvers[field]; ok {
		return sp
	}
	return SolverParameters{Solver: "PBiCGStab", Tolerance: 1.e-8, MaxIter: 1000}
}

func (cp *CaseParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", cp.Title)
	fmt.Printf("[%dx%dx%d]\t\t= Mesh cells, extents %gx%gx%g, walls %v\n",
		cp.Mesh.NX, cp.Mesh.NY, cp.Mesh.NZ, cp.Mesh.LX, cp.Mesh.LY, cp.Mesh.LZ, cp.Mesh.Walls)
	fmt.Printf("%8.5g\t\t= Nu\n", cp.Nu)
	fmt.Printf("[%s]\t\t= Turbulence Model\n", cp.TurbulenceModel)
	fmt.Printf("%v\t\t= Inlet U\n", cp.InletU)
	fmt.Printf("[%d]\t\t\t= Primal Max Iterations, tolerance %g\n", cp.PrimalMaxIters, cp.PrimalTol)
	fmt.Printf("%8.5f\t\t= RelaxUEqn\n", cp.RelaxUEqn)
	fmt.Printf("%8.5f\t\t= RelaxP\n", cp.RelaxP)
	fmt.Printf("[%s]\t= Objective on %s\n", cp.Objective.Type, strings.Join(cp.Objective.Patches, ", "))
	ao := cp.AdjEqnOption
	fmt.Printf("[%s]\t\t= Adjoint Method, fpMaxIters = %d, fpRelTol = %g\n", ao.AdjEqnSolMethod, ao.FPMaxIters, ao.FPRelTol)
	fmt.Printf("relaxU = %g, relaxP = %g, relaxPhi = %g, relaxNuTilda = %g\n",
		ao.RelaxU, ao.RelaxP, ao.RelaxPhi, ao.RelaxNuTilda)
	keys := make([]string, len(cp.BCs))
	i := 0
	for k := range cp.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, cp.BCs[key])
	}
}
