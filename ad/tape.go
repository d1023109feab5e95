// Package ad implements reverse-mode algorithmic differentiation with a tape
// that is recorded once and evaluated many times with different output seeds.
package ad

import (
	"fmt"
)

type argument struct {
	id      int32
	partial float64
}

type statement struct {
	lhs              int32
	argStart, argEnd int32
}

/*
Tape holds the recorded program of one differentiation session.

The life cycle is:

	Reset -> SetActive -> RegisterInput... -> (computation) -> RegisterOutput... -> SetPassive
	then any number of: SetGradient... -> Evaluate -> Gradient... -> ClearAdjoints

A Tape has a single owner, none of its methods are safe for concurrent use.
*/
type Tape struct {
	active   bool
	recorded bool
	epoch    int32
	nextID   int32
	stmts    []statement
	args     []argument
	adjoints []float64
	nInputs  int
	nOutputs int
}

type TapeStats struct {
	Statements, Arguments int
	Inputs, Outputs       int
	Identifiers           int
	MemoryBytes           int
}

func NewTape() (t *Tape) {
	t = &Tape{}
	t.Reset()
	return
}

// Reset discards the recorded program. Values registered in a previous
// session become passive constants.
func (t *Tape) Reset() {
	if t.active {
		panic(fmt.Errorf("tape: reset called while recording"))
	}
	t.epoch++
	t.nextID = 1
	t.stmts = t.stmts[:0]
	t.args = t.args[:0]
	t.adjoints = t.adjoints[:0]
	t.nInputs, t.nOutputs = 0, 0
	t.recorded = false
}

func (t *Tape) SetActive() {
	if t.recorded {
		panic(fmt.Errorf("tape: already holds a recording, Reset before recording again"))
	}
	t.active = true
}

func (t *Tape) SetPassive() {
	if t.active {
		t.recorded = true
	}
	t.active = false
}

func (t *Tape) IsActive() bool { return t.active }

func (t *Tape) IsRecorded() bool { return t.recorded }

func (t *Tape) RegisterInput(r *Real) {
	t.mustBeActive("RegisterInput")
	r.id = t.newID()
	r.epoch = t.epoch
	r.tape = t
	t.nInputs++
}

// RegisterOutput gives r an identifier of its own, so that seeding one output
// never aliases another output or an input.
func (t *Tape) RegisterOutput(r *Real) {
	t.mustBeActive("RegisterOutput")
	if r.tapeFor() == t {
		*r = t.push1(r.Val, r.id, 1)
	} else {
		r.id = t.newID()
		r.epoch = t.epoch
		r.tape = t
	}
	t.nOutputs++
}

func (t *Tape) SetGradient(r Real, g float64) {
	if !t.owns(r) {
		return
	}
	t.growAdjoints()
	t.adjoints[r.id] = g
}

func (t *Tape) Gradient(r Real) float64 {
	if !t.owns(r) || int(r.id) >= len(t.adjoints) {
		return 0
	}
	return t.adjoints[r.id]
}

// Evaluate propagates the seeded output adjoints back to the inputs.
func (t *Tape) Evaluate() {
	if !t.recorded {
		panic(fmt.Errorf("tape: Evaluate called before a program was recorded"))
	}
	if t.active {
		panic(fmt.Errorf("tape: Evaluate called while recording"))
	}
	t.growAdjoints()
	var (
		adj  = t.adjoints
		args = t.args
	)
	for i := len(t.stmts) - 1; i >= 0; i-- {
		s := t.stmts[i]
		a := adj[s.lhs]
		if a == 0 {
			continue
		}
		for _, arg := range args[s.argStart:s.argEnd] {
			adj[arg.id] += arg.partial * a
		}
	}
}

func (t *Tape) ClearAdjoints() {
	for i := range t.adjoints {
		t.adjoints[i] = 0
	}
}

func (t *Tape) Stats() (ts TapeStats) {
	ts = TapeStats{
		Statements:  len(t.stmts),
		Arguments:   len(t.args),
		Inputs:      t.nInputs,
		Outputs:     t.nOutputs,
		Identifiers: int(t.nextID) - 1,
	}
	ts.MemoryBytes = 12*len(t.stmts) + 16*len(t.args) + 8*len(t.adjoints)
	return
}

func (ts TapeStats) String() string {
	return fmt.Sprintf("statements = %d, arguments = %d, inputs = %d, outputs = %d, memory = %.2f MiB",
		ts.Statements, ts.Arguments, ts.Inputs, ts.Outputs, float64(ts.MemoryBytes)/(1024*1024))
}

func (t *Tape) mustBeActive(op string) {
	if !t.active {
		panic(fmt.Errorf("tape: %s called on a passive tape", op))
	}
}

func (t *Tape) owns(r Real) bool {
	return r.id != 0 && r.tape == t && r.epoch == t.epoch
}

func (t *Tape) newID() (id int32) {
	id = t.nextID
	t.nextID++
	return
}

func (t *Tape) growAdjoints() {
	if n := int(t.nextID); len(t.adjoints) < n {
		t.adjoints = append(t.adjoints, make([]float64, n-len(t.adjoints))...)
	}
}

func (t *Tape) push1(val float64, id int32, partial float64) Real {
	start := int32(len(t.args))
	t.args = append(t.args, argument{id, partial})
	return t.emit(val, start)
}

func (t *Tape) push2(val float64, idA int32, pA float64, idB int32, pB float64) Real {
	start := int32(len(t.args))
	t.args = append(t.args, argument{idA, pA}, argument{idB, pB})
	return t.emit(val, start)
}

func (t *Tape) emit(val float64, start int32) (r Real) {
	r = Real{Val: val, id: t.newID(), epoch: t.epoch, tape: t}
	t.stmts = append(t.stmts, statement{lhs: r.id, argStart: start, argEnd: int32(len(t.args))})
	return
}
