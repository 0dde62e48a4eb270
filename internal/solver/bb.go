package solver

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"github.com/chrisdamba/mealplanner/internal/assembler"
	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// Integrality and pruning tolerance.
const eps = 1e-6

// centGrain is the objective granularity when every selection cost is a whole
// number of cents and no penalty can be paid.
const centGrain = 0.01

// haltReason records why a search stopped before exhausting the tree.
type haltReason int

const (
	notHalted haltReason = iota
	haltDeadline
	haltNodeLimit
	haltCancelled
)

// bbEngine is a depth-first branch and bound over the selection variables of
// one model. A node first propagates activity bounds of the hard rows over the
// slot structure, zeroing variables that cannot appear in any completion, then
// solves the linear relaxation. Nodes whose bound cannot beat the incumbent by
// more than eps, or by a whole cent when the objective moves in cents, are
// pruned.
//
// Branching is per slot and deterministic: the first slot in grid order whose
// relaxation is fractional gets one child per candidate meal, and children are
// explored by ascending bound, lowest variable first on ties.
type bbEngine struct {
	ctx      context.Context
	model    *assembler.Model
	tol      float64
	deadline time.Time
	maxNodes int
	progress func(Progress)
	attempt  int

	state []int8

	// capped adds the row objective <= limit; firstOnly stops at the first
	// incumbent. Together they turn the search into a feasibility check.
	capped    bool
	limit     float64
	firstOnly bool

	grain  float64
	rows   []activityRow
	costs  []float64
	slotLo []float64
	slotHi []float64

	best     []int
	bestEval assembler.Evaluation
	foundAny bool

	halt  haltReason
	stats models.SolveStats
}

// activityRow is a hard row lo <= coef·x <= hi over the selection variables.
type activityRow struct {
	coef   []float64
	lo, hi float64
	slack  float64
}

func newEngine(ctx context.Context, m *assembler.Model, opts Options, deadline time.Time, attempt int) *bbEngine {
	e := &bbEngine{
		ctx:      ctx,
		model:    m,
		tol:      opts.Tolerance,
		deadline: deadline,
		maxNodes: opts.MaxNodes,
		progress: opts.Progress,
		attempt:  attempt,
		state:    make([]int8, m.NumSelection),
		grain:    costGrain(m),
		rows:     activityRows(m),
		costs:    make([]float64, m.NumSelection),
		slotLo:   make([]float64, len(m.SlotVars)),
		slotHi:   make([]float64, len(m.SlotVars)),
	}
	for i := range e.state {
		e.state[i] = free
		e.costs[i] = m.Vars[i].Cost
	}
	return e
}

// costGrain returns centGrain when every plan objective is a whole number of
// cents, zero otherwise.
func costGrain(m *assembler.Model) float64 {
	if len(m.Vars) > m.NumSelection {
		return 0
	}
	for i := 0; i < m.NumSelection; i++ {
		c := m.Vars[i].Cost / centGrain
		if math.Abs(c-math.Round(c)) > 1e-6 {
			return 0
		}
	}
	return centGrain
}

// activityRows collects the rows without penalty variables, slot rows aside.
func activityRows(m *assembler.Model) []activityRow {
	var out []activityRow
	for _, r := range m.Rows {
		if m.Constraint(r.Constraint).Family == models.FamilyOneMealPerSlot {
			continue
		}
		hard := true
		for _, en := range r.Entries {
			if en.Var >= m.NumSelection {
				hard = false
				break
			}
		}
		if !hard {
			continue
		}
		ar := activityRow{
			coef:  make([]float64, m.NumSelection),
			lo:    math.Inf(-1),
			hi:    math.Inf(1),
			slack: constraints.FeasibilityTol * math.Max(1, math.Abs(r.RHS)),
		}
		for _, en := range r.Entries {
			ar.coef[en.Var] += en.Coef
		}
		switch r.Sense {
		case assembler.GE:
			ar.lo = r.RHS
		case assembler.LE:
			ar.hi = r.RHS
		default:
			ar.lo, ar.hi = r.RHS, r.RHS
		}
		out = append(out, ar)
	}
	return out
}

// run explores the whole tree unless halted.
func (e *bbEngine) run() {
	if rel, ok := e.node(); ok {
		e.explore(rel)
	}
	e.report(true)
}

// expired checks cancellation and the deadline. The simplex polls it.
func (e *bbEngine) expired() bool {
	if e.halt == haltDeadline || e.halt == haltCancelled {
		return true
	}
	switch {
	case e.ctx.Err() != nil:
		if errors.Is(e.ctx.Err(), context.DeadlineExceeded) {
			e.halt = haltDeadline
		} else {
			e.halt = haltCancelled
		}
	case !e.deadline.IsZero() && time.Now().After(e.deadline):
		e.halt = haltDeadline
	}
	return e.halt != notHalted
}

// halted adds the node limit to expired. It is called once per node.
func (e *bbEngine) halted() bool {
	if e.halt != notHalted || e.expired() {
		return true
	}
	if e.maxNodes > 0 && e.stats.Nodes >= e.maxNodes {
		e.halt = haltNodeLimit
	}
	return e.halt != notHalted
}

// pin fixes variable v as the choice of slot.
func (e *bbEngine) pin(slot, v int) {
	for _, o := range e.model.SlotVars[slot] {
		e.state[o] = zero
	}
	e.state[v] = fixed
}

// node evaluates the current state. It reports false when the node is
// infeasible, pruned or the search halted.
func (e *bbEngine) node() (relaxation, bool) {
	if e.halted() || (e.firstOnly && e.foundAny) {
		return relaxation{}, false
	}
	e.stats.Nodes++
	if e.stats.Nodes&63 == 0 {
		e.report(false)
	}

	if !e.propagate() {
		return relaxation{}, false
	}
	rel, err := e.relax()
	if errors.Is(err, errInterrupted) {
		return relaxation{}, false
	}
	if err != nil {
		log.Printf("Attempt %d: node %d pruned after LP failure: %v", e.attempt, e.stats.Nodes, err)
		return relaxation{}, false
	}
	if !rel.feasible || e.pruned(rel.bound) {
		return relaxation{}, false
	}
	return rel, true
}

type child struct {
	rel   relaxation
	state []int8
}

// explore branches on the first fractional slot of rel, or offers rel when
// it is integral. The state is restored on return.
func (e *bbEngine) explore(rel relaxation) {
	slot := e.branchSlot(rel.x)
	if slot < 0 {
		e.offer(rel.x)
		return
	}

	saved := append([]int8(nil), e.state...)
	defer func() { copy(e.state, saved) }()

	var kids []child
	for _, v := range e.model.SlotVars[slot] {
		if saved[v] == zero {
			continue
		}
		copy(e.state, saved)
		e.pin(slot, v)
		r, ok := e.node()
		if e.halt != notHalted || (e.firstOnly && e.foundAny) {
			return
		}
		if !ok {
			continue
		}
		if e.branchSlot(r.x) < 0 {
			e.offer(r.x)
			continue
		}
		kids = append(kids, child{rel: r, state: append([]int8(nil), e.state...)})
	}
	sort.SliceStable(kids, func(i, j int) bool { return kids[i].rel.bound < kids[j].rel.bound })

	for _, k := range kids {
		if e.halted() || (e.firstOnly && e.foundAny) {
			return
		}
		if e.pruned(k.rel.bound) {
			continue
		}
		copy(e.state, k.state)
		e.explore(k.rel)
	}
}

// pruned reports whether a node with this relaxation bound cannot improve on
// the incumbent.
func (e *bbEngine) pruned(bound float64) bool {
	if !e.foundAny {
		return false
	}
	if e.grain > 0 {
		bound = math.Ceil(bound/e.grain-1e-4) * e.grain
	}
	ub := e.bestEval.Objective
	return bound >= ub-pruneGap(ub)
}

func pruneGap(ub float64) float64 {
	return eps * math.Max(1, math.Abs(ub))
}

// objectiveLimit bounds the selection cost of any plan still worth finding.
// Penalty weights are never negative, so the selection part alone may be
// bounded by the full objective limit.
func (e *bbEngine) objectiveLimit() (float64, bool) {
	switch {
	case e.capped:
		return e.limit, true
	case !e.foundAny:
		return 0, false
	case e.grain > 0:
		return e.bestEval.Objective - e.grain + e.grain*1e-2, true
	}
	return e.bestEval.Objective - pruneGap(e.bestEval.Objective), true
}

// propagate zeroes every free variable that cannot be completed into an
// assignment within the hard rows and the objective limit, until nothing
// changes. A slot left with one candidate has it fixed. It reports false when
// some row cannot be met or some slot has no candidate left.
func (e *bbEngine) propagate() bool {
	rows := e.rows
	if hi, ok := e.objectiveLimit(); ok {
		rows = append(rows[:len(rows):len(rows)], activityRow{coef: e.costs, lo: math.Inf(-1), hi: hi})
	}
	for changed := true; changed; {
		changed = false
		for i := range rows {
			ok, ch := e.tighten(&rows[i])
			if !ok {
				return false
			}
			if ch {
				changed = true
			}
		}
	}

	for _, vars := range e.model.SlotVars {
		only, n := -1, 0
		for _, v := range vars {
			if e.state[v] != zero {
				only = v
				n++
			}
		}
		if n == 1 && e.state[only] == free {
			e.state[only] = fixed
		}
	}
	return true
}

func (e *bbEngine) tighten(r *activityRow) (feasible, changed bool) {
	var minAct, maxAct float64
	for s, vars := range e.model.SlotVars {
		lo, hi, open := 0.0, 0.0, false
		for _, v := range vars {
			if e.state[v] == zero {
				continue
			}
			a := r.coef[v]
			if !open {
				lo, hi, open = a, a, true
				continue
			}
			lo, hi = math.Min(lo, a), math.Max(hi, a)
		}
		if !open {
			return false, false
		}
		e.slotLo[s], e.slotHi[s] = lo, hi
		minAct += lo
		maxAct += hi
	}
	if minAct > r.hi+r.slack || maxAct < r.lo-r.slack {
		return false, false
	}

	for s, vars := range e.model.SlotVars {
		for _, v := range vars {
			if e.state[v] != free {
				continue
			}
			a := r.coef[v]
			if minAct-e.slotLo[s]+a > r.hi+r.slack || maxAct-e.slotHi[s]+a < r.lo-r.slack {
				e.state[v] = zero
				changed = true
			}
		}
	}
	return true, changed
}

// branchSlot picks the first slot with a fractional variable, or -1 when the
// relaxation is integral on every selection variable.
func (e *bbEngine) branchSlot(x []float64) int {
	for s, vars := range e.model.SlotVars {
		for _, v := range vars {
			if f := x[v]; f > eps && f < 1-eps {
				return s
			}
		}
	}
	return -1
}

// offer evaluates an integral relaxation exactly and keeps it when it is
// hard-feasible and strictly better than the incumbent.
func (e *bbEngine) offer(x []float64) {
	choice, ok := e.model.Choice(x)
	if !ok {
		return
	}
	ev := e.model.Evaluate(choice)
	if !ev.HardFeasible {
		return
	}
	if e.foundAny && ev.Objective >= e.bestEval.Objective-pruneGap(e.bestEval.Objective) {
		return
	}
	e.best, e.bestEval, e.foundAny = choice, ev, true
	e.report(false)
}

func (e *bbEngine) report(done bool) {
	if e.progress == nil {
		return
	}
	p := Progress{
		Attempt:      e.attempt,
		Nodes:        e.stats.Nodes,
		HasIncumbent: e.foundAny,
		Done:         done,
	}
	if e.foundAny {
		p.Incumbent = e.bestEval.Objective
	}
	e.progress(p)
}
