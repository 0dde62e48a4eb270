// Package solver finds a minimum-objective assignment for an assembled meal
// plan model by branch and bound over LP relaxations.
//
// When the hard constraints admit no assignment, Solve demotes constraint
// families to soft in the fixed models.RelaxationPrecedence order until a plan
// exists, then re-hardens every demoted family that is not needed, so the
// reported removed set is minimal. Structural slot rows and the budget are
// never demoted.
//
// A Solver holds no state between calls; concurrent Solve calls are safe as
// long as each works on its own constraint set.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chrisdamba/mealplanner/internal/assembler"
	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// Options tune a solve. Zero values take the documented defaults.
type Options struct {
	// TimeBudget bounds the wall clock of one Solve, relaxation included.
	// Zero disables the budget.
	TimeBudget time.Duration

	// MaxNodes bounds the branch and bound nodes of each attempt. Zero means
	// unlimited.
	MaxNodes int

	// Tolerance is passed to the simplex; it is tightened by 1e-2 on retry.
	Tolerance float64

	// RelaxationPenalty is the weight per unit of violation of a demoted family.
	RelaxationPenalty float64

	// Progress, when set, is called from the solving goroutine.
	Progress func(Progress)
}

// Progress is a snapshot of a running search.
type Progress struct {
	Attempt      int
	Nodes        int
	HasIncumbent bool
	Incumbent    float64
	Done         bool
}

// OptionsFrom maps the request's solver settings onto Options.
func OptionsFrom(o models.SolverOptions) Options {
	return Options{
		TimeBudget:        o.TimeBudget,
		MaxNodes:          o.MaxNodes,
		Tolerance:         o.Tolerance,
		RelaxationPenalty: o.RelaxationPenalty,
	}
}

// Solution is an accepted assignment.
type Solution struct {
	// Set is the constraint set actually solved, with relaxed families soft.
	Set   *constraints.Set
	Model *assembler.Model

	// Choice[i] is the selection variable chosen for slot i.
	Choice     []int
	Assignment map[constraints.VarKey]bool
	Objective  float64
	Evaluation assembler.Evaluation

	// Relaxed is the minimal set of families demoted to reach feasibility.
	Relaxed []models.Family

	Suboptimal bool
	Cancelled  bool
	Stats      models.SolveStats
}

// Selected reports whether the meal is assigned to the slot.
func (s *Solution) Selected(key constraints.VarKey) bool {
	return s.Assignment[key]
}

type Solver struct {
	opts Options
}

func New(opts Options) *Solver {
	if opts.Tolerance <= 0 {
		opts.Tolerance = models.DefaultTolerance
	}
	if opts.RelaxationPenalty <= 0 {
		opts.RelaxationPenalty = models.DefaultRelaxationPenalty
	}
	return &Solver{opts: opts}
}

// attempt is the outcome of one branch and bound over one model.
type attempt struct {
	model  *assembler.Model
	engine *bbEngine
}

func (a attempt) found() bool { return a.engine.foundAny }

type run struct {
	s        *Solver
	ctx      context.Context
	deadline time.Time
	start    time.Time
	stats    models.SolveStats

	// notMinimal is set when the relaxed set could not be shown minimal.
	notMinimal bool
}

// Solve assembles and solves set, relaxing families when it is infeasible.
//
// Errors: *models.InfeasibleModelError when slots have no eligible meal or no
// relaxation yields a plan; models.ErrSolverTimeout when the budget ran out
// before any plan was found; the context error when cancelled before any plan
// was found. With a plan in hand a halted search returns it flagged instead.
func (s *Solver) Solve(ctx context.Context, set *constraints.Set) (*Solution, error) {
	r := &run{s: s, ctx: ctx, start: time.Now()}
	if s.opts.TimeBudget > 0 {
		r.deadline = r.start.Add(s.opts.TimeBudget)
	}

	first, err := r.attempt(set)
	if err != nil {
		return nil, err
	}
	if first.found() {
		return r.solution(set, first, nil), nil
	}
	if err := r.haltErr(first); err != nil {
		return nil, err
	}

	log.Printf("No feasible plan with all hard constraints after %d nodes, starting relaxation", first.engine.stats.Nodes)
	var demoted []models.Family
	var last attempt
	var lastSet *constraints.Set
	for _, group := range models.RelaxationPrecedence {
		var add []models.Family
		for _, f := range group {
			if set.HasHard(f) {
				add = append(add, f)
			}
		}
		if len(add) == 0 {
			continue
		}
		demoted = append(demoted, add...)
		lastSet = set.Demote(demoted, s.opts.RelaxationPenalty)
		log.Printf("Relaxing %v with penalty %g", add, s.opts.RelaxationPenalty)

		last, err = r.attempt(lastSet)
		if err != nil {
			return nil, err
		}
		if last.found() {
			break
		}
		if err := r.haltErr(last); err != nil {
			return nil, err
		}
	}
	if lastSet == nil || !last.found() {
		return nil, &models.InfeasibleModelError{
			Families: demoted,
			Reason:   "no feasible plan even with every relaxable family demoted",
		}
	}

	if last.engine.halt != notHalted {
		r.notMinimal = true
	} else {
		var minimal bool
		demoted, minimal, err = reharden(demoted, func(trial []models.Family) (bool, bool, error) {
			trialSet := set.Demote(trial, s.opts.RelaxationPenalty)
			a, err := r.attempt(trialSet)
			if err != nil {
				return false, false, err
			}
			if a.found() {
				last, lastSet = a, trialSet
			}
			return a.found(), a.engine.halt != notHalted, nil
		})
		if err != nil {
			return nil, err
		}
		r.notMinimal = !minimal
	}
	if r.notMinimal {
		log.Printf("Stopped before every relaxed family was re-hardened; %v may not all be needed", demoted)
	}

	log.Printf("Feasible after relaxing %v", demoted)
	return r.solution(lastSet, last, demoted), nil
}

// reharden restores the demoted families to hard one at a time and keeps a
// family soft only when try finds no plan without demoting it. try reports
// whether a plan was found and whether its search halted. The second result is
// false when a halted search left some family undecided.
func reharden(demoted []models.Family, try func(trial []models.Family) (found, halted bool, err error)) ([]models.Family, bool, error) {
	for i := 0; i < len(demoted); {
		trial := append(append([]models.Family(nil), demoted[:i]...), demoted[i+1:]...)
		found, halted, err := try(trial)
		if err != nil {
			return nil, false, err
		}
		if found {
			log.Printf("Family %s is not needed for feasibility, keeping it hard", demoted[i])
			demoted = trial
			continue
		}
		if halted {
			return demoted, false, nil
		}
		i++
	}
	return demoted, true, nil
}

// SolveModel runs a single branch and bound over an assembled model without
// any relaxation.
func (s *Solver) SolveModel(ctx context.Context, m *assembler.Model) (*Solution, error) {
	r := &run{s: s, ctx: ctx, start: time.Now()}
	if s.opts.TimeBudget > 0 {
		r.deadline = r.start.Add(s.opts.TimeBudget)
	}
	a := r.search(m)
	if a.found() {
		return r.solution(m.Set, a, nil), nil
	}
	if err := r.haltErr(a); err != nil {
		return nil, err
	}
	return nil, &models.InfeasibleModelError{Reason: "no assignment satisfies the hard constraints"}
}

func (r *run) attempt(set *constraints.Set) (attempt, error) {
	m, err := assembler.Assemble(set)
	if err != nil {
		return attempt{}, err
	}
	return r.search(m), nil
}

func (r *run) search(m *assembler.Model) attempt {
	r.stats.Attempts++
	e := newEngine(r.ctx, m, r.s.opts, r.deadline, r.stats.Attempts)
	e.run()
	r.absorb(e)
	return attempt{model: m, engine: e}
}

func (r *run) absorb(e *bbEngine) {
	r.stats.Nodes += e.stats.Nodes
	r.stats.LPSolves += e.stats.LPSolves
	r.stats.NumericRetries += e.stats.NumericRetries
	r.stats.NumericFailures += e.stats.NumericFailures
	if e.stats.NumericRetries > 0 {
		log.Printf("Attempt %d: %d LP solves retried with tightened tolerance, %d failed", e.attempt, e.stats.NumericRetries, e.stats.NumericFailures)
	}
}

// haltErr maps a search that stopped without any plan to its error.
func (r *run) haltErr(a attempt) error {
	switch a.engine.halt {
	case haltCancelled:
		return fmt.Errorf("solver: cancelled before a plan was found: %w", r.ctx.Err())
	case haltDeadline, haltNodeLimit:
		log.Printf("Solver stopped after %d nodes in %s without a plan", r.stats.Nodes, time.Since(r.start))
		return models.ErrSolverTimeout
	}
	return nil
}

func (r *run) solution(set *constraints.Set, a attempt, relaxed []models.Family) *Solution {
	e := a.engine
	choice, ev, complete := r.canonicalize(a.model, e.best, e.bestEval)

	assign := make(map[constraints.VarKey]bool, a.model.NumSelection)
	for i := 0; i < a.model.NumSelection; i++ {
		assign[a.model.Vars[i].Key] = false
	}
	for _, v := range choice {
		assign[a.model.Vars[v].Key] = true
	}

	r.stats.Elapsed = time.Since(r.start)
	sol := &Solution{
		Set:        set,
		Model:      a.model,
		Choice:     choice,
		Assignment: assign,
		Objective:  ev.Objective,
		Evaluation: ev,
		Relaxed:    relaxed,
		Suboptimal: e.halt != notHalted || !complete || r.notMinimal,
		Cancelled:  e.halt == haltCancelled || errors.Is(r.ctx.Err(), context.Canceled),
		Stats:      r.stats,
	}
	switch {
	case sol.Cancelled:
		log.Printf("Solve cancelled after %d nodes, returning best plan found (objective %.4f)", r.stats.Nodes, sol.Objective)
	case sol.Suboptimal:
		log.Printf("Solver budget exhausted after %d nodes, returning best plan found (objective %.4f)", r.stats.Nodes, sol.Objective)
	}
	return sol
}

// IsTimeout reports whether err means the budget ran out without a plan.
func IsTimeout(err error) bool {
	return errors.Is(err, models.ErrSolverTimeout)
}
