// Package planner runs one plan request end to end: compile the preferences,
// solve, and interpret the result.
package planner

import (
	"context"
	"log"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/interpreter"
	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/chrisdamba/mealplanner/internal/solver"
)

type Options struct {
	// Progress receives solver snapshots. It is called from the solving
	// goroutine and must not block.
	Progress func(solver.Progress)
}

// Planner shares one read-only catalog among any number of requests.
type Planner struct {
	catalog *catalog.Catalog
	builder *constraints.Builder
	opts    Options
}

func New(c *catalog.Catalog, opts Options) *Planner {
	return &Planner{
		catalog: c,
		builder: constraints.NewBuilder(c),
		opts:    opts,
	}
}

// Catalog returns the shared catalog.
func (p *Planner) Catalog() *catalog.Catalog { return p.catalog }

// Plan solves prefs within its time budget. Configuration errors are returned
// before any solve; a timed-out or cancelled search that found a feasible plan
// returns it flagged rather than failing.
func (p *Planner) Plan(ctx context.Context, prefs *models.Preferences) (*models.Plan, error) {
	grid, err := prefs.Grid()
	if err != nil {
		return nil, err
	}
	set, err := p.builder.Build(grid, prefs)
	if err != nil {
		return nil, err
	}

	opts := solver.OptionsFrom(prefs.Solver)
	opts.Progress = p.opts.Progress
	sol, err := solver.New(opts).Solve(ctx, set)
	if err != nil {
		log.Printf("Solve failed for %d slots: %v", grid.Len(), err)
		return nil, err
	}

	plan, err := interpreter.Interpret(set, sol)
	if err != nil {
		return nil, err
	}
	log.Printf("Plan %s: %d slots, cost %.2f of %.2f, objective %.4f, status %s, %d nodes in %s",
		plan.ID, len(plan.Entries), plan.TotalCost, plan.Budget, plan.Objective,
		plan.Status(), plan.Stats.Nodes, plan.Stats.Elapsed)
	for _, v := range plan.Violations {
		log.Printf("Plan %s: constraint %s violated by %.4f (relaxed=%t)", plan.ID, v.Name, v.Magnitude, v.Relaxed)
	}
	return plan, nil
}

// Job is a plan request running on its own goroutine.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}
	plan   *models.Plan
	err    error
}

// Start runs Plan off the calling goroutine.
func (p *Planner) Start(ctx context.Context, prefs *models.Preferences) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(j.done)
		defer cancel()
		j.plan, j.err = p.Plan(ctx, prefs)
	}()
	return j
}

// Cancel asks the solver to stop at its next node. The best plan found so far,
// if any, is still delivered, flagged cancelled.
func (j *Job) Cancel() { j.cancel() }

// Done is closed once the result is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes.
func (j *Job) Wait() (*models.Plan, error) {
	<-j.done
	return j.plan, j.err
}
