package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig marks preferences that are malformed or statically contradictory.
	ErrConfig = errors.New("mealplanner: invalid configuration")

	// ErrInfeasible marks a model without any assignment satisfying its hard constraints.
	ErrInfeasible = errors.New("mealplanner: infeasible model")

	// ErrSolverTimeout is returned when the time budget ran out before any
	// feasible plan was found. With a feasible plan in hand the solver returns
	// it flagged suboptimal instead.
	ErrSolverTimeout = errors.New("mealplanner: solver time budget exhausted")

	// ErrHardViolation is returned when re-validation finds a hard constraint that
	// the solver reported as satisfied.
	ErrHardViolation = errors.New("mealplanner: hard constraint violated")
)

// ConfigError names the offending preference field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// InfeasibleModelError reports which constraint families had to be dropped, or
// which slots have no eligible meal at all.
type InfeasibleModelError struct {
	Families []Family
	Slots    []Slot
	Reason   string
}

func (e *InfeasibleModelError) Error() string {
	var b strings.Builder
	b.WriteString("infeasible model")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Slots) > 0 {
		names := make([]string, len(e.Slots))
		for i, s := range e.Slots {
			names[i] = s.String()
		}
		fmt.Fprintf(&b, "; slots without eligible meals: %s", strings.Join(names, ", "))
	}
	if len(e.Families) > 0 {
		names := make([]string, len(e.Families))
		for i, f := range e.Families {
			names[i] = string(f)
		}
		fmt.Fprintf(&b, "; relaxed families: %s", strings.Join(names, ", "))
	}
	return b.String()
}

func (e *InfeasibleModelError) Unwrap() error { return ErrInfeasible }
