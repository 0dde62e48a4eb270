package solver

import (
	"log"

	"github.com/chrisdamba/mealplanner/internal/assembler"
)

// canonicalize returns the lexicographically smallest assignment, by
// (restaurant, meal) key per slot in grid order, whose objective stays within
// eps of the optimum found. Each slot is fixed in turn to the lowest key for
// which a feasibility search under the objective cap succeeds. It reports
// false when the budget ran out first; the assignment is then only partly
// canonical.
func (r *run) canonicalize(m *assembler.Model, choice []int, ev assembler.Evaluation) ([]int, assembler.Evaluation, bool) {
	cur := append([]int(nil), choice...)
	limit := ev.Objective + pruneGap(ev.Objective)

	for i, vars := range m.SlotVars {
		for _, v := range vars {
			if v >= cur[i] {
				break
			}
			e := newEngine(r.ctx, m, r.s.opts, r.deadline, r.stats.Attempts)
			e.progress = nil
			e.capped, e.limit, e.firstOnly = true, limit, true
			for s := 0; s < i; s++ {
				e.pin(s, cur[s])
			}
			e.pin(i, v)
			e.run()
			r.absorb(e)

			if e.foundAny {
				copy(cur, e.best)
				ev = e.bestEval
				break
			}
			if e.halt != notHalted {
				log.Printf("Tie-break stopped at slot %s: %d nodes spent", m.Set.Grid.At(i), r.stats.Nodes)
				return cur, ev, false
			}
		}
	}
	return cur, ev, true
}
