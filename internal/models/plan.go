package models

import (
	"sort"
	"strconv"
	"time"
)

// PlanEntry is one filled slot.
type PlanEntry struct {
	Slot       Slot                 `json:"slot"`
	MealID     string               `json:"meal_id"`
	Restaurant string               `json:"restaurant"`
	Meal       string               `json:"meal"`
	Price      float64              `json:"price"`
	Nutrition  map[Nutrient]float64 `json:"nutrition"`
}

// NutrientTotals sums nutrients over a set of entries.
type NutrientTotals map[Nutrient]float64

// ConstraintCheck is the independent re-validation result of one constraint.
type ConstraintCheck struct {
	Name      string  `json:"name"`
	Family    Family  `json:"family"`
	Hard      bool    `json:"hard"`
	Relaxed   bool    `json:"relaxed"`
	Value     float64 `json:"value"`
	Lo        float64 `json:"lo"`
	Hi        float64 `json:"hi"`
	Violation float64 `json:"violation"`
	Passed    bool    `json:"passed"`
}

// Violation is a soft or relaxed constraint the plan does not meet.
type Violation struct {
	Name      string  `json:"name"`
	Family    Family  `json:"family"`
	Magnitude float64 `json:"magnitude"`
	Relaxed   bool    `json:"relaxed"`
}

// SolveStats describes the work done for a plan.
type SolveStats struct {
	Attempts        int           `json:"attempts"`
	Nodes           int           `json:"nodes"`
	LPSolves        int           `json:"lp_solves"`
	NumericRetries  int           `json:"numeric_retries"`
	NumericFailures int           `json:"numeric_failures"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Plan is the interpreted weekly plan handed to presentation and export.
type Plan struct {
	ID              string                 `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	Entries         []PlanEntry            `json:"entries"`
	DailyTotals     map[int]NutrientTotals `json:"daily_totals"`
	WeeklyTotals    NutrientTotals         `json:"weekly_totals"`
	TotalCost       float64                `json:"total_cost"`
	Budget          float64                `json:"budget"`
	BudgetUsed      float64                `json:"budget_used_pct"`
	Objective       float64                `json:"objective"`
	AvgCalories     float64                `json:"avg_calories_per_day"`
	AvgProtein      float64                `json:"avg_protein_per_day"`
	Checks          []ConstraintCheck      `json:"checks"`
	Violations      []Violation            `json:"violations"`
	RelaxedFamilies []Family               `json:"relaxed_families"`
	Suboptimal      bool                   `json:"suboptimal"`
	Cancelled       bool                   `json:"cancelled"`
	Stats           SolveStats             `json:"stats"`
}

// Status summarizes the solver flags.
func (p *Plan) Status() string {
	switch {
	case p.Cancelled:
		return PlanStatusCancelled
	case p.Suboptimal:
		return PlanStatusSuboptimal
	}
	return PlanStatusOptimal
}

// Nutrients returns every nutrient appearing in the plan, sorted.
func (p *Plan) Nutrients() []Nutrient {
	seen := make(map[Nutrient]bool)
	var out []Nutrient
	for _, e := range p.Entries {
		for n := range e.Nutrition {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PlanRow is the flat, one-row-per-slot export shape.
type PlanRow struct {
	PlanID      string  `json:"planId"`
	Day         int32   `json:"day"`
	DayName     string  `json:"dayName"`
	MealType    string  `json:"mealType"`
	MealID      string  `json:"mealId"`
	Restaurant  string  `json:"restaurant"`
	Meal        string  `json:"meal"`
	Price       float64 `json:"price"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Fat         float64 `json:"fat"`
	Sugar       float64 `json:"sugar"`
	Calcium     float64 `json:"calcium"`
	Fiber       float64 `json:"fiber"`
	Cholesterol float64 `json:"cholesterol"`
	Status      string  `json:"status"`
}

// Rows flattens the plan, one row per filled slot in slot order.
func (p *Plan) Rows() []PlanRow {
	rows := make([]PlanRow, 0, len(p.Entries))
	status := p.Status()
	for _, e := range p.Entries {
		rows = append(rows, PlanRow{
			PlanID:      p.ID,
			Day:         int32(e.Slot.Day),
			DayName:     DayName(e.Slot.Day),
			MealType:    e.Slot.Meal.String(),
			MealID:      e.MealID,
			Restaurant:  e.Restaurant,
			Meal:        e.Meal,
			Price:       e.Price,
			Calories:    e.Nutrition[Calories],
			Protein:     e.Nutrition[Protein],
			Fat:         e.Nutrition[Fat],
			Sugar:       e.Nutrition[Sugar],
			Calcium:     e.Nutrition[Calcium],
			Fiber:       e.Nutrition[Fiber],
			Cholesterol: e.Nutrition[Cholesterol],
			Status:      status,
		})
	}
	return rows
}

// Table renders the plan as a header plus string rows, with one column per
// nutrient carried by the plan, for CSV export.
func (p *Plan) Table() ([]string, [][]string) {
	nutrients := p.Nutrients()
	header := []string{"plan_id", "day", "day_name", "meal_type", "restaurant", "meal", "price"}
	for _, n := range nutrients {
		header = append(header, string(n))
	}
	header = append(header, "status")

	status := p.Status()
	rows := make([][]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		row := []string{
			p.ID,
			strconv.Itoa(e.Slot.Day),
			DayName(e.Slot.Day),
			e.Slot.Meal.String(),
			e.Restaurant,
			e.Meal,
			strconv.FormatFloat(e.Price, 'f', 2, 64),
		}
		for _, n := range nutrients {
			row = append(row, strconv.FormatFloat(e.Nutrition[n], 'f', -1, 64))
		}
		row = append(row, status)
		rows = append(rows, row)
	}
	return header, rows
}
