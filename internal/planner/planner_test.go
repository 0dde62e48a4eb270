package planner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/catalog/catalogtest"
	"github.com/chrisdamba/mealplanner/internal/factories"
	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/chrisdamba/mealplanner/internal/planner"
	"github.com/chrisdamba/mealplanner/internal/solver"
)

func tenMeals(t *testing.T) *catalog.Catalog {
	return catalogtest.MustLoad(t,
		catalogtest.Record("Alpha", "Bowl", 12, 700, 35),
		catalogtest.Record("Alpha", "Soup", 6, 320, 12),
		catalogtest.Record("Alpha", "Wrap", 9, 540, 22),
		catalogtest.Record("Beta", "Burger", 14, 900, 40, models.TagFried),
		catalogtest.Record("Beta", "Salad", 7, 260, 9),
		catalogtest.Record("Beta", "Dal", 5, 450, 18, models.TagLegume),
		catalogtest.Record("Gamma", "Curry", 11, 680, 28),
		catalogtest.Record("Gamma", "Noodles", 8, 610, 15),
		catalogtest.Record("Gamma", "Tofu", 10, 400, 25, models.TagGrilled),
		catalogtest.Record("Delta", "Pasta", 9, 720, 20, models.TagBaked),
	)
}

func TestPlanScenario(t *testing.T) {
	p := models.DefaultPreferences()
	p.Budget = 50
	p.SlotsInScope = []models.Slot{{Day: 1, Meal: models.Lunch}, {Day: 1, Meal: models.Dinner}, {Day: 2, Meal: models.Lunch}}

	plan, err := planner.New(tenMeals(t), planner.Options{}).Plan(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)
	assert.LessOrEqual(t, plan.TotalCost, 50.0)
	assert.Greater(t, plan.Entries[0].Nutrition[models.Calories], plan.Entries[1].Nutrition[models.Calories])
	assert.Equal(t, models.PlanStatusOptimal, plan.Status())
}

func TestPlanConfigErrorBeforeSolve(t *testing.T) {
	p := models.DefaultPreferences()
	p.Budget = 1
	p.SlotsInScope = []models.Slot{{Day: 1, Meal: models.Lunch}}

	called := false
	pl := planner.New(tenMeals(t), planner.Options{Progress: func(solver.Progress) { called = true }})
	_, err := pl.Plan(context.Background(), p)
	require.True(t, errors.Is(err, models.ErrConfig))
	assert.False(t, called, "no solve attempted")
}

func TestPlanInvalidPreferences(t *testing.T) {
	p := models.DefaultPreferences()
	p.Budget = -5
	_, err := planner.New(tenMeals(t), planner.Options{}).Plan(context.Background(), p)
	var ce *models.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "budget", ce.Field)
}

func TestPlanAllMealsExcluded(t *testing.T) {
	c := catalogtest.MustLoad(t,
		catalogtest.Record("Alpha", "Satay", 5, 300, 10, models.TagContainsNuts),
		catalogtest.Record("Beta", "Pesto", 6, 420, 12, models.TagContainsNuts),
	)
	p := models.DefaultPreferences()
	p.Days = []int{1}
	p.DietaryFilters = []models.DietaryFilter{models.FilterExcludeNuts}

	_, err := planner.New(c, planner.Options{}).Plan(context.Background(), p)
	var ie *models.InfeasibleModelError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []models.Slot{{Day: 1, Meal: models.Lunch}, {Day: 1, Meal: models.Dinner}}, ie.Slots)
}

func TestStartAndWait(t *testing.T) {
	p := models.DefaultPreferences()
	p.Days = []int{1, 2}

	job := planner.New(tenMeals(t), planner.Options{}).Start(context.Background(), p)
	select {
	case <-job.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("job did not finish")
	}
	plan, err := job.Wait()
	require.NoError(t, err)
	assert.Len(t, plan.Entries, 4)
}

func TestStartCancelled(t *testing.T) {
	p := models.DefaultPreferences()
	p.Days = []int{1, 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := planner.New(tenMeals(t), planner.Options{}).Start(ctx, p)
	job.Cancel()
	_, err := job.Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// Random catalogs from the factory: every accepted plan honours the hard rules.
func TestPlanPropertiesOnSyntheticCatalogs(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		records := factories.NewMealFactory(seed).CreateCatalog(12)
		c, err := catalog.Load(records)
		require.NoError(t, err)

		p := models.DefaultPreferences()
		p.Days = []int{1, 2, 3}
		p.Budget = 200
		p.MaxMealsPerRestaurant = 3
		p.Solver.TimeBudget = 10 * time.Second

		plan, err := planner.New(c, planner.Options{}).Plan(context.Background(), p)
		if errors.Is(err, models.ErrInfeasible) || errors.Is(err, models.ErrConfig) {
			continue
		}
		require.NoError(t, err, "seed %d", seed)

		assert.LessOrEqual(t, plan.TotalCost, p.Budget+1e-9)
		require.Len(t, plan.Entries, 6)
		relaxed := map[models.Family]bool{}
		for _, f := range plan.RelaxedFamilies {
			relaxed[f] = true
		}
		seen := map[string]bool{}
		perRestaurant := map[string]int{}
		for _, e := range plan.Entries {
			if !relaxed[models.FamilyUniqueness] {
				assert.False(t, seen[e.MealID], "seed %d: meal repeated", seed)
			}
			seen[e.MealID] = true
			perRestaurant[e.Restaurant]++
			if e.Slot.Meal == models.Dinner {
				m, _ := c.Get(e.MealID)
				assert.False(t, m.Has(models.TagLegume))
			}
		}
		if !relaxed[models.FamilyRestaurantCap] {
			for r, n := range perRestaurant {
				assert.LessOrEqual(t, n, 3, "seed %d: restaurant %s", seed, r)
			}
		}
		if !relaxed[models.FamilyOrderingRule] {
			for i := 0; i+1 < len(plan.Entries); i += 2 {
				assert.GreaterOrEqual(t,
					plan.Entries[i].Nutrition[models.Calories]-plan.Entries[i+1].Nutrition[models.Calories],
					models.OrderingEpsilon-1e-9)
			}
		}
	}
}

// A degenerate relaxation must not keep the solver past its time budget.
func TestPlanHonoursTimeBudget(t *testing.T) {
	c, err := catalog.Load(factories.NewMealFactory(3).CreateCatalog(12))
	require.NoError(t, err)
	p := models.DefaultPreferences()
	p.Days = []int{1, 2, 3}
	p.Budget = 200
	p.MaxMealsPerRestaurant = 3
	p.Solver.TimeBudget = 5 * time.Second

	type result struct {
		plan *models.Plan
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		plan, err := planner.New(c, planner.Options{}).Plan(context.Background(), p)
		done <- result{plan, err}
	}()
	select {
	case r := <-done:
		assert.Less(t, time.Since(start), 8*time.Second)
		if r.err != nil {
			assert.True(t, errors.Is(r.err, models.ErrInfeasible) || solver.IsTimeout(r.err), "unexpected error: %v", r.err)
			return
		}
		assert.Len(t, r.plan.Entries, 6)
	case <-time.After(20 * time.Second):
		t.Fatal("Plan did not return within its time budget")
	}
}

func TestPlanCancelledAfterIncumbent(t *testing.T) {
	c, err := catalog.Load(factories.NewMealFactory(7).CreateCatalog(20))
	require.NoError(t, err)
	p := models.DefaultPreferences()
	p.Budget = 300

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pl := planner.New(c, planner.Options{Progress: func(pr solver.Progress) {
		if pr.HasIncumbent {
			cancel()
		}
	}})
	plan, err := pl.Plan(ctx, p)
	require.NoError(t, err)
	assert.True(t, plan.Cancelled)
	assert.True(t, plan.Suboptimal)
	assert.Equal(t, models.PlanStatusCancelled, plan.Status())
	require.Len(t, plan.Entries, 14)
	for _, e := range plan.Entries {
		assert.NotEmpty(t, e.MealID)
	}
}

func TestConcurrentPlansShareCatalog(t *testing.T) {
	pl := planner.New(tenMeals(t), planner.Options{})
	var wg sync.WaitGroup
	costs := make([]float64, 4)
	for i := range costs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := models.DefaultPreferences()
			p.Days = []int{1}
			plan, err := pl.Plan(context.Background(), p)
			if assert.NoError(t, err) {
				costs[i] = plan.TotalCost
			}
		}(i)
	}
	wg.Wait()
	for _, c := range costs[1:] {
		assert.Equal(t, costs[0], c)
	}
}
