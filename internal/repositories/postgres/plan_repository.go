package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// Save writes the plan header and its entries in one transaction.
func (r *PlanRepository) Save(ctx context.Context, plan *models.Plan) error {
	document, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("error marshalling plan %s: %w", plan.ID, err)
	}
	families := make([]string, len(plan.RelaxedFamilies))
	for i, f := range plan.RelaxedFamilies {
		families[i] = string(f)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO plans (
            id, created_at, status, total_cost, budget, objective,
            relaxed_families, document
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )
    `
	_, err = tx.Exec(ctx, query,
		plan.ID,
		plan.CreatedAt,
		plan.Status(),
		plan.TotalCost,
		plan.Budget,
		plan.Objective,
		families,
		document,
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan %s: %w", plan.ID, err)
	}

	entries := plan.Entries
	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"plan_entries"},
		[]string{"plan_id", "day", "meal_type", "meal_id", "restaurant", "meal", "price", "nutrition"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]interface{}, error) {
			nutrition := make(map[string]float64, len(entries[i].Nutrition))
			for n, v := range entries[i].Nutrition {
				nutrition[string(n)] = v
			}
			return []interface{}{
				plan.ID,
				entries[i].Slot.Day,
				entries[i].Slot.Meal.String(),
				entries[i].MealID,
				entries[i].Restaurant,
				entries[i].Meal,
				entries[i].Price,
				nutrition,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy entries of plan %s: %w", plan.ID, err)
	}

	return tx.Commit(ctx)
}

func (r *PlanRepository) Get(ctx context.Context, id string) (*models.Plan, error) {
	var document []byte
	err := r.pool.QueryRow(ctx, "SELECT document FROM plans WHERE id = $1", id).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var plan models.Plan
	if err := json.Unmarshal(document, &plan); err != nil {
		return nil, fmt.Errorf("error decoding plan %s: %w", id, err)
	}
	return &plan, nil
}
