package repositories

import (
	"context"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// MealRepository stores catalog rows in their raw column form so they go
// through the same validation as a CSV file when loaded.
type MealRepository interface {
	BulkCreate(ctx context.Context, records []catalog.RawRecord) error
	GetAll(ctx context.Context) ([]catalog.RawRecord, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type PlanRepository interface {
	Save(ctx context.Context, plan *models.Plan) error
	Get(ctx context.Context, id string) (*models.Plan, error)
}
