package postgres

import (
	"context"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MealRepository struct {
	pool *pgxpool.Pool
}

func NewMealRepository(pool *pgxpool.Pool) *MealRepository {
	return &MealRepository{pool: pool}
}

func (r *MealRepository) BulkCreate(ctx context.Context, records []catalog.RawRecord) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"meals"},
		[]string{"restaurant", "meal", "attributes"},
		pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
			attrs := make(map[string]string, len(records[i]))
			for k, v := range records[i] {
				if k != catalog.ColumnRestaurant && k != catalog.ColumnMeal {
					attrs[k] = v
				}
			}
			return []interface{}{
				records[i][catalog.ColumnRestaurant],
				records[i][catalog.ColumnMeal],
				attrs,
			}, nil
		}),
	)
	return err
}

// GetAll returns rows in insertion order.
func (r *MealRepository) GetAll(ctx context.Context) ([]catalog.RawRecord, error) {
	query := `
        SELECT restaurant, meal, attributes
        FROM meals
        ORDER BY id
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []catalog.RawRecord
	for rows.Next() {
		var restaurant, meal string
		var attrs map[string]string
		if err := rows.Scan(&restaurant, &meal, &attrs); err != nil {
			return nil, err
		}
		rec := make(catalog.RawRecord, len(attrs)+2)
		for k, v := range attrs {
			rec[k] = v
		}
		rec[catalog.ColumnRestaurant] = restaurant
		rec[catalog.ColumnMeal] = meal
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *MealRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM meals").Scan(&count)
	return count, err
}

func (r *MealRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM meals")
	return err
}
