package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/chrisdamba/mealplanner/internal/repositories/postgres"
)

func loadCatalog(ctx context.Context, cfg *models.Config) (*catalog.Catalog, error) {
	switch cfg.CatalogSource {
	case models.CatalogSourceCSV:
		cat, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %d meals from %d restaurants (%s)", cat.Len(), len(cat.Restaurants()), cfg.CatalogPath)
		return cat, nil
	case models.CatalogSourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		records, err := postgres.NewMealRepository(pool).GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("error reading meals: %w", err)
		}
		cat, err := catalog.Load(records)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %d meals from %d restaurants (postgres)", cat.Len(), len(cat.Restaurants()))
		return cat, nil
	}
	return nil, &models.ConfigError{Field: "catalog_source", Reason: fmt.Sprintf("unknown source %q", cfg.CatalogSource)}
}

// loadPreferences returns the preferences file when given, otherwise the
// preferences section of the config.
func loadPreferences(cfg *models.Config, path string) (*models.Preferences, error) {
	if path == "" {
		return &cfg.Preferences, nil
	}
	return models.LoadPreferences(path)
}
