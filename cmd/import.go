package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/repositories/postgres"
	"github.com/spf13/cobra"
)

var importReplace bool

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Validate a catalog CSV and load it into Postgres",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.CatalogPath
		if len(args) == 1 {
			path = args[0]
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		records, err := catalog.ReadCSV(f)
		if err != nil {
			return err
		}
		if _, err := catalog.Load(records); err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		repo := postgres.NewMealRepository(pool)
		if importReplace {
			if err := repo.DeleteAll(ctx); err != nil {
				return fmt.Errorf("error clearing meals: %w", err)
			}
		}
		if err := repo.BulkCreate(ctx, records); err != nil {
			return fmt.Errorf("error importing meals: %w", err)
		}
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		log.Printf("Imported %d meals from %s, %d in store", len(records), path, count)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "delete existing meals first")
}
