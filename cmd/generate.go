package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/factories"
	"github.com/spf13/cobra"
)

var (
	generateCount int
	generateSeed  int64
	generateOut   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic meal catalog CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateCount < 1 {
			return fmt.Errorf("count must be positive, got %d", generateCount)
		}
		records := factories.NewMealFactory(generateSeed).CreateCatalog(generateCount)
		// the catalog loader is the authority on what a valid row is
		if _, err := catalog.Load(records); err != nil {
			return fmt.Errorf("generated catalog is invalid: %w", err)
		}

		w := cmd.OutOrStdout()
		if generateOut != "" && generateOut != "-" {
			f, err := os.Create(generateOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := catalog.WriteCSV(w, records); err != nil {
			return err
		}
		log.Printf("Generated %d meals (seed %d)", len(records), generateSeed)
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateCount, "count", 40, "number of meals")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 42, "random seed")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "meals.csv", "output file, - for stdout")
}
