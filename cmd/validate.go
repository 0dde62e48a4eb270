package cmd

import (
	"fmt"

	"github.com/chrisdamba/mealplanner/internal/assembler"
	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/spf13/cobra"
)

var validatePrefsFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog and preferences without solving",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		prefs, err := loadPreferences(cfg, validatePrefsFile)
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		grid, err := prefs.Grid()
		if err != nil {
			return err
		}
		set, err := constraints.NewBuilder(cat).Build(grid, prefs)
		if err != nil {
			return err
		}
		model, err := assembler.Assemble(set)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "catalog: %d meals from %d restaurants\n", cat.Len(), len(cat.Restaurants()))
		fmt.Fprintf(out, "slots: %d\n", grid.Len())
		fmt.Fprintf(out, "model: %d selection variables, %d variables, %d rows, %d constraints\n",
			model.NumSelection, len(model.Vars), len(model.Rows), len(set.Constraints))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validatePrefsFile, "preferences", "", "standalone preferences file")
}
