package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/chrisdamba/mealplanner/internal/output"
	"github.com/chrisdamba/mealplanner/internal/planner"
	"github.com/chrisdamba/mealplanner/internal/repositories/postgres"
	"github.com/chrisdamba/mealplanner/internal/solver"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var planPrefsFile string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Solve a weekly meal plan and export it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runPlan(ctx, cmd.OutOrStdout())
	},
}

func init() {
	planCmd.Flags().StringVar(&planPrefsFile, "preferences", "", "standalone preferences file (overrides the config section)")
	planCmd.Flags().Float64("budget", models.DefaultBudget, "weekly budget")
	planCmd.Flags().Int("max-per-restaurant", models.DefaultMaxMealsPerRestaurant, "maximum meals from one restaurant")
	planCmd.Flags().String("objective", models.ObjectiveMinimizeCost, "minimize_cost or maximize_nutrition")
	planCmd.Flags().Duration("time-budget", models.DefaultTimeBudget, "solver time budget")
	planCmd.Flags().String("format", models.OutputFormatConsole, "export format: csv, json, parquet or console")
	planCmd.Flags().String("output-path", "output", "export base path")
	planCmd.Flags().String("destination", models.DestinationLocal, "export destination: local or cloud")
	planCmd.Flags().Bool("kafka-enabled", false, "publish plan events to Kafka")
	planCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	planCmd.Flags().Bool("persist", false, "save the plan to Postgres")

	bindFlag(planCmd, "preferences.budget", "budget")
	bindFlag(planCmd, "preferences.max_meals_per_restaurant", "max-per-restaurant")
	bindFlag(planCmd, "preferences.objective.mode", "objective")
	bindFlag(planCmd, "preferences.solver.time_budget", "time-budget")
	bindFlag(planCmd, "output.format", "format")
	bindFlag(planCmd, "output.path", "output-path")
	bindFlag(planCmd, "output.destination", "destination")
	bindFlag(planCmd, "kafka.enabled", "kafka-enabled")
	bindFlag(planCmd, "kafka.broker_list", "kafka-broker-list")
	bindFlag(planCmd, "persist_plans", "persist")
}

func runPlan(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prefs, err := loadPreferences(cfg, planPrefsFile)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	bar := newSpinner("Solving")
	p := planner.New(cat, planner.Options{Progress: func(pr solver.Progress) {
		desc := fmt.Sprintf("Solving (attempt %d, %d nodes)", pr.Attempt, pr.Nodes)
		if pr.HasIncumbent {
			desc = fmt.Sprintf("%s best %.2f", desc, pr.Incumbent)
		}
		bar.Describe(desc)
		_ = bar.Add(1)
	}})
	plan, err := p.Plan(ctx, prefs)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	if err := printPlan(out, plan); err != nil {
		return err
	}

	writer, err := output.NewPlanWriter(cfg)
	if err != nil {
		return err
	}
	if err := writer.WritePlan(plan); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("error closing plan writer: %w", err)
	}

	if cfg.PersistPlans {
		if err := persistPlan(ctx, cfg, plan); err != nil {
			return err
		}
	}
	return nil
}

func newSpinner(desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func persistPlan(ctx context.Context, cfg *models.Config, plan *models.Plan) error {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	if err := postgres.NewPlanRepository(pool).Save(ctx, plan); err != nil {
		return err
	}
	log.Printf("Plan %s saved to postgres", plan.ID)
	return nil
}

// printPlan writes the plan table followed by the weekly summary.
func printPlan(w io.Writer, plan *models.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header, rows := plan.Table()
	fmt.Fprintln(tw, strings.Join(header[1:], "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row[1:], "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nPlan %s (%s)\n", plan.ID, plan.Status())
	fmt.Fprintf(w, "Total cost: %.2f of %.2f (%.1f%%)\n", plan.TotalCost, plan.Budget, plan.BudgetUsed)
	fmt.Fprintf(w, "Average per day: %.0f kcal, %.1f g protein\n", plan.AvgCalories, plan.AvgProtein)
	for _, n := range plan.Nutrients() {
		fmt.Fprintf(w, "  week %s: %.1f\n", n, plan.WeeklyTotals[n])
	}
	if len(plan.RelaxedFamilies) > 0 {
		names := make([]string, len(plan.RelaxedFamilies))
		for i, f := range plan.RelaxedFamilies {
			names[i] = string(f)
		}
		fmt.Fprintf(w, "Relaxed: %s\n", strings.Join(names, ", "))
	}
	for _, v := range plan.Violations {
		fmt.Fprintf(w, "Violated: %s by %.3f\n", v.Name, v.Magnitude)
	}
	_, err := fmt.Fprintf(w, "Solved in %s (%d nodes)\n", plan.Stats.Elapsed, plan.Stats.Nodes)
	return err
}
