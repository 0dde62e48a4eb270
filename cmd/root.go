package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "mealplanner",
	Short: "Plans a week of restaurant meals under budget and nutrition constraints",
	Long: `mealplanner selects one meal per slot of a weekly plan from a restaurant meal catalog,
minimizing cost (or maximizing nutrition) subject to budget, variety, restaurant caps,
nutrient bounds, preparation method ratios and intra-day ordering rules.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mealplanner.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before the config")
	rootCmd.PersistentFlags().String("catalog", "", "meal catalog CSV file")
	rootCmd.PersistentFlags().String("catalog-source", "", "catalog source: csv or postgres")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL")

	bindFlag(rootCmd, "catalog_path", "catalog")
	bindFlag(rootCmd, "catalog_source", "catalog-source")
	bindFlag(rootCmd, "database.url", "database-url")

	rootCmd.AddCommand(planCmd, generateCmd, importCmd, validateCmd)
}

// bindFlag binds a persistent or local flag to a config key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(flag)
	}
	cobra.CheckErr(viper.BindPFlag(key, f))
}

func initConfig() {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to load %s: %v", envFile, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("mealplanner")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		cobra.CheckErr(fmt.Errorf("error reading config file: %w", err))
	}
}

func loadConfig() (*models.Config, error) {
	cfg, err := models.LoadConfigFrom(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
