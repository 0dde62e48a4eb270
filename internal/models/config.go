package models

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	URL      string `mapstructure:"url"`
}

// DSN returns URL when set, otherwise a key/value connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

type KafkaConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	BrokerList       string `mapstructure:"broker_list"`
	TopicPrefix      string `mapstructure:"topic_prefix"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`
}

type OutputConfig struct {
	Format      string `mapstructure:"format"` // csv, json, parquet or console
	Path        string `mapstructure:"path"`
	Folder      string `mapstructure:"folder"`
	Destination string `mapstructure:"destination"` // local or cloud
}

// Config is the application configuration: where the catalog comes from,
// where plans go, and the plan request itself.
type Config struct {
	CatalogSource string             `mapstructure:"catalog_source"` // csv or postgres
	CatalogPath   string             `mapstructure:"catalog_path"`
	PersistPlans  bool               `mapstructure:"persist_plans"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Output        OutputConfig       `mapstructure:"output"`
	Kafka         KafkaConfig        `mapstructure:"kafka"`
	CloudStorage  CloudStorageConfig `mapstructure:"cloud_storage"`
	Preferences   Preferences        `mapstructure:"preferences"`
}

// LoadConfig initializes and reads the configuration using a fresh Viper instance.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Default config location
		v.AddConfigPath(".")
		v.AddConfigPath("examples")
		v.SetConfigName("mealplanner")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return LoadConfigFrom(v)
}

// LoadConfigFrom decodes an already populated Viper instance (file, env, bound
// flags), applying defaults for every key not set, and validates preferences.
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("MEALPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // Read in environment variables that match
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config, DecoderConfigOption()); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := config.Preferences.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadPreferences reads a standalone preferences file (the "preferences" section
// of a full config, at top level).
func LoadPreferences(path string) (*Preferences, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading preferences file: %w", err)
	}
	setPreferenceDefaults(v, "")
	var prefs Preferences
	if err := v.Unmarshal(&prefs, DecoderConfigOption()); err != nil {
		return nil, fmt.Errorf("unable to decode preferences, %w", err)
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// DecoderConfigOption installs the decode hooks for durations, slots, meal
// types, nutrient names and comma separated lists.
func DecoderConfigOption() viper.DecoderConfigOption {
	return viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			StringToSlotHookFunc(),
			StringToNutrientHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
}

// StringToSlotHookFunc decodes "3:lunch" into a Slot and "lunch" into a MealType.
func StringToSlotHookFunc() mapstructure.DecodeHookFuncType {
	slotType := reflect.TypeOf(Slot{})
	mealType := reflect.TypeOf(MealType(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		switch t {
		case slotType:
			return ParseSlot(data.(string))
		case mealType:
			return ParseMealType(data.(string))
		}
		return data, nil
	}
}

// StringToNutrientHookFunc maps plain nutrient names to catalog columns, so
// "protein" decodes as protein_g. It applies to map keys as well.
func StringToNutrientHookFunc() mapstructure.DecodeHookFuncType {
	nutrientType := reflect.TypeOf(Nutrient(""))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != nutrientType {
			return data, nil
		}
		return ParseNutrient(data.(string)), nil
	}
}

// SetDefaults registers the documented defaults for an application config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog_source", "csv")
	v.SetDefault("catalog_path", "meals.csv")
	v.SetDefault("output.format", "console")
	v.SetDefault("output.path", "output")
	v.SetDefault("output.folder", "plans")
	v.SetDefault("output.destination", "local")
	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.topic_prefix", "mealplanner")
	v.SetDefault("cloud_storage.provider", "s3")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	setPreferenceDefaults(v, "preferences.")
}

func setPreferenceDefaults(v *viper.Viper, prefix string) {
	d := DefaultPreferences()
	v.SetDefault(prefix+"budget", d.Budget)
	v.SetDefault(prefix+"max_meals_per_restaurant", d.MaxMealsPerRestaurant)
	v.SetDefault(prefix+"enforce_uniqueness", d.EnforceUniqueness)
	v.SetDefault(prefix+"meal_types", []string{"lunch", "dinner"})
	v.SetDefault(prefix+"ordering_rules", []map[string]interface{}{
		{"first": "lunch", "second": "dinner", "nutrient": string(Calories), "op": OpGreater},
	})
	v.SetDefault(prefix+"exclusion_rules", []map[string]interface{}{
		{"meal_type": "dinner", "tag": TagLegume.String()},
	})
	v.SetDefault(prefix+"objective.mode", d.Objective.Mode)
	v.SetDefault(prefix+"solver.time_budget", d.Solver.TimeBudget.String())
	v.SetDefault(prefix+"solver.tolerance", d.Solver.Tolerance)
	v.SetDefault(prefix+"solver.relaxation_penalty", d.Solver.RelaxationPenalty)
}
