package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "mentor-match"
	envPrefix = "MENTOR_MATCH"
)

type Config struct {
	CohortID    string `mapstructure:"cohort-id"`
	CohortFile  string `mapstructure:"cohort-file"`
	ModelFile   string `mapstructure:"model-file"`
	Mode        string `mapstructure:"mode"`
	Concurrency int    `mapstructure:"concurrency"`
	Output      string `mapstructure:"output"`

	API      *APIConfig      `mapstructure:"api"`
	Gemini   *GeminiConfig   `mapstructure:"gemini"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Metrics  *MetricsConfig  `mapstructure:"metrics"`
}

// APIConfig points to the profile store that serves cohorts and matching models.
type APIConfig struct {
	URL       string `mapstructure:"url"`
	TokenFile string `mapstructure:"token-file"`
}

type GeminiConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	BatchSize    int    `mapstructure:"batch-size"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      string `mapstructure:"ttl"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
	Migrate bool   `mapstructure:"migrate"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "mentor-match scores mentor and mentee pairs of a cohort and proposes assignments",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"api.token-file":      envPrefix + "_API_TOKEN_FILE",
		"postgres.dsn-file":   envPrefix + "_POSTGRES_DSN_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is mentor-match.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("cohort-id", "", "cohort to match, review or list")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("cohort-id", rootCmd.PersistentFlags().Lookup("cohort-id"))
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}
