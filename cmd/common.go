package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/logger"
	"github.com/spigell/mentor-match/internal/model"
	"github.com/spigell/mentor-match/internal/secrets"
	"github.com/spigell/mentor-match/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setup builds the logger and reads the configuration shared by all commands.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

// newProfileClient returns nil when no profile store is configured.
func newProfileClient(config *Config, logger *zap.Logger) (*cohort.Client, error) {
	if config.API == nil || strings.TrimSpace(config.API.URL) == "" {
		return nil, nil
	}

	token, err := secrets.Optional(secrets.Source{
		Name: "profile store token",
		File: config.API.TokenFile,
	})
	if err != nil {
		return nil, err
	}

	return cohort.NewClient(config.API.URL, token, logger), nil
}

func loadCohort(ctx context.Context, config *Config, client *cohort.Client) (*cohort.Cohort, error) {
	if strings.TrimSpace(config.CohortFile) != "" {
		return cohort.LoadFile(config.CohortFile)
	}
	if client == nil {
		return nil, fmt.Errorf("neither cohort-file nor api.url is configured")
	}
	return client.Fetch(ctx, config.CohortID)
}

func loadModel(ctx context.Context, config *Config, client *cohort.Client, cohortID string) (*model.MatchingModel, error) {
	if strings.TrimSpace(config.ModelFile) != "" {
		return model.Load(config.ModelFile)
	}
	if client == nil {
		return nil, fmt.Errorf("neither model-file nor api.url is configured")
	}

	doc, err := client.ActiveModel(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	return model.FromDocument(doc)
}

// openStore returns nil when PostgreSQL is not configured.
func openStore(ctx context.Context, config *Config, logger *zap.Logger) (*store.Postgres, error) {
	if config.Postgres == nil {
		return nil, nil
	}

	dsn, err := secrets.Optional(secrets.Source{
		Name:  "postgres dsn",
		File:  config.Postgres.DSNFile,
		Value: config.Postgres.DSN,
	})
	if err != nil || dsn == "" {
		return nil, err
	}

	db, err := store.Open(dsn, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if config.Postgres.Migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database schema is up to date")
	}

	return db, nil
}

// writeJSON writes v to path, or to stdout when path is empty or "-".
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
