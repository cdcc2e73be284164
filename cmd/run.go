package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spigell/mentor-match/internal/embedding"
	"github.com/spigell/mentor-match/internal/matching"
	"github.com/spigell/mentor-match/internal/metrics"
	"github.com/spigell/mentor-match/internal/secrets"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score the pairs of a cohort with its active matching model",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("cohort-file", "", "read the cohort from a JSON or YAML file instead of the profile store")
	runCmd.Flags().String("model-file", "", "read the matching model from a JSON or YAML file instead of the profile store")
	runCmd.Flags().StringP("mode", "m", string(matching.ModeBatch), "matching mode: batch or top3_per_mentee")
	runCmd.Flags().Int("concurrency", 0, "number of pairs evaluated at once (default 8)")
	runCmd.Flags().StringP("output", "o", "", "write the matching output to a file instead of stdout")
	runCmd.Flags().Bool("migrate", false, "create the database schema before saving")
	runCmd.Flags().String("metrics-textfile", "", "write run metrics in Prometheus text format to this file")

	for key, flag := range map[string]string{
		"cohort-file":      "cohort-file",
		"model-file":       "model-file",
		"mode":             "mode",
		"concurrency":      "concurrency",
		"output":           "output",
		"postgres.migrate": "migrate",
		"metrics.textfile": "metrics-textfile",
	} {
		viper.BindPFlag(key, runCmd.Flags().Lookup(flag))
	}
}

func run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	logger.Info("starting the mentor-match", zap.String("version", version))

	mode, err := matching.ParseMode(config.Mode)
	if err != nil {
		logger.Fatal("parsing matching mode", zap.Error(err))
	}

	client, err := newProfileClient(config, logger)
	if err != nil {
		logger.Fatal("loading profile store token", zap.Error(err),
			zap.String("hint", "set MENTOR_MATCH_API_TOKEN_FILE or the 'api.token-file' key in the configuration file"),
		)
	}

	c, err := loadCohort(ctx, config, client)
	if err != nil {
		logger.Fatal("loading cohort", zap.Error(err),
			zap.String("hint", "set 'cohort-file' or 'api.url' with 'cohort-id'"),
		)
	}

	m, err := loadModel(ctx, config, client, c.ID)
	if err != nil {
		logger.Fatal("loading matching model", zap.Error(err))
	}

	db, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening postgres store", zap.Error(err),
			zap.String("hint", "check 'postgres.dsn-file' or MENTOR_MATCH_POSTGRES_DSN_FILE"),
		)
	}
	if db != nil {
		defer db.Close()
	}

	engine := matching.NewEngine(newEmbeddingProvider(ctx, config, logger), logger)
	if config.Concurrency > 0 {
		engine.Concurrency = config.Concurrency
	}

	met := metrics.New()
	started := time.Now()

	out, err := engine.Run(ctx, c, m, mode)
	if err != nil {
		met.ObserveFailure(mode, time.Since(started))
		writeMetrics(met, config, logger)
		logger.Fatal("matching run failed", zap.Error(err))
	}

	met.ObserveRun(out, time.Since(started))
	writeMetrics(met, config, logger)

	logger.Info("matching run finished",
		zap.String("cohort_id", out.CohortID),
		zap.Int("pairs_evaluated", out.Stats.PairsEvaluated),
		zap.Int("after_filters", out.Stats.AfterFilters),
		zap.Int("assigned", out.Stats.Assigned),
		zap.Int("unassigned", out.Stats.Unassigned),
		zap.Int("needs_approval", out.Stats.NeedsApproval),
		zap.Duration("took", time.Since(started)),
	)

	if err := writeJSON(config.Output, out); err != nil {
		logger.Fatal("writing matching output", zap.Error(err))
	}

	if db == nil {
		return
	}

	historyID, err := db.SaveRun(ctx, out)
	if err != nil {
		logger.Fatal("saving matching output", zap.Error(err))
	}

	logger.Info("matching output saved", zap.String("history_id", historyID))
}

// newEmbeddingProvider returns nil when embeddings are disabled or unusable; the engine then
// estimates semantic similarity lexically.
func newEmbeddingProvider(ctx context.Context, config *Config, logger *zap.Logger) embedding.Provider {
	if config.Gemini == nil || !config.Gemini.Enabled {
		logger.Info("embeddings are disabled, semantic similarity is lexical")
		return nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.Gemini.APIKeyFile,
	})
	if err != nil {
		logger.Warn("skipping embeddings", zap.Error(err),
			zap.String("hint", "set gemini.api-key-file or GEMINI_API_KEY_FILE"),
		)
		return nil
	}

	gemini, err := embedding.NewGeminiProvider(ctx, apiKey, config.Gemini.Model, logger.With(zap.String("provider", "gemini")))
	if err != nil {
		logger.Warn("skipping embeddings", zap.Error(err))
		return nil
	}
	if config.Gemini.BatchSize > 0 {
		gemini.BatchSize = config.Gemini.BatchSize
	}
	if config.Gemini.MaxLogLength > 0 {
		gemini.MaxLogLength = config.Gemini.MaxLogLength
	}

	if config.Redis == nil || strings.TrimSpace(config.Redis.Address) == "" {
		return gemini
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Address,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	cached := embedding.NewCachedProvider(gemini, rdb, gemini.Model(), logger)
	if ttl := strings.TrimSpace(config.Redis.TTL); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			logger.Warn("ignoring invalid redis ttl", zap.String("ttl", ttl), zap.Error(err))
		} else {
			cached.TTL = d
		}
	}

	logger.Info("embedding cache enabled", zap.String("address", config.Redis.Address))
	return cached
}

func writeMetrics(met *metrics.Metrics, config *Config, logger *zap.Logger) {
	if config.Metrics == nil || config.Metrics.Textfile == "" {
		return
	}

	if err := met.WriteTextfile(config.Metrics.Textfile); err != nil {
		logger.Warn("writing metrics textfile", zap.Error(err))
		return
	}

	logger.Debug("metrics written", zap.String("filename", config.Metrics.Textfile))
}
