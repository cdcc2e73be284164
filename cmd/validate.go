package cmd

import (
	"context"

	"github.com/spigell/mentor-match/internal/filtering"
	"github.com/spigell/mentor-match/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateCmd = &cobra.Command{
	Use:   "validate [model-file]",
	Short: "Check a matching model and show the hard filters it enables",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		validate(args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type filterReport struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type validateReport struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Version   int                  `json:"version"`
	Status    model.Status         `json:"status"`
	WeightSum float64              `json:"weight_sum"`
	Filters   []filterReport       `json:"filters"`
	Rules     []model.MatchingRule `json:"rules"`
}

func validate(args []string) {
	ctx := context.Background()
	logger, config := setup()

	if len(args) == 1 {
		config.ModelFile = args[0]
	}

	client, err := newProfileClient(config, logger)
	if err != nil {
		logger.Fatal("loading profile store token", zap.Error(err))
	}

	m, err := loadModel(ctx, config, client, config.CohortID)
	if err != nil {
		logger.Fatal("matching model is invalid", zap.Error(err))
	}

	if err := m.RequireActive(); err != nil {
		logger.Warn("matching model can not be used for runs yet", zap.Error(err))
	}
	if m.Weights.Sum() == 0 {
		logger.Warn("all feature weights are zero, every pair will score from rules only")
	}

	report := validateReport{
		ID:        m.ID,
		Name:      m.Name,
		Version:   m.Version,
		Status:    m.Status,
		WeightSum: m.Weights.Sum(),
		Rules:     m.SortedRules(),
	}

	for _, s := range filtering.Describe(filtering.Default(m.Filters)) {
		report.Filters = append(report.Filters, filterReport{
			Name:    s.Name,
			Enabled: s.Enabled,
			Reason:  s.Reason,
			Details: s.Details,
		})
		logger.Info("filter", zap.String("name", s.Name), zap.Bool("enabled", s.Enabled), zap.String("reason", s.Reason))
	}

	if err := writeJSON("", report); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
}
