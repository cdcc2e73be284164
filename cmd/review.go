package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spigell/mentor-match/internal/matching"
	"github.com/spigell/mentor-match/internal/review"
	"github.com/spigell/mentor-match/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Approve, reject or reassign proposed assignments of a batch run",
	Run: func(cmd *cobra.Command, _ []string) {
		reviewRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("history-id", "", "review a specific stored run")
	reviewCmd.Flags().String("from-file", "", "review a matching output file instead of the store")
	reviewCmd.Flags().BoolP("all", "a", false, "review every proposed assignment, not only the flagged ones")
	reviewCmd.Flags().String("reviewer", "", "name recorded with every decision (default is $USER)")
	reviewCmd.Flags().StringP("output", "o", "", "write the decisions to a file instead of the store")

}

func reviewRun(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	db, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening postgres store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	flags := cmd.Flags()
	fromFile, _ := flags.GetString("from-file")
	historyID, _ := flags.GetString("history-id")

	out, err := loadReviewSource(ctx, db, fromFile, historyID, config.CohortID)
	if err != nil {
		logger.Fatal("loading matching output", zap.Error(err),
			zap.String("hint", "use --from-file, or configure postgres and pass --cohort-id or --history-id"),
		)
	}

	session, err := review.NewSession(out, logger)
	if err != nil {
		logger.Fatal("starting review", zap.Error(err))
	}

	session.Reviewer, _ = flags.GetString("reviewer")
	if session.Reviewer == "" {
		session.Reviewer = os.Getenv("USER")
	}

	all, _ := flags.GetBool("all")
	pending := session.Pending(all)
	logger.Info("proposals to review", zap.String("cohort_id", out.CohortID), zap.Int("count", len(pending)))
	if len(pending) == 0 {
		logger.Info("exiting", zap.String("reason", "nothing to review"))
		return
	}

	if err := session.Run(ctx, review.PromptDecider{}, all); err != nil {
		if !errors.Is(err, promptui.ErrInterrupt) {
			logger.Fatal("review failed", zap.Error(err))
		}
		logger.Warn("review interrupted, keeping decisions taken so far")
	}

	manual := session.Output()
	if len(manual.Matches) == 0 {
		logger.Info("exiting", zap.String("reason", "no decisions taken"))
		return
	}

	output, _ := flags.GetString("output")
	if db == nil || output != "" {
		if err := writeJSON(output, manual); err != nil {
			logger.Fatal("writing decisions", zap.Error(err))
		}
		return
	}

	id, err := db.SaveManual(ctx, manual)
	if err != nil {
		logger.Fatal("saving decisions", zap.Error(err))
	}
	logger.Info("decisions saved", zap.String("id", id), zap.Int("count", len(manual.Matches)))
}

func loadReviewSource(ctx context.Context, db *store.Postgres, fromFile, historyID, cohortID string) (*matching.MatchingOutput, error) {
	if fromFile = strings.TrimSpace(fromFile); fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return nil, err
		}
		var out matching.MatchingOutput
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fromFile, err)
		}
		return &out, nil
	}

	if db == nil {
		return nil, errors.New("postgres is not configured")
	}
	if historyID != "" {
		return db.Output(ctx, historyID)
	}
	if cohortID == "" {
		return nil, errors.New("cohort id is required")
	}
	return db.Latest(ctx, cohortID)
}
