package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the stored matching runs of a cohort",
	Run: func(cmd *cobra.Command, _ []string) {
		history(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
}

func history(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	if config.CohortID == "" {
		logger.Fatal("cohort id is required", zap.String("hint", "pass --cohort-id or set 'cohort-id' in the configuration file"))
	}

	db, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening postgres store", zap.Error(err))
	}
	if db == nil {
		logger.Fatal("postgres is not configured", zap.String("hint", "set 'postgres.dsn-file' or MENTOR_MATCH_POSTGRES_DSN_FILE"))
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := db.History(ctx, config.CohortID, limit)
	if err != nil {
		logger.Fatal("listing matching history", zap.Error(err))
	}

	if len(entries) == 0 {
		logger.Info("exiting", zap.String("reason", "no runs stored for the cohort"))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tMODE\tMODEL\tASSIGNED\tUNASSIGNED\tNEEDS APPROVAL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\tv%d\t%d\t%d\t%d\n",
			e.ID, e.CreatedAt.UTC().Format(time.RFC3339), e.Mode, e.ModelVersion,
			e.Stats.Assigned, e.Stats.Unassigned, e.Stats.NeedsApproval,
		)
	}
	w.Flush()
}
