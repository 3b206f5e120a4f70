// File: cmd/evaluate.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/env/mind2web"
	"github.com/xkilldash9x/webgym/internal/evaluate"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		namesOnly bool
		asJSON    bool
	)

	evaluateCmd := &cobra.Command{
		Use:   "evaluate [trajectory files...]",
		Short: "Scores recorded trajectories against Mind2Web ground truth",
		Long: `Scores trajectory files written by "run --trajectory-out" with the longest
common subsequence of their steps and the ground truth of each episode's task.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger.Named("evaluate")
			cfg := a.cfg

			if cfg.Env.Mind2Web.DatasetPath == "" {
				return fmt.Errorf("a Mind2Web dataset is required (--dataset or env.mind2web.dataset_path)")
			}
			ds, err := mind2web.LoadDataset(cfg.Env.Mind2Web.DatasetPath)
			if err != nil {
				return err
			}

			equal := evaluate.StepsEqual
			if namesOnly {
				equal = evaluate.NamesEqual
			}
			scorer, err := evaluate.NewScorer(ds, equal, cfg.Evaluate.Concurrency, logger)
			if err != nil {
				return err
			}

			scores, err := scorer.ScoreFiles(ctx, args)
			if err != nil {
				return err
			}
			summary := evaluate.Summarize(scores)
			logger.Info("Evaluation complete.",
				zap.Int("files", len(args)),
				zap.Int("episodes", summary.Episodes),
				zap.Int("skipped", summary.Skipped),
				zap.Float64("mean", summary.Mean),
			)

			if asJSON {
				b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(map[string]any{
					"scores":  scores,
					"summary": summary,
				}, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode scores: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tEPISODE\tSTEPS\tTRUTH\tLCS\tSIMILARITY\tNOTE")
			for _, s := range scores {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.4f\t%s\n", s.File, s.EpisodeID, s.Steps, s.TruthSteps, s.LCSLength, s.Similarity, s.SkipReason)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nscored %d episodes (%d skipped): mean=%.4f stddev=%.4f min=%.4f max=%.4f\n",
				summary.Episodes, summary.Skipped, summary.Mean, summary.StdDev, summary.Min, summary.Max)
			return nil
		},
	}

	evaluateCmd.Flags().String("dataset", "", "Mind2Web dataset file (overrides config)")
	evaluateCmd.Flags().Int("concurrency", 0, "number of files scored at once (overrides config)")
	evaluateCmd.Flags().BoolVar(&namesOnly, "names-only", false, "compare steps by action name only")
	evaluateCmd.Flags().BoolVar(&asJSON, "json", false, "print scores and summary as JSON")
	return evaluateCmd
}
