package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/internal/analysis"
	"github.com/stellarlinkco/riddle-bench/internal/dataset"
	"github.com/stellarlinkco/riddle-bench/internal/grade"
	"github.com/stellarlinkco/riddle-bench/internal/runner"
)

type scoreOptions struct {
	datasetPath string
	resultsDir  string
	threshold   int
}

func newScoreCmd() *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Re-grade saved raw answers without calling any model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.datasetPath, "dataset", defaultDatasetPath, "path to the JSONL question set")
	cmd.Flags().StringVar(&opts.resultsDir, "results", "results", "directory of per-model JSONL results")
	cmd.Flags().IntVar(&opts.threshold, "threshold", grade.DefaultFuzzyThreshold, "fuzzy match threshold (0-100)")

	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions) error {
	if opts == nil {
		return fmt.Errorf("score: nil options")
	}
	if opts.threshold < 0 || opts.threshold > 100 {
		return fmt.Errorf("score: threshold must be between 0 and 100 (got %d)", opts.threshold)
	}

	items, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return err
	}
	byID := make(map[string]*dataset.QAItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	results, err := analysis.LoadResults(opts.resultsDir)
	if err != nil {
		return err
	}

	var sums []runner.ModelSummary
	for model, rows := range results {
		regraded := make([]runner.ResultRow, 0, len(rows))
		for _, row := range rows {
			item, ok := byID[row.ID]
			if !ok {
				return fmt.Errorf("score: result row %q not in dataset %q", row.ID, opts.datasetPath)
			}
			if row.Succeeded {
				g := grade.Answer(item, row.Answer, opts.threshold)
				row.IsExact = g.IsExact
				row.IsAlias = g.IsAlias
				row.Fuzzy = g.Fuzzy
				row.IsCorrect = g.IsCorrect
			} else {
				row.IsExact, row.IsAlias, row.Fuzzy, row.IsCorrect = false, false, 0, false
			}
			regraded = append(regraded, row)
		}
		sums = append(sums, runner.ModelSummary{Model: model, Stats: runner.Summarize(regraded)})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Re-graded %d models at threshold %d\n", len(sums), opts.threshold)
	printSummaryTable(cmd.OutOrStdout(), sums)
	return nil
}
