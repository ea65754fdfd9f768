package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/internal/analysis"
)

type analyzeOptions struct {
	resultsDir string
	top        int
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze question difficulty and model performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.resultsDir, "results", "results", "directory of per-model JSONL results")
	cmd.Flags().IntVar(&opts.top, "top", 10, "number of hardest questions to show")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	if opts == nil {
		return fmt.Errorf("analyze: nil options")
	}
	if opts.top <= 0 {
		return fmt.Errorf("analyze: --top must be > 0 (got %d)", opts.top)
	}

	results, err := analysis.LoadResults(opts.resultsDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	perf := analysis.Performance(results)
	fmt.Fprintln(out, "Model performance:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tTOTAL\tACCURACY\tEXACT_RATE\tERROR_RATE\tAVG_FUZZY\tAVG_LAT(ms)")
	for _, p := range perf {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.1f\t%.0f\n",
			p.Model, p.Total, p.Accuracy, p.ExactRate, p.ErrorRate, p.AvgFuzzy, p.AvgLatencyMs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	diff := analysis.Difficulty(results)
	if len(diff) > opts.top {
		diff = diff[:opts.top]
	}
	fmt.Fprintf(out, "\nHardest %d questions:\n", len(diff))
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACCURACY\tAVG_FUZZY\tQUESTION\tEXPECTED\tCOMMON_WRONG")
	for _, q := range diff {
		wrong := make([]string, 0, len(q.WrongAnswers))
		for _, w := range q.WrongAnswers {
			wrong = append(wrong, fmt.Sprintf("%s (%d)", w.Answer, w.Count))
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.1f\t%s\t%s\t%s\n",
			q.ID, q.Accuracy, q.AvgFuzzy, q.Question, q.Expected, strings.Join(wrong, "; "))
	}
	return tw.Flush()
}
