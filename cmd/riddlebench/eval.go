package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/internal/config"
	"github.com/stellarlinkco/riddle-bench/internal/dataset"
	"github.com/stellarlinkco/riddle-bench/internal/grade"
	"github.com/stellarlinkco/riddle-bench/internal/llm"
	"github.com/stellarlinkco/riddle-bench/internal/runner"
	"github.com/stellarlinkco/riddle-bench/internal/sink"
	"github.com/stellarlinkco/riddle-bench/internal/store"
)

const defaultDatasetPath = "data/riddles.jsonl"

type evalOptions struct {
	datasetPath string
	models      string
	outDir      string
	threshold   int
	timeout     time.Duration
	dbPath      string
	noSave      bool
}

func newEvalCmd(st *cliState) *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:     "eval",
		Short:   "Evaluate configured models against the dataset",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigInto(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.datasetPath, "dataset", defaultDatasetPath, "path to the JSONL question set")
	cmd.Flags().StringVar(&opts.models, "models", "", "comma-separated provider:model selectors (default: all configured)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "directory for per-model JSONL results (default results/<timestamp>)")
	cmd.Flags().IntVar(&opts.threshold, "threshold", grade.DefaultFuzzyThreshold, "fuzzy match threshold (0-100)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "per-question timeout")
	cmd.Flags().StringVar(&opts.dbPath, "db", store.DefaultSQLitePath, "sqlite path for run history")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "skip persisting the run to the history store")

	return cmd
}

func runEval(cmd *cobra.Command, st *cliState, opts *evalOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("eval: missing config (internal error)")
	}
	if opts == nil {
		return fmt.Errorf("eval: nil options")
	}
	if opts.threshold < 0 || opts.threshold > 100 {
		return fmt.Errorf("eval: threshold must be between 0 and 100 (got %d)", opts.threshold)
	}

	items, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return err
	}

	specs, err := resolveSpecs(st.cfg, opts.models)
	if err != nil {
		return err
	}

	outDir := strings.TrimSpace(opts.outDir)
	if outDir == "" {
		outDir = defaultOutDir(time.Now())
	}
	dir, err := sink.NewDir(outDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Evaluating %d models over %d questions\n", len(specs), len(items))
	fmt.Fprintf(errOut, "Writing results to %s\n", dir.Root())

	open := func(model string) (runner.Sink, error) {
		return dir.OpenModel(model)
	}
	progress := func(sum runner.ModelSummary) {
		if sum.Error != "" {
			fmt.Fprintf(errOut, "  %s failed: %s\n", sum.Model, sum.Error)
			return
		}
		fmt.Fprintf(errOut, "  %s done: %d/%d correct (%.1f%%) in %.1fs\n",
			sum.Model, sum.Correct, sum.Total, sum.Accuracy*100, sum.ElapsedS)
	}

	startedAt := time.Now().UTC()
	sums := runner.EvaluateAll(ctx, llm.New, specs, items, open, runner.Config{
		FuzzyThreshold: opts.threshold,
		Timeout:        opts.timeout,
		Workers:        config.WorkerLimits(st.cfg),
		DefaultWorkers: config.DefaultWorkers,
		Progress:       progress,
	})
	finishedAt := time.Now().UTC()

	printSummaryTable(cmd.OutOrStdout(), sums)

	csvPath := filepath.Join(dir.Root(), "summary.csv")
	if err := writeSummaryCSV(csvPath, sums); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", csvPath)

	if !opts.noSave {
		runID, err := saveEvalRun(cmd.Context(), opts, items, sums, startedAt, finishedAt)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run saved as %s\n", runID)
	}

	failed := 0
	for i := range sums {
		if sums[i].Error != "" {
			failed++
		}
	}
	if len(sums) > 0 && failed == len(sums) {
		return fmt.Errorf("eval: all %d models failed", failed)
	}
	return nil
}

// defaultOutDir keeps repeated runs from appending to the same directory
// when --out is not set.
func defaultOutDir(now time.Time) string {
	return filepath.Join("results", now.Format("20060102-150405"))
}

func resolveSpecs(cfg *config.Config, selector string) ([]config.ModelSpec, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		specs := config.List(cfg)
		if len(specs) == 0 {
			return nil, fmt.Errorf("eval: no models configured")
		}
		return specs, nil
	}
	return config.Resolve(cfg, selector)
}

func saveEvalRun(ctx context.Context, opts *evalOptions, items []dataset.QAItem, sums []runner.ModelSummary, startedAt, finishedAt time.Time) (string, error) {
	st, err := store.Open(opts.dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run := &store.RunRecord{
		ID:             uuid.NewString(),
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		Dataset:        filepath.Base(opts.datasetPath),
		TotalModels:    len(sums),
		TotalItems:     len(items),
		FuzzyThreshold: opts.threshold,
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return "", err
	}

	for i := range sums {
		sum := &sums[i]
		rec := &store.ModelRecord{
			ID:       uuid.NewString(),
			RunID:    run.ID,
			Model:    sum.Model,
			Total:    sum.Total,
			Correct:  sum.Correct,
			Accuracy: sum.Accuracy,
			Exact:    sum.Exact,
			Alias:    sum.Alias,
			AvgFuzzy: sum.AvgFuzzy,
			ElapsedS: sum.ElapsedS,
			Error:    sum.Error,
		}
		if err := st.SaveModelResult(ctx, rec); err != nil {
			return "", err
		}
	}
	return run.ID, nil
}
