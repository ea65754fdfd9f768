package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/internal/store"
)

type historyOptions struct {
	dbPath  string
	dataset string
	limit   int
	since   string
}

func newHistoryCmd() *cobra.Command {
	var opts historyOptions

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved benchmark runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, &opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", store.DefaultSQLitePath, "sqlite path for run history")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "dataset name to filter")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "max runs to list")
	cmd.Flags().StringVar(&opts.since, "since", "", "only runs since date (YYYY-MM-DD or RFC3339)")

	cmd.AddCommand(newHistoryShowCmd(&opts))
	return cmd
}

func newHistoryShowCmd(opts *historyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show details for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, opts, args[0])
		},
	}
}

func runHistoryList(cmd *cobra.Command, opts *historyOptions) error {
	if opts == nil {
		return fmt.Errorf("history: nil options")
	}

	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
		Dataset: strings.TrimSpace(opts.dataset),
		Since:   since,
		Limit:   opts.limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN_ID\tSTARTED\tFINISHED\tDATASET\tMODELS\tQUESTIONS\tTHRESHOLD")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID,
			formatTime(r.StartedAt),
			formatTime(r.FinishedAt),
			r.Dataset,
			r.TotalModels,
			r.TotalItems,
			r.FuzzyThreshold,
		)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, opts *historyOptions, runID string) error {
	if opts == nil {
		return fmt.Errorf("history: nil options")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return fmt.Errorf("history: missing run id")
	}

	st, err := store.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(cmd.Context(), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("history: run %q not found", runID)
		}
		return err
	}

	results, err := st.GetModelResults(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Run: %s\n", run.ID)
	_, _ = fmt.Fprintf(out, "Started: %s\n", formatTime(run.StartedAt))
	_, _ = fmt.Fprintf(out, "Finished: %s\n", formatTime(run.FinishedAt))
	_, _ = fmt.Fprintf(out, "Dataset: %s questions=%d threshold=%d\n", run.Dataset, run.TotalItems, run.FuzzyThreshold)

	if len(results) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSTATUS\tTOTAL\tCORRECT\tACCURACY\tEXACT\tALIAS\tAVG_FUZZY\tELAPSED(s)\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%d\t%d\t%.1f\t%.1f\t%s\n",
			r.Model,
			coloredStatus(r.Error == ""),
			r.Total,
			r.Correct,
			r.Accuracy,
			r.Exact,
			r.Alias,
			r.AvgFuzzy,
			r.ElapsedS,
			r.Error,
		)
	}
	return tw.Flush()
}

func parseSince(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	layouts := []string{time.RFC3339, "2006-01-02"}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("history: invalid --since %q (expected YYYY-MM-DD or RFC3339)", s)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format(time.RFC3339)
}
