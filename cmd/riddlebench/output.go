package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/stellarlinkco/riddle-bench/internal/runner"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

func coloredStatus(ok bool) string {
	if ok {
		return colorGreen + "OK" + colorReset
	}
	return colorRed + "ERR" + colorReset
}

func printSummaryTable(w io.Writer, sums []runner.ModelSummary) {
	ranked := make([]runner.ModelSummary, len(sums))
	copy(ranked, sums)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Accuracy > ranked[j].Accuracy
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSTATUS\tTOTAL\tCORRECT\tACCURACY\tEXACT\tALIAS\tAVG_FUZZY\tELAPSED(s)\tERROR")
	for _, sum := range ranked {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%d\t%d\t%.1f\t%.1f\t%s\n",
			sum.Model,
			coloredStatus(sum.Error == ""),
			sum.Total,
			sum.Correct,
			sum.Accuracy,
			sum.Exact,
			sum.Alias,
			sum.AvgFuzzy,
			sum.ElapsedS,
			sum.Error,
		)
	}
	_ = tw.Flush()
}

func writeSummaryCSV(path string, sums []runner.ModelSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("summary: create %q: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"model", "total", "correct", "accuracy", "exact", "alias", "avg_fuzzy", "elapsed_s", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("summary: write header: %w", err)
	}
	for _, sum := range sums {
		rec := []string{
			sum.Model,
			strconv.Itoa(sum.Total),
			strconv.Itoa(sum.Correct),
			strconv.FormatFloat(sum.Accuracy, 'f', 3, 64),
			strconv.Itoa(sum.Exact),
			strconv.Itoa(sum.Alias),
			strconv.FormatFloat(sum.AvgFuzzy, 'f', 1, 64),
			strconv.FormatFloat(sum.ElapsedS, 'f', 1, 64),
			sum.Error,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("summary: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("summary: flush: %w", err)
	}
	return nil
}
