// Package runner dispatches dataset items to model invokers, grades the
// answers, and aggregates per-model summaries. Each model gets its own
// bounded worker pool; providers run independently of each other.
package runner

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/stellarlinkco/riddle-bench/internal/config"
	"github.com/stellarlinkco/riddle-bench/internal/dataset"
	"github.com/stellarlinkco/riddle-bench/internal/grade"
	"github.com/stellarlinkco/riddle-bench/internal/llm"
)

// RunModel evaluates every item against one model through a bounded pool of
// workers and appends each graded row to out as soon as it exists. Every
// item yields exactly one row, including items that fail or are cancelled.
// A sink write failure cancels the pool and surfaces in the summary error.
func RunModel(ctx context.Context, build BuildFunc, spec config.ModelSpec, items []dataset.QAItem, out Sink, cfg Config) ModelSummary {
	start := time.Now()
	sum := ModelSummary{Model: spec.DisplayName()}

	if ctx == nil {
		ctx = context.Background()
	}
	if build == nil {
		sum.Error = "runner: nil build func"
		return sum
	}
	if out == nil {
		sum.Error = "runner: nil sink"
		return sum
	}

	inv, err := build(spec)
	if err != nil {
		sum.Error = err.Error()
		sum.ElapsedS = roundSeconds(time.Since(start))
		return sum
	}

	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = grade.DefaultFuzzyThreshold
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		rows    = make([]ResultRow, 0, len(items))
		sinkErr error
	)
	sem := make(chan struct{}, cfg.workersFor(spec.ProviderKey))

	var wg sync.WaitGroup
	for i := range items {
		item := &items[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			var row ResultRow
			select {
			case sem <- struct{}{}:
				row = evalOne(poolCtx, inv, item, sum.Model, threshold, cfg.Timeout)
				<-sem
			case <-poolCtx.Done():
				row = errorRow(item, sum.Model, poolCtx.Err(), 0)
			}

			mu.Lock()
			defer mu.Unlock()
			rows = append(rows, row)
			if err := out.Append(row); err != nil && sinkErr == nil {
				sinkErr = err
				cancel()
			}
		}()
	}
	wg.Wait()

	sum.Stats = Summarize(rows)
	sum.ElapsedS = roundSeconds(time.Since(start))
	if sinkErr != nil {
		sum.Error = sinkErr.Error()
	}
	return sum
}

func evalOne(ctx context.Context, inv llm.Invoker, item *dataset.QAItem, model string, threshold int, timeout time.Duration) ResultRow {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	begin := time.Now()
	answer, err := inv.Ask(callCtx, item.Question)
	latency := time.Since(begin).Milliseconds()
	if err != nil {
		return errorRow(item, model, err, latency)
	}

	g := grade.Answer(item, answer, threshold)
	return ResultRow{
		ID:        item.ID,
		Question:  item.Question,
		AnswerRef: item.Answer,
		Aliases:   item.Aliases,
		Model:     model,
		Answer:    answer,
		Succeeded: true,
		LatencyMs: latency,
		IsExact:   g.IsExact,
		IsAlias:   g.IsAlias,
		Fuzzy:     g.Fuzzy,
		IsCorrect: g.IsCorrect,
	}
}

// errorRow keeps the raw-file convention of an <error: ...> answer while the
// Succeeded field stays the machine-readable signal.
func errorRow(item *dataset.QAItem, model string, err error, latency int64) ResultRow {
	return ResultRow{
		ID:        item.ID,
		Question:  item.Question,
		AnswerRef: item.Answer,
		Aliases:   item.Aliases,
		Model:     model,
		Answer:    fmt.Sprintf("<error: %v>", err),
		LatencyMs: latency,
	}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
