package runner

import (
	"time"

	"github.com/stellarlinkco/riddle-bench/internal/config"
	"github.com/stellarlinkco/riddle-bench/internal/llm"
)

// BuildFunc constructs the invoker for one model spec.
type BuildFunc func(spec config.ModelSpec) (llm.Invoker, error)

// Sink receives result rows as they are produced. Implementations must be
// safe for concurrent Append calls.
type Sink interface {
	Append(v any) error
	Close() error
}

// OpenSinkFunc opens the row sink for one model, keyed by display name.
type OpenSinkFunc func(model string) (Sink, error)

// Config defines pool behavior and grading thresholds.
type Config struct {
	FuzzyThreshold int            // 0 means grade.DefaultFuzzyThreshold
	Timeout        time.Duration  // per-invocation budget, 0 disables
	Workers        map[string]int // per provider key
	DefaultWorkers int            // fallback when a provider has no entry
	Progress       func(ModelSummary)
}

func (c Config) workersFor(provider string) int {
	if n, ok := c.Workers[provider]; ok && n > 0 {
		return n
	}
	if c.DefaultWorkers > 0 {
		return c.DefaultWorkers
	}
	return 1
}

// ResultRow is one persisted evaluation outcome. Rows are written exactly
// once per (model, item) pair and never mutated afterwards. A failed
// invocation still yields a row: Succeeded is false and Answer carries the
// error text.
type ResultRow struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	AnswerRef string   `json:"answer_ref"`
	Aliases   []string `json:"aliases,omitempty"`
	Model     string   `json:"model"`
	Answer    string   `json:"answer"`
	Succeeded bool     `json:"succeeded"`
	LatencyMs int64    `json:"latency_ms"`
	IsExact   bool     `json:"is_exact"`
	IsAlias   bool     `json:"is_alias"`
	Fuzzy     int      `json:"fuzzy"`
	IsCorrect bool     `json:"is_correct"`
}

// Stats aggregates grading outcomes over a set of rows.
type Stats struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
	Exact    int     `json:"exact"`
	Alias    int     `json:"alias"`
	AvgFuzzy float64 `json:"avg_fuzzy"`
}

// ModelSummary reports one model's full run. Error is set when the model
// failed before producing rows (construction failure) or when persisting
// rows failed mid-run.
type ModelSummary struct {
	Model string `json:"model"`
	Stats
	ElapsedS float64 `json:"elapsed_s"`
	Error    string  `json:"error,omitempty"`
}
