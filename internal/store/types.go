package store

import (
	"context"
	"time"
)

// RunWriter defines persistence for run summaries and per-model results.
type RunWriter interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	SaveModelResult(ctx context.Context, result *ModelRecord) error
}

// RunReader defines read access to run and model data.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)
	GetModelResults(ctx context.Context, runID string) ([]*ModelRecord, error)
}

// Analytics defines query helpers across runs.
type Analytics interface {
	ModelHistory(ctx context.Context, model string, limit int) ([]*ModelRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error)
}

// Store defines persistence for benchmark runs.
type Store interface {
	RunWriter
	RunReader
	Analytics
	Close() error
}

// RunRecord stores a single benchmark run summary.
type RunRecord struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Dataset        string
	TotalModels    int
	TotalItems     int
	FuzzyThreshold int
}

// ModelRecord stores one model's aggregate result within a run.
type ModelRecord struct {
	ID        string
	RunID     string
	Model     string
	Total     int
	Correct   int
	Accuracy  float64
	Exact     int
	Alias     int
	AvgFuzzy  float64
	ElapsedS  float64
	Error     string
	CreatedAt time.Time
}

// RunFilter filters run listings.
type RunFilter struct {
	Dataset string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// LeaderboardEntry aggregates a model's accuracy across runs. Errored
// results with no rows are excluded.
type LeaderboardEntry struct {
	Model        string
	Runs         int
	AvgAccuracy  float64
	BestAccuracy float64
	LastSeen     time.Time
}
