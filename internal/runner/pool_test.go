package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stellarlinkco/riddle-bench/internal/config"
	"github.com/stellarlinkco/riddle-bench/internal/dataset"
	"github.com/stellarlinkco/riddle-bench/internal/llm"
)

type fakeInvoker struct {
	model string
	ask   func(ctx context.Context, question string) (string, error)
}

func (f *fakeInvoker) Model() string { return f.model }

func (f *fakeInvoker) Ask(ctx context.Context, question string) (string, error) {
	return f.ask(ctx, question)
}

type memSink struct {
	mu     sync.Mutex
	rows   []ResultRow
	failAt int // fail appends from the nth call on, 0 disables
	calls  int
	closed bool
}

func (s *memSink) Append(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAt > 0 && s.calls >= s.failAt {
		return errors.New("sink: disk full")
	}
	row, ok := v.(ResultRow)
	if !ok {
		return errors.New("unexpected row type")
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) byID() map[string]ResultRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ResultRow, len(s.rows))
	for _, r := range s.rows {
		out[r.ID] = r
	}
	return out
}

func testItems() []dataset.QAItem {
	return []dataset.QAItem{
		{ID: "q1", Question: "Capital of France?", Answer: "Paris", Aliases: []string{"City of Light"}},
		{ID: "q2", Question: "Who developed relativity?", Answer: "Albert Einstein"},
		{ID: "q3", Question: "Largest ocean?", Answer: "Pacific Ocean"},
	}
}

func buildFor(inv llm.Invoker) BuildFunc {
	return func(config.ModelSpec) (llm.Invoker, error) { return inv, nil }
}

func TestRunModel(t *testing.T) {
	t.Parallel()

	answers := map[string]string{
		"Capital of France?":        "Paris",
		"Who developed relativity?": "Einstein, Albert",
		"Largest ocean?":            "the Atlantic",
	}
	inv := &fakeInvoker{model: "m", ask: func(_ context.Context, q string) (string, error) {
		return answers[q], nil
	}}
	sink := &memSink{}
	spec := config.ModelSpec{ProviderKey: "groq", ModelID: "m"}

	sum := RunModel(context.Background(), buildFor(inv), spec, testItems(), sink, Config{Workers: map[string]int{"groq": 2}})

	if sum.Error != "" {
		t.Fatalf("unexpected error: %s", sum.Error)
	}
	if sum.Model != "groq:m" {
		t.Fatalf("model = %q", sum.Model)
	}
	if sum.Total != 3 || sum.Correct != 2 {
		t.Fatalf("total/correct = %d/%d", sum.Total, sum.Correct)
	}
	if sum.Accuracy != 0.667 {
		t.Fatalf("accuracy = %v", sum.Accuracy)
	}

	rows := sink.byID()
	if len(rows) != 3 {
		t.Fatalf("sink rows = %d", len(rows))
	}
	if r := rows["q1"]; !r.IsExact || !r.IsCorrect || !r.Succeeded {
		t.Fatalf("q1 = %+v", r)
	}
	// Reordered tokens grade as correct without an exact match.
	if r := rows["q2"]; r.IsExact || !r.IsCorrect || r.Fuzzy != 100 {
		t.Fatalf("q2 = %+v", r)
	}
	if r := rows["q3"]; r.IsCorrect || !r.Succeeded {
		t.Fatalf("q3 = %+v", r)
	}
}

func TestRunModelInvocationFailure(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{model: "m", ask: func(_ context.Context, q string) (string, error) {
		if q == "Who developed relativity?" {
			return "", errors.New("rate limited")
		}
		return "Paris", nil
	}}
	sink := &memSink{}
	spec := config.ModelSpec{ProviderKey: "groq", ModelID: "m"}

	sum := RunModel(context.Background(), buildFor(inv), spec, testItems(), sink, Config{})

	if sum.Error != "" {
		t.Fatalf("item failure must not fail the model: %s", sum.Error)
	}
	if sum.Total != 3 {
		t.Fatalf("total = %d", sum.Total)
	}

	rows := sink.byID()
	r := rows["q2"]
	if r.Succeeded {
		t.Fatalf("q2 should be failed: %+v", r)
	}
	if !strings.HasPrefix(r.Answer, "<error: ") {
		t.Fatalf("q2 answer = %q", r.Answer)
	}
	if r.IsCorrect || r.IsExact || r.IsAlias || r.Fuzzy != 0 {
		t.Fatalf("failed row must grade as incorrect: %+v", r)
	}
	if !rows["q1"].Succeeded || !rows["q3"].Succeeded {
		t.Fatalf("other items must be unaffected")
	}
}

func TestRunModelBuildFailure(t *testing.T) {
	t.Parallel()

	build := func(config.ModelSpec) (llm.Invoker, error) {
		return nil, errors.New("llm: missing api key")
	}
	sink := &memSink{}

	sum := RunModel(context.Background(), build, config.ModelSpec{ProviderKey: "groq", ModelID: "m"}, testItems(), sink, Config{})

	if sum.Error == "" || !strings.Contains(sum.Error, "missing api key") {
		t.Fatalf("error = %q", sum.Error)
	}
	if sum.Total != 0 || len(sink.rows) != 0 {
		t.Fatalf("build failure must produce no rows: %+v", sum)
	}
}

func TestRunModelSinkFailure(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{model: "m", ask: func(context.Context, string) (string, error) {
		return "Paris", nil
	}}
	sink := &memSink{failAt: 1}
	spec := config.ModelSpec{ProviderKey: "groq", ModelID: "m"}

	sum := RunModel(context.Background(), buildFor(inv), spec, testItems(), sink, Config{})

	if !strings.Contains(sum.Error, "disk full") {
		t.Fatalf("error = %q", sum.Error)
	}
	// Rows are still accounted for even when persisting them failed.
	if sum.Total != 3 {
		t.Fatalf("total = %d", sum.Total)
	}
}

func TestRunModelTimeout(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{model: "m", ask: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	sink := &memSink{}
	spec := config.ModelSpec{ProviderKey: "groq", ModelID: "m"}

	sum := RunModel(context.Background(), buildFor(inv), spec, testItems(), sink, Config{Timeout: 20 * time.Millisecond})

	if sum.Total != 3 || sum.Correct != 0 {
		t.Fatalf("total/correct = %d/%d", sum.Total, sum.Correct)
	}
	for id, r := range sink.byID() {
		if r.Succeeded {
			t.Fatalf("%s should have timed out: %+v", id, r)
		}
		if !strings.Contains(r.Answer, "deadline") {
			t.Fatalf("%s answer = %q", id, r.Answer)
		}
	}
}

func TestRunModelCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &fakeInvoker{model: "m", ask: func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	}}
	sink := &memSink{}
	spec := config.ModelSpec{ProviderKey: "groq", ModelID: "m"}

	sum := RunModel(ctx, buildFor(inv), spec, testItems(), sink, Config{Workers: map[string]int{"groq": 1}})

	// Cancellation still yields exactly one row per item.
	if sum.Total != 3 {
		t.Fatalf("total = %d", sum.Total)
	}
	if got := len(sink.byID()); got != 3 {
		t.Fatalf("distinct rows = %d", got)
	}
	for _, r := range sink.rows {
		if r.Succeeded || r.IsCorrect {
			t.Fatalf("cancelled row graded as success: %+v", r)
		}
	}
}

func TestRunModelWorkerBound(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	active, maxActive := 0, 0

	inv := &fakeInvoker{model: "m", ask: func(context.Context, string) (string, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return "Paris", nil
	}}

	items := make([]dataset.QAItem, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		items = append(items, dataset.QAItem{ID: id, Question: id + "?", Answer: "Paris"})
	}
	spec := config.ModelSpec{ProviderKey: "groq", ModelID: "m"}

	sum := RunModel(context.Background(), buildFor(inv), spec, items, &memSink{}, Config{Workers: map[string]int{"groq": 2}})

	if sum.Total != 8 {
		t.Fatalf("total = %d", sum.Total)
	}
	if maxActive > 2 {
		t.Fatalf("max concurrent invocations = %d, want <= 2", maxActive)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	if s := Summarize(nil); s != (Stats{}) {
		t.Fatalf("empty input = %+v", s)
	}

	rows := []ResultRow{
		{IsExact: true, IsCorrect: true, Fuzzy: 100},
		{IsAlias: true, IsCorrect: true, Fuzzy: 50},
		{Fuzzy: 50},
	}
	s := Summarize(rows)
	if s.Total != 3 || s.Correct != 2 || s.Exact != 1 || s.Alias != 1 {
		t.Fatalf("counts = %+v", s)
	}
	if s.Accuracy != 0.667 {
		t.Fatalf("accuracy = %v", s.Accuracy)
	}
	if s.AvgFuzzy != 66.7 {
		t.Fatalf("avg fuzzy = %v", s.AvgFuzzy)
	}
}
