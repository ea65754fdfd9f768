package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stellarlinkco/riddle-bench/internal/config"
	"github.com/stellarlinkco/riddle-bench/internal/llm"
)

type sinkSet struct {
	mu    sync.Mutex
	sinks map[string]*memSink

	open    map[string]int // provider prefix -> currently open sinks
	maxOpen map[string]int
}

func newSinkSet() *sinkSet {
	return &sinkSet{
		sinks:   make(map[string]*memSink),
		open:    make(map[string]int),
		maxOpen: make(map[string]int),
	}
}

func (s *sinkSet) opener() OpenSinkFunc {
	return func(model string) (Sink, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		provider, _, _ := strings.Cut(model, ":")
		s.open[provider]++
		if s.open[provider] > s.maxOpen[provider] {
			s.maxOpen[provider] = s.open[provider]
		}

		ms := &memSink{}
		s.sinks[model] = ms
		return &trackedSink{memSink: ms, set: s, provider: provider}, nil
	}
}

type trackedSink struct {
	*memSink
	set      *sinkSet
	provider string
}

func (t *trackedSink) Close() error {
	t.set.mu.Lock()
	t.set.open[t.provider]--
	t.set.mu.Unlock()
	return t.memSink.Close()
}

func testSpecs() []config.ModelSpec {
	return []config.ModelSpec{
		{ProviderKey: "groq", ModelID: "llama"},
		{ProviderKey: "groq", ModelID: "mixtral"},
		{ProviderKey: "openrouter", ModelID: "qwen"},
	}
}

func TestEvaluateAll(t *testing.T) {
	t.Parallel()

	build := func(spec config.ModelSpec) (llm.Invoker, error) {
		return &fakeInvoker{model: spec.ModelID, ask: func(context.Context, string) (string, error) {
			return "Paris", nil
		}}, nil
	}
	set := newSinkSet()

	sums := EvaluateAll(context.Background(), build, testSpecs(), testItems(), set.opener(), Config{DefaultWorkers: 2})

	if len(sums) != 3 {
		t.Fatalf("summaries = %d", len(sums))
	}
	want := []string{"groq:llama", "groq:mixtral", "openrouter:qwen"}
	for i, w := range want {
		if sums[i].Model != w {
			t.Fatalf("summary %d = %q, want %q", i, sums[i].Model, w)
		}
		if sums[i].Error != "" {
			t.Fatalf("%s: %s", w, sums[i].Error)
		}
		if sums[i].Total != 3 {
			t.Fatalf("%s total = %d", w, sums[i].Total)
		}
	}
	for model, ms := range set.sinks {
		if len(ms.rows) != 3 {
			t.Fatalf("%s sink rows = %d", model, len(ms.rows))
		}
		if !ms.closed {
			t.Fatalf("%s sink left open", model)
		}
	}
}

func TestEvaluateAllSequentialWithinProvider(t *testing.T) {
	t.Parallel()

	build := func(spec config.ModelSpec) (llm.Invoker, error) {
		return &fakeInvoker{model: spec.ModelID, ask: func(context.Context, string) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "Paris", nil
		}}, nil
	}
	set := newSinkSet()

	EvaluateAll(context.Background(), build, testSpecs(), testItems(), set.opener(), Config{DefaultWorkers: 2})

	// Two groq models must never run at once; one sink open at a time.
	if got := set.maxOpen["groq"]; got != 1 {
		t.Fatalf("concurrent groq models = %d, want 1", got)
	}
}

func TestEvaluateAllFaultIsolation(t *testing.T) {
	t.Parallel()

	build := func(spec config.ModelSpec) (llm.Invoker, error) {
		if spec.ModelID == "mixtral" {
			return nil, errors.New("llm: missing api key")
		}
		return &fakeInvoker{model: spec.ModelID, ask: func(context.Context, string) (string, error) {
			return "Paris", nil
		}}, nil
	}
	set := newSinkSet()

	sums := EvaluateAll(context.Background(), build, testSpecs(), testItems(), set.opener(), Config{})

	if len(sums) != 3 {
		t.Fatalf("summaries = %d", len(sums))
	}
	if sums[1].Error == "" || sums[1].Total != 0 {
		t.Fatalf("mixtral should have failed empty: %+v", sums[1])
	}
	if sums[0].Error != "" || sums[0].Total != 3 {
		t.Fatalf("llama affected by sibling failure: %+v", sums[0])
	}
	if sums[2].Error != "" || sums[2].Total != 3 {
		t.Fatalf("qwen affected by other provider: %+v", sums[2])
	}
}

func TestEvaluateAllProgress(t *testing.T) {
	t.Parallel()

	build := func(spec config.ModelSpec) (llm.Invoker, error) {
		return &fakeInvoker{model: spec.ModelID, ask: func(context.Context, string) (string, error) {
			return "Paris", nil
		}}, nil
	}

	var mu sync.Mutex
	var done []string
	cfg := Config{Progress: func(sum ModelSummary) {
		mu.Lock()
		done = append(done, sum.Model)
		mu.Unlock()
	}}

	EvaluateAll(context.Background(), build, testSpecs(), testItems(), newSinkSet().opener(), cfg)

	if len(done) != 3 {
		t.Fatalf("progress calls = %d", len(done))
	}
}

func TestEvaluateAllEmpty(t *testing.T) {
	t.Parallel()

	if sums := EvaluateAll(context.Background(), nil, nil, nil, nil, Config{}); sums != nil {
		t.Fatalf("expected nil, got %+v", sums)
	}
}
