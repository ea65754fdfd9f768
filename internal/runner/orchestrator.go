package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/riddle-bench/internal/config"
	"github.com/stellarlinkco/riddle-bench/internal/dataset"
)

// EvaluateAll runs every requested model. Providers run concurrently;
// models within one provider run sequentially, so a provider's rate budget
// is never shared across its models. The returned slice has exactly one
// summary per requested spec, in input order, errored rather than omitted.
func EvaluateAll(ctx context.Context, build BuildFunc, specs []config.ModelSpec, items []dataset.QAItem, open OpenSinkFunc, cfg Config) []ModelSummary {
	if len(specs) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	type job struct {
		idx  int
		spec config.ModelSpec
	}
	byProvider := make(map[string][]job)
	var providers []string
	for i, s := range specs {
		if _, ok := byProvider[s.ProviderKey]; !ok {
			providers = append(providers, s.ProviderKey)
		}
		byProvider[s.ProviderKey] = append(byProvider[s.ProviderKey], job{idx: i, spec: s})
	}

	out := make([]ModelSummary, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		jobs := byProvider[p]
		g.Go(func() error {
			for _, j := range jobs {
				sum := runWithSink(gctx, build, j.spec, items, open, cfg)
				out[j.idx] = sum
				if cfg.Progress != nil {
					cfg.Progress(sum)
				}
			}
			return nil
		})
	}
	// Worker failures surface as summary errors, never as group errors.
	_ = g.Wait()
	return out
}

func runWithSink(ctx context.Context, build BuildFunc, spec config.ModelSpec, items []dataset.QAItem, open OpenSinkFunc, cfg Config) ModelSummary {
	name := spec.DisplayName()
	if open == nil {
		return ModelSummary{Model: name, Error: "runner: nil sink opener"}
	}
	out, err := open(name)
	if err != nil {
		return ModelSummary{Model: name, Error: err.Error()}
	}

	sum := RunModel(ctx, build, spec, items, out, cfg)
	if cerr := out.Close(); cerr != nil && sum.Error == "" {
		sum.Error = cerr.Error()
	}
	return sum
}
