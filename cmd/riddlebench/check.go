package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/riddle-bench/internal/llm"
)

const checkQuestion = "Reply with the single word: ready"

type checkOptions struct {
	models  string
	timeout time.Duration
}

func newCheckCmd(st *cliState) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Smoke-test connectivity to every configured model",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigInto(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.models, "models", "", "comma-separated provider:model selectors (default: all configured)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-model timeout")

	return cmd
}

func runCheck(cmd *cobra.Command, st *cliState, opts *checkOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("check: missing config (internal error)")
	}
	if opts == nil {
		return fmt.Errorf("check: nil options")
	}

	specs, err := resolveSpecs(st.cfg, opts.models)
	if err != nil {
		return err
	}

	type checkResult struct {
		model   string
		latency time.Duration
		err     error
	}
	results := make([]checkResult, len(specs))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)
	for i, spec := range specs {
		g.Go(func() error {
			res := checkResult{model: spec.DisplayName()}
			defer func() { results[i] = res }()

			inv, err := llm.New(spec)
			if err != nil {
				res.err = err
				return nil
			}

			callCtx, cancel := context.WithTimeout(ctx, opts.timeout)
			defer cancel()

			begin := time.Now()
			_, err = inv.Ask(callCtx, checkQuestion)
			res.latency = time.Since(begin)
			res.err = err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSTATUS\tLATENCY\tERROR")
	for _, res := range results {
		errMsg := ""
		if res.err != nil {
			failed++
			errMsg = res.err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			res.model, coloredStatus(res.err == nil), res.latency.Round(time.Millisecond), errMsg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("check: %d of %d models unreachable", failed, len(specs))
	}
	return nil
}
