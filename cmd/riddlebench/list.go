package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/internal/config"
)

func newListCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "list",
		Short:             "List configured providers or models",
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadConfigInto(st),
	}

	cmd.AddCommand(newListModelsCmd(st))
	cmd.AddCommand(newListProvidersCmd(st))
	return cmd
}

func newListModelsCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List evaluable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st == nil || st.cfg == nil {
				return fmt.Errorf("list: missing config (internal error)")
			}

			specs := config.List(st.cfg)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tPROVIDER\tFAMILY\tDEPLOYMENT")
			for _, spec := range specs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					spec.DisplayName(),
					spec.ProviderKey,
					spec.Provider.ResolvedFamily(spec.ProviderKey),
					spec.Deployment,
				)
			}
			return tw.Flush()
		},
	}
}

func newListProvidersCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers with worker limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st == nil || st.cfg == nil {
				return fmt.Errorf("list: missing config (internal error)")
			}

			limits := config.WorkerLimits(st.cfg)
			keys := make([]string, 0, len(st.cfg.Providers))
			for key := range st.cfg.Providers {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tFAMILY\tWORKERS\tMODELS")
			for _, key := range keys {
				p := st.cfg.Providers[key]
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n",
					key, p.ResolvedFamily(key), limits[key], len(p.Models))
			}
			return tw.Flush()
		},
	}
}
