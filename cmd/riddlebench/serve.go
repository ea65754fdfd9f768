package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/api"
	"github.com/stellarlinkco/riddle-bench/internal/store"
)

var (
	newServer = api.NewServer
	runServer = (*api.Server).Run
)

type serveOptions struct {
	addr   string
	dbPath string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.dbPath, "db", store.DefaultSQLitePath, "sqlite path for run history")

	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	if opts == nil {
		return fmt.Errorf("serve: nil options")
	}

	st, err := store.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := newServer(st)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", opts.addr)
	return runServer(srv, opts.addr)
}
