package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/riddle-bench/internal/config"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{configPath: config.DefaultPath}

	root := &cobra.Command{
		Use:           "riddlebench",
		Short:         "Benchmark LLMs on a riddle question set",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", st.configPath, "path to providers config file")

	root.AddCommand(newEvalCmd(st))
	root.AddCommand(newScoreCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newCheckCmd(st))
	root.AddCommand(newListCmd(st))
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newServeCmd())
	return root
}

func loadConfigInto(st *cliState) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(st.configPath)
		if err != nil {
			return err
		}
		st.cfg = cfg
		return nil
	}
}
