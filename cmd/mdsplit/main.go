// Command mdsplit splits markdown documents into header-delimited sections.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdsplit/internal/config"
)

type app struct {
	log     *slog.Logger
	cfg     config.Config
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "mdsplit",
		Short:        "Split markdown into sections by header level",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			a.cfg = config.Load()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log progress to stderr")

	root.AddCommand(newSplitCmd(a))
	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newChunksCmd(a))
	return root
}
