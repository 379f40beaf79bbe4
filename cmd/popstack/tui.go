package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popstack/internal/stack"
	"github.com/jmylchreest/popstack/internal/tui"
)

var tuiOpts struct {
	stack string
	watch bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive popup stack demo",
	Long: `Launch an interactive terminal demo of a popup stack.

The top, centre and bottom anchor groups are drawn in place; the group in
front is highlighted and the z-order is shown in the header. Changes to the
config file are applied while the demo runs.

Key bindings:
  1/t, 2/c, 3/b  Push a top, centre or bottom popup
  T              Push a toast that dismisses itself
  j/k, ↑/↓       Select a popup
  r              Show the selected popup's type again (replace)
  d              Dismiss selected popup
  u              Dismiss selected popup and everything above it
  p              Pop the top popup
  D              Clear the stack
  s              Pause/resume the selected popup's timer
  h              Measure the selected popup
  y/Y            Copy the stack as YAML/JSON
  ?              Show help
  q              Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiOpts.stack, "stack", "main",
		"Name of the stack to show")
	tuiCmd.Flags().BoolVar(&tuiOpts.watch, "watch", true,
		"Reload the config file when it changes")
}

func runTUI(cmd *cobra.Command, args []string) error {
	var watchPath string
	if tuiOpts.watch {
		path, err := configPath()
		if err != nil {
			logger.Warn("config path unavailable, not watching", "error", err)
		} else {
			watchPath = path
		}
	}

	id := tuiOpts.stack
	if id == "" {
		id = "main"
	}

	return tui.Run(tui.RunOptions{
		Config:     getConfig(),
		StackID:    stack.ID(id),
		ConfigPath: watchPath,
		Logger:     logger,
	})
}
