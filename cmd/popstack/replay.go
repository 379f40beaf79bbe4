package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popstack/internal/adapter/input"
	"github.com/jmylchreest/popstack/internal/adapter/output"
	"github.com/jmylchreest/popstack/internal/core"
	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/script"
	"github.com/jmylchreest/popstack/internal/stack"
)

var replayOpts struct {
	format   string
	template string
	seed     int64
	settle   time.Duration
	noAge    bool
	filter   string
}

var replayCmd = &cobra.Command{
	Use:   "replay [script.yaml|-]",
	Short: "Run a script of stack operations and print the result",
	Long: `Run a YAML script of stack operations against a fresh set of stacks
and print every stack's final state.

Reads the script from standard input when the argument is "-" or omitted.

Script format:
  stack: main            # default stack for steps
  steps:
    - op: insert         # insert, remove, remove-up-to, remove-last,
      type: toast        # clear, height, pause, resume, wait
      anchor: top        # top, centre or bottom
      as: saved          # name this popup for later steps
      payload: Saved
      dismiss_after: 2s
    - op: remove
      ref: saved

Examples:
  # Print the final stacks as plain text
  popstack replay demo.yaml

  # Reproducible identifiers, JSON output
  popstack replay demo.yaml --seed 42 --format json

  # Only the bottom sheets still showing
  popstack replay demo.yaml --filter "anchor=bottom"

  # Just the identifiers of the remaining popups
  cat demo.yaml | popstack replay --format ids`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml, ids, dmenu)")
	replayCmd.Flags().StringVar(&replayOpts.template, "template", "",
		"Go template for plain/dmenu output")
	replayCmd.Flags().Int64Var(&replayOpts.seed, "seed", 0,
		"Seed for reproducible popup identifiers (0 = random)")
	replayCmd.Flags().DurationVar(&replayOpts.settle, "settle", 0,
		"Wait this long after the last step before printing, so dismiss timers can fire")
	replayCmd.Flags().BoolVar(&replayOpts.noAge, "no-age", false,
		"Omit popup ages from plain and dmenu output")
	replayCmd.Flags().StringVar(&replayOpts.filter, "filter", "",
		"Filter printed popups (e.g. \"anchor=top,type~toast\", \"height>=200\")")
}

func runReplay(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) > 0 {
		source = args[0]
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = replayOpts.template
	opts.ShowAge = !replayOpts.noAge
	formatter, err := output.NewFormatter(output.FormatType(replayOpts.format), opts)
	if err != nil {
		return err
	}

	filter, err := core.ParseFilter(replayOpts.filter)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	adapter, err := input.NewAdapter(source)
	if err != nil {
		return err
	}
	s, err := adapter.Import(ctx)
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	reg := stack.NewRegistry(getConfig(), logger)
	defer reg.Clean()

	runner := script.NewRunner(reg, getConfig(), logger)
	if replayOpts.seed != 0 {
		runner.SetGenerator(model.NewSeededGenerator(replayOpts.seed))
	}

	if err := runner.Run(ctx, s); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	if replayOpts.settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(replayOpts.settle):
		}
	}

	snaps := core.FilterSnapshots(output.SnapshotRegistry(reg), filter)
	return formatter.Format(os.Stdout, snaps)
}
