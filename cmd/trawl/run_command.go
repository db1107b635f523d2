package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"trawl/internal/pacer"
	"trawl/internal/queue"
	"trawl/internal/runner"
	"trawl/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var maxItems int
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending identifiers until the queue drains",
		Long: "Process pending identifiers until the queue drains, --max-items is reached, " +
			"or the circuit breaker halts the run. Exit status: 0 when the run finished " +
			"normally, 2 when it halted on error, 130 when interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindFlag(kindFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var bar *runProgress
			var opts []runner.Option
			if !noProgress && isTerminal(cmd.ErrOrStderr()) {
				bar = newRunProgress(cmd.ErrOrStderr())
				opts = append(opts, runner.WithManagerOptions(workflow.WithProgress(bar.update)))
			}

			r, err := runner.Open(signalCtx, cfg, logger, opts...)
			if err != nil {
				return err
			}
			defer r.Close()

			if bar != nil {
				statsKind := kind
				if statsKind == "" {
					statsKind = queue.Kind(cfg.Scrape.KindFilter)
				}
				limit := maxItems
				if limit <= 0 {
					limit = cfg.Scrape.MaxItems
				}
				if counts, err := r.Store().Stats(signalCtx, statsKind); err == nil {
					total := counts.Remaining()
					if limit > 0 && limit < total {
						total = limit
					}
					bar.start(total)
				}
			}

			result, err := r.Run(signalCtx, workflow.RunOptions{Kind: kind, MaxItems: maxItems})
			if bar != nil {
				bar.finish()
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return &exitError{code: exitInterrupted, message: "run interrupted"}
				}
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderRunSummary(result))
			return outcomeExit(result.Outcome, result.Cause)
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Restrict the run to one kind (content, user); defaults to scrape.kind_filter")
	cmd.Flags().IntVarP(&maxItems, "max-items", "n", 0, "Stop after this many items (0 uses scrape.max_items)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress bar")
	return cmd
}

// runProgress drives a terminal progress bar from pacer snapshots.
type runProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newRunProgress(out io.Writer) *runProgress {
	return &runProgress{out: out}
}

func (p *runProgress) start(total int) {
	if total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("scraping"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *runProgress) update(snapshot pacer.Snapshot) {
	if p.bar == nil {
		return
	}
	desc := fmt.Sprintf("avg %s", durationLabel(snapshot.AverageTime))
	if snapshot.ETAValid {
		desc += fmt.Sprintf(" | eta %s", durationLabel(snapshot.ETA))
	}
	if snapshot.ErrorStreak > 0 {
		desc += fmt.Sprintf(" | streak %d", snapshot.ErrorStreak)
	}
	p.bar.Describe(desc)
	_ = p.bar.Set(snapshot.Iteration)
}

func (p *runProgress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
