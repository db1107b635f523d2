package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trawl/internal/logging"
	"trawl/internal/preflight"
	"trawl/internal/queue"
	"trawl/internal/runner"
)

const statusCheckTimeout = 15 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Run preflight checks and summarize the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			checkCtx, cancel := context.WithTimeout(cmd.Context(), statusCheckTimeout)
			defer cancel()

			handlers := runner.NewHandlers(cfg, logging.NewNop())
			results := preflight.RunAll(checkCtx, cfg, handlers)

			fmt.Fprintln(out, renderChecks(results, colorize))

			err = ctx.withStore(func(store *queue.Store) error {
				counts, err := store.Stats(cmd.Context(), "")
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderQueueCounts(counts))
				return nil
			})
			if err != nil {
				return err
			}

			if !preflight.Passed(results) {
				return &exitError{code: exitFailure, message: "one or more checks failed"}
			}
			return nil
		},
	}
}
