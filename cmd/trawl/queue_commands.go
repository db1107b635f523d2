package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trawl/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage tracked identifiers",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindFlag(kindFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				counts, err := store.Stats(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if counts.Total() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderQueueCounts(counts))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Restrict counts to one kind (content, user)")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var kindFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindFlag(kindFlag)
			if err != nil {
				return err
			}
			statuses, err := parseStatusFlags(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context(), kind, statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				shown := items
				if limit > 0 && len(shown) > limit {
					shown = shown[:limit]
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Seq", "ID", "Kind", "Status", "Attempts", "Last Error", "Added", "Completed"},
					buildQueueListRows(shown),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				if len(shown) < len(items) {
					fmt.Fprintf(cmd.OutOrStdout(), "Showing %s of %s items\n", count(len(shown)), count(len(items)))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Filter by kind (content, user)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many items")
	return cmd
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		lastError := item.LastError
		if lastError == "" {
			lastError = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.Seq),
			item.ID,
			string(item.Kind),
			string(item.Status),
			fmt.Sprintf("%d", item.Attempts),
			truncate(lastError, 48),
			whenLabel(&item.AddedAt),
			whenLabel(item.CompletedAt),
		})
	}
	return rows
}

func parseStatusFlags(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				return nil, fmt.Errorf("unknown status %q (want pending, retry, completed or error)", part)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return items to pending",
		Long: "Return the given items to pending; attempts and last error are kept. " +
			"Without arguments every item in retry or error is requeued.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					updated, err := store.RequeueFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Requeued %d failed items\n", updated)
					return nil
				}
				updated, err := store.Requeue(cmd.Context(), args...)
				if err != nil {
					return err
				}
				if updated == 0 {
					fmt.Fprintln(out, "No matching items")
					return nil
				}
				fmt.Fprintf(out, "Requeued %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id...>",
		Short: "Stop tracking the given identifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				var missing []string
				removed := 0
				for _, id := range args {
					ok, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !ok {
						missing = append(missing, id)
						continue
					}
					removed++
				}
				fmt.Fprintf(out, "Removed %d items\n", removed)
				if len(missing) > 0 {
					return fmt.Errorf("not tracked: %s", strings.Join(missing, ", "))
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove tracked items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted == clearAll {
				return errors.New("specify exactly one of --completed or --all")
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if clearCompleted {
					removed, err := store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
					return nil
				}
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every tracked item")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check tracker database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "tracked_items table present: %s\n", yesNo(health.TableExists))
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total items: %s\n", count(health.TotalItems))
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
