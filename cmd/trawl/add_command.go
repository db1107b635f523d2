package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trawl/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var fromFile string
	var title string

	cmd := &cobra.Command{
		Use:   "add [id...]",
		Short: "Enqueue identifiers for scraping",
		Long: "Enqueue identifiers for scraping. Identifiers come from arguments, " +
			"from --file (one per line), or from stdin when --file is \"-\". " +
			"Identifiers already tracked are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := queue.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			ids := append([]string(nil), args...)
			if fromFile != "" {
				fileIDs, err := readIDs(cmd, fromFile)
				if err != nil {
					return err
				}
				ids = append(ids, fileIDs...)
			}
			if len(ids) == 0 {
				return errors.New("no identifiers given (pass ids as arguments or use --file)")
			}

			return ctx.withStore(func(store *queue.Store) error {
				added, err := store.AddMany(cmd.Context(), ids, kind, title)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %s new %s items (%s already tracked)\n",
					count(added), strings.ToLower(kindLabel(kind)), count(len(ids)-added))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", string(queue.KindContent), "Item kind (content or user)")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read identifiers from a file, one per line (\"-\" for stdin)")
	cmd.Flags().StringVar(&title, "title", "", "Optional label stored with every added item")
	return cmd
}

// readIDs reads one identifier per line, skipping blanks and # comments.
func readIDs(cmd *cobra.Command, path string) ([]string, error) {
	var reader io.Reader
	if path == "-" {
		reader = cmd.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open id file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var ids []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return ids, nil
}
