package main

import (
	"fmt"
	"strings"

	"trawl/internal/queue"
	"trawl/internal/workflow"
)

func renderRunSummary(result *workflow.RunResult) string {
	if result == nil {
		return ""
	}
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s finished: %s\n", result.RunID, result.Outcome)
	if result.Cause != "" {
		fmt.Fprintf(&b, "Cause: %s\n", result.Cause)
	}

	b.WriteString(renderTableSpec(tableSpec{
		title:   fmt.Sprintf("%s items", kindLabel(result.Kind)),
		headers: []string{"Metric", "Value"},
		rows: [][]string{
			{"Processed", count(result.Processed)},
			{"Succeeded", count(result.Succeeded)},
			{"Failed", count(len(result.Failures))},
			{"Fetch attempts", count(result.Attempts)},
			{"Flushes", count(result.Flushes)},
			{"Persisted", bytesLabel(result.BytesPersisted)},
			{"Duration", durationLabel(result.Duration)},
		},
		aligns: []columnAlignment{alignLeft, alignRight},
	}))

	b.WriteString(renderQueueCounts(result.Counts))

	if len(result.Failures) > 0 {
		rows := make([][]string, 0, len(result.Failures))
		for _, failure := range result.Failures {
			rows = append(rows, []string{
				failure.ID,
				kindLabel(failure.Kind),
				count(failure.Attempts),
				truncate(failure.Error, 80),
			})
		}
		b.WriteString(renderTableSpec(tableSpec{
			title:   "Failed this run",
			headers: []string{"ID", "Kind", "Attempts", "Error"},
			rows:    rows,
			aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		}))
	}
	return b.String()
}

func renderQueueCounts(counts queue.Counts) string {
	rows := make([][]string, 0, 4)
	for _, status := range queue.AllStatuses() {
		rows = append(rows, []string{statusLabel(status), count(counts.ByStatus(status))})
	}
	return renderTableSpec(tableSpec{
		title:   "Queue",
		headers: []string{"Status", "Count"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight},
		footer:  []string{"Total", count(counts.Total())},
	})
}
