package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"trawl/internal/preflight"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusFailed
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBold  = "\x1b[1m"
)

const checkLabelWidth = 24

// renderChecks lays out preflight results one per line under a header.
func renderChecks(results []preflight.Result, colorize bool) string {
	var b strings.Builder
	b.WriteString(paint("Preflight", ansiBold, colorize))
	b.WriteString("\n")
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusFailed
		}
		b.WriteString(renderStatusLine(result.Name, kind, result.Detail, colorize))
		b.WriteString("\n")
	}
	return b.String()
}

func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	tag := "[ok]  "
	color := ansiGreen
	if kind == statusFailed {
		tag = "[fail]"
		color = ansiRed
	}
	line := fmt.Sprintf("  %s %-*s", paint(tag, color, colorize), checkLabelWidth, label)
	if detail = strings.TrimSpace(detail); detail != "" {
		line += " " + detail
	}
	return strings.TrimRight(line, " ")
}

func paint(value, color string, colorize bool) string {
	if !colorize || color == "" {
		return value
	}
	return color + value + ansiReset
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
