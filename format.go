package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// ANSI codes used for dashboard highlights on TTYs.
const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
)

// stdoutIsTTY reports whether stdout is a terminal. Highlight colors are
// only emitted on TTYs so piped output stays clean.
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// colorize wraps s in the given ANSI code when enabled.
func colorize(s, code string, enabled bool) string {
	if !enabled {
		return s
	}

	return code + s + ansiReset
}

// formatArrival returns a compact arrival timestamp for display.
func formatArrival(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format("15:04")
}

// formatLocation renders a room assignment; unassigned records show their
// raw placeholder or a dash.
func formatLocation(location int, raw string) string {
	if location > 0 {
		return fmt.Sprintf("%d", location)
	}

	if raw != "" {
		return raw
	}

	return "-"
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}

		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeRow(headers)

	for _, row := range rows {
		writeRow(row)
	}
}
