package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\x1b[33mhi\x1b[0m", colorize("hi", ansiYellow, true))
	assert.Equal(t, "hi", colorize("hi", ansiYellow, false))
}

func TestFormatArrival(t *testing.T) {
	assert.Equal(t, "-", formatArrival(time.Time{}))

	ts := time.Date(2026, 3, 9, 8, 5, 0, 0, time.Local)
	assert.Equal(t, "08:05", formatArrival(ts))
}

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "4", formatLocation(4, ""))
	assert.Equal(t, "TBD", formatLocation(0, "TBD"))
	assert.Equal(t, "-", formatLocation(0, ""))
}

func TestPrintTable(t *testing.T) {
	var sb strings.Builder

	printTable(&sb,
		[]string{"ROOM", "STATUS"},
		[][]string{
			{"2", "IN_ROOM"},
			{"TBD", "WAITING"},
		},
	)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"ROOM  STATUS",
		"2     IN_ROOM",
		"TBD   WAITING",
	}, lines)
}
