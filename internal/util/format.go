package util

import (
	"time"

	"github.com/dustin/go-humanize"
)

// HumanBytes formats a byte count for run summaries and log lines.
func HumanBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}

// HumanSince formats a time as a relative duration ("3 minutes ago").
func HumanSince(t time.Time) string {
	return humanize.Time(t)
}
