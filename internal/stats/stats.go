/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package stats collects and reports statistics for a compiler run:
// columns resolved, foreign keys, calculated columns, and the trigger
// statements emitted for each table, including how many aggregation
// columns were maintained incrementally versus recomputed in full on a
// potential-extremum loss (spec.md §4.4's MAX/MIN fallback).
package stats

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// TableStats holds the compile-time statistics for a single table.
type TableStats struct {
	Table             string
	ColumnsResolved   int
	ForeignKeys       int
	CalculatedColumns int
	TriggerStatements int
	Incremental       int
	Recomputed        int
}

// Stats holds the overall statistics for a compile run.
type Stats struct {
	CompileID string
	Tables    []TableStats
	Duration  time.Duration

	TotalColumns    int
	TotalForeignKeys int
	TotalCalculated int
	TotalTriggers   int
	TotalIncremental int
	TotalRecomputed int
}

// Collector accumulates per-table statistics as the compiler visits each
// table, then produces totals via Finalize.
type Collector struct {
	mu     sync.Mutex
	tables []TableStats
}

// NewCollector creates an empty statistics collector.
func NewCollector() *Collector {
	return &Collector{tables: make([]TableStats, 0)}
}

// RecordTable records the statistics gathered for one table.
func (c *Collector) RecordTable(ts TableStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = append(c.tables, ts)
}

// Finalize computes totals across every recorded table and returns the
// completed Stats for a run identified by compileID, having taken
// duration wall-clock time.
func (c *Collector) Finalize(compileID string, duration time.Duration) *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Stats{
		CompileID: compileID,
		Tables:    c.tables,
		Duration:  duration,
	}

	for _, t := range c.tables {
		s.TotalColumns += t.ColumnsResolved
		s.TotalForeignKeys += t.ForeignKeys
		s.TotalCalculated += t.CalculatedColumns
		s.TotalTriggers += t.TriggerStatements
		s.TotalIncremental += t.Incremental
		s.TotalRecomputed += t.Recomputed
	}

	return s
}

// Reporter formats a Stats value for human consumption.
type Reporter struct{}

// NewReporter creates a statistics reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report writes a box-drawn summary table to w, one row per table plus a
// totals row, followed by a short incremental-vs-recompute breakdown.
func (r *Reporter) Report(stats *Stats, w io.Writer) {
	colWidth := len("Table")
	for _, t := range stats.Tables {
		if len(t.Table) > colWidth {
			colWidth = len(t.Table)
		}
	}
	if len("TOTAL") > colWidth {
		colWidth = len("TOTAL")
	}

	const numWidth = 10

	innerWidth := 1 + colWidth + 3 + numWidth + 3 + numWidth + 3 + numWidth + 3 + numWidth + 1

	topBorder := "╔" + strings.Repeat("═", innerWidth) + "╗"
	midBorder := "╠" + strings.Repeat("═", innerWidth) + "╣"
	botBorder := "╚" + strings.Repeat("═", innerWidth) + "╝"
	rowSep := "╟" + strings.Repeat("─", colWidth+2) + "┼" +
		strings.Repeat("─", numWidth+2) + "┼" +
		strings.Repeat("─", numWidth+2) + "┼" +
		strings.Repeat("─", numWidth+2) + "┼" +
		strings.Repeat("─", numWidth+2) + "╢"

	title := "Compile Summary"
	padding := innerWidth - len(title)
	leftPad := padding / 2
	rightPad := padding - leftPad
	titleLine := "║" + strings.Repeat(" ", leftPad) + title + strings.Repeat(" ", rightPad) + "║"

	fmt.Fprintln(w)
	fmt.Fprintln(w, topBorder)
	fmt.Fprintln(w, titleLine)
	fmt.Fprintln(w, midBorder)

	fmt.Fprintf(w, "║ %-*s │ %*s │ %*s │ %*s │ %*s ║\n",
		colWidth, "Table", numWidth, "Columns", numWidth, "FKs", numWidth, "Calc", numWidth, "Triggers")
	fmt.Fprintln(w, rowSep)

	for _, t := range stats.Tables {
		fmt.Fprintf(w, "║ %-*s │ %*s │ %*s │ %*s │ %*s ║\n",
			colWidth, t.Table,
			numWidth, humanize.Comma(int64(t.ColumnsResolved)),
			numWidth, humanize.Comma(int64(t.ForeignKeys)),
			numWidth, humanize.Comma(int64(t.CalculatedColumns)),
			numWidth, humanize.Comma(int64(t.TriggerStatements)))
	}

	fmt.Fprintln(w, rowSep)
	fmt.Fprintf(w, "║ %-*s │ %*s │ %*s │ %*s │ %*s ║\n",
		colWidth, "TOTAL",
		numWidth, humanize.Comma(int64(stats.TotalColumns)),
		numWidth, humanize.Comma(int64(stats.TotalForeignKeys)),
		numWidth, humanize.Comma(int64(stats.TotalCalculated)),
		numWidth, humanize.Comma(int64(stats.TotalTriggers)))

	fmt.Fprintln(w, botBorder)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tables compiled: %s\n", humanize.Comma(int64(len(stats.Tables))))
	fmt.Fprintf(w, "Aggregation columns maintained incrementally: %s\n", humanize.Comma(int64(stats.TotalIncremental)))
	fmt.Fprintf(w, "Aggregation columns recomputed on extremum loss: %s\n", humanize.Comma(int64(stats.TotalRecomputed)))
	fmt.Fprintf(w, "Compile ID: %s\n", stats.CompileID)
	fmt.Fprintf(w, "Elapsed: %s\n", formatDuration(stats.Duration))
}

// String returns Report's output rendered to a string.
func (r *Reporter) String(stats *Stats) string {
	var sb strings.Builder
	r.Report(stats, &sb)
	return sb.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
