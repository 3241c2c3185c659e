/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package stats

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorFinalizeSumsTotals(t *testing.T) {
	c := NewCollector()
	c.RecordTable(TableStats{Table: "orders", ColumnsResolved: 5, ForeignKeys: 1, CalculatedColumns: 1, TriggerStatements: 3, Incremental: 2})
	c.RecordTable(TableStats{Table: "customers", ColumnsResolved: 3, ForeignKeys: 0, CalculatedColumns: 0, TriggerStatements: 1, Recomputed: 1})

	s := c.Finalize("test-compile-id", 2*time.Second)

	if s.TotalColumns != 8 {
		t.Errorf("TotalColumns = %d, want 8", s.TotalColumns)
	}
	if s.TotalForeignKeys != 1 {
		t.Errorf("TotalForeignKeys = %d, want 1", s.TotalForeignKeys)
	}
	if s.TotalTriggers != 4 {
		t.Errorf("TotalTriggers = %d, want 4", s.TotalTriggers)
	}
	if s.TotalIncremental != 2 || s.TotalRecomputed != 1 {
		t.Errorf("TotalIncremental/TotalRecomputed = %d/%d, want 2/1", s.TotalIncremental, s.TotalRecomputed)
	}
	if len(s.Tables) != 2 {
		t.Errorf("len(Tables) = %d, want 2", len(s.Tables))
	}
}

func TestReporterReportIncludesTablesAndTotals(t *testing.T) {
	c := NewCollector()
	c.RecordTable(TableStats{Table: "orders", ColumnsResolved: 5, ForeignKeys: 1, TriggerStatements: 3})
	s := c.Finalize("abc-123", 150*time.Millisecond)

	var sb strings.Builder
	NewReporter().Report(s, &sb)
	out := sb.String()

	for _, want := range []string{"orders", "TOTAL", "Compile ID: abc-123", "Elapsed: 150ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{90 * time.Second, "1m30s"},
		{90 * time.Minute, "1h30m"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
