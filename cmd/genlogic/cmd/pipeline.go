/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pgedge/genlogic/internal/calcgraph"
	"github.com/pgedge/genlogic/internal/ddl"
	"github.com/pgedge/genlogic/internal/fkgraph"
	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
	"github.com/pgedge/genlogic/internal/stats"
	"github.com/pgedge/genlogic/internal/trigger"
)

// compileResult is everything a full compile run produces, shared by the
// compile and apply commands.
type compileResult struct {
	CompileID    uuid.UUID
	Resolved     *resolve.ResolvedSchema
	Automations  map[string]*trigger.TableAutomations
	Hidden       map[string][]trigger.HiddenColumn
	Statements   []ddl.Statement
	Triggers     map[string]*trigger.CompileResult
	Stats        *stats.Stats
}

// runC1ThroughC3 loads and validates a schema file through C1 (resolve),
// C2 (FK graph), and C3 (calc graph), without emitting any output. The
// validate command runs this and then only assembles automations to count
// the tables that need triggers.
func runC1ThroughC3(schemaPath string) (*resolve.ResolvedSchema, error) {
	doc, err := schema.Load(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	rs, err := resolve.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}

	if err := fkgraph.Validate(rs); err != nil {
		return nil, fmt.Errorf("foreign key graph: %w", err)
	}

	if err := calcgraph.Validate(rs); err != nil {
		return nil, fmt.Errorf("calculated column graph: %w", err)
	}

	return rs, nil
}

// runCompile runs the full C1-C4 pipeline plus DDL emission, collecting
// statistics along the way.
func runCompile(schemaPath string) (*compileResult, error) {
	rs, err := runC1ThroughC3(schemaPath)
	if err != nil {
		return nil, err
	}

	automations, err := trigger.Assemble(rs)
	if err != nil {
		return nil, fmt.Errorf("assembling automations: %w", err)
	}

	hidden := trigger.ComputeHiddenColumns(rs)

	stmts, err := ddl.Generate(rs, hidden)
	if err != nil {
		return nil, fmt.Errorf("generating DDL: %w", err)
	}

	compileID := uuid.New()

	compiled, err := trigger.Compile(rs, automations, compileID)
	if err != nil {
		return nil, fmt.Errorf("compiling triggers: %w", err)
	}

	collector := stats.NewCollector()
	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}
		ts := stats.TableStats{
			Table:           tname,
			ColumnsResolved: len(table.Columns),
			ForeignKeys:     len(table.ForeignKeys),
		}
		if ta := automations[tname]; ta != nil {
			ts.CalculatedColumns = len(ta.CalculatedColumns)
			for _, p := range ta.PushToParents {
				for _, entry := range p.Entries {
					if entry.Kind == schema.AutoMax || entry.Kind == schema.AutoMin {
						ts.Recomputed++
					} else {
						ts.Incremental++
					}
				}
			}
		}
		if result := compiled[tname]; result != nil {
			ts.TriggerStatements = len(result.Triggers)
		}
		collector.RecordTable(ts)
	}

	return &compileResult{
		CompileID:   compileID,
		Resolved:    rs,
		Automations: automations,
		Hidden:      hidden,
		Statements:  stmts,
		Triggers:    compiled,
		Stats:       collector.Finalize(compileID.String(), 0),
	}, nil
}
