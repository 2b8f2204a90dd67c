// Package reporting renders sweep results as CSV and Markdown tables.
package reporting

import (
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
)

// Report is the rendered view of one simulation run: its configuration plus
// the sweep tables it produced.
type Report struct {
	GeneratedAt time.Time

	// Run holds the persisted run configuration, nil when unknown.
	Run *domain.SimulationRun

	// Sections group sweep rows by the varied parameter, in first-seen
	// order.
	Sections []SweepSection
}

// SweepSection is one table of the report: all rows varying one parameter.
type SweepSection struct {
	Parameter string
	Rows      []domain.SweepRow
}

// SectionsFromRows groups rows by parameter, preserving first-seen section
// order and row order within each section.
func SectionsFromRows(rows []domain.SweepRow) []SweepSection {
	var sections []SweepSection
	index := make(map[string]int)

	for _, row := range rows {
		i, ok := index[row.Parameter]
		if !ok {
			i = len(sections)
			index[row.Parameter] = i
			sections = append(sections, SweepSection{Parameter: row.Parameter})
		}
		sections[i].Rows = append(sections[i].Rows, row)
	}

	return sections
}
