// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package lint drives layout analysis of a Parquet file. It aggregates
// footer metadata into per-column contexts, runs a set of rules over
// them, and collects the diagnostics and corrective directives the
// rules emit.
package lint

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/parquet-go/parquet-go/format"

	"github.com/cardinalhq/pqlint/internal/cardinality"
	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/prescription"
)

// Severity ranks how strongly a diagnostic suggests acting.
type Severity int

const (
	// Suggestion marks a layout choice that is likely suboptimal.
	Suggestion Severity = iota
	// Warning marks a layout choice with a clear measurable cost.
	Warning
	// Error marks a layout the writer should never have produced.
	Error
)

func (s Severity) String() string {
	switch s {
	case Suggestion:
		return "suggestion"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic is one finding of one rule. Column is empty for findings
// about the file as a whole.
type Diagnostic struct {
	Rule       string
	Severity   Severity
	Column     string
	Message    string
	Directives []prescription.Directive
}

// Location renders where the diagnostic points.
func (d Diagnostic) Location() string {
	if d.Column == "" {
		return "file"
	}
	return "column " + d.Column
}

// Rule inspects the lint context and reports diagnostics. Rules must
// not modify the context.
type Rule interface {
	Name() string
	Check(ctx context.Context, lc *Context) ([]Diagnostic, error)
}

// Context is everything rules get to look at: the raw footer, one
// aggregated context per leaf column, and the open file for rules
// that need page-level reads. File may be nil, in which case rules
// fall back to metadata-only checks.
type Context struct {
	File     *fileview.File
	Meta     *format.FileMetaData
	FileSize int64
	Columns  []*ColumnContext
}

// Report is the outcome of a lint run.
type Report struct {
	File        string
	Diagnostics []Diagnostic
}

// HasWarnings reports whether any diagnostic is Warning or stronger.
func (r *Report) HasWarnings() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= Warning {
			return true
		}
	}
	return false
}

// Prescription merges the directives of every diagnostic, in report
// order.
func (r *Report) Prescription() *prescription.Prescription {
	p := &prescription.Prescription{}
	for _, d := range r.Diagnostics {
		p.Add(d.Directives...)
	}
	return p
}

// Run builds the lint context for f and checks every rule against it.
// Diagnostics come back ordered by ascending severity, then rule name,
// then column, so suggestions print before warnings.
func Run(ctx context.Context, f *fileview.File, rules []Rule) (*Report, error) {
	lc, err := BuildContext(ctx, f)
	if err != nil {
		return nil, err
	}

	report := &Report{File: f.Name()}
	for _, rule := range rules {
		diags, err := rule.Check(ctx, lc)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		report.Diagnostics = append(report.Diagnostics, diags...)
	}

	sort.SliceStable(report.Diagnostics, func(i, j int) bool {
		a, b := report.Diagnostics[i], report.Diagnostics[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Column < b.Column
	})
	return report, nil
}

// BuildContext aggregates footer metadata and cardinality estimates
// into per-column contexts.
func BuildContext(ctx context.Context, f *fileview.File) (*Context, error) {
	cards, err := cardinality.Estimate(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("estimate cardinality of %s: %w", f.Name(), err)
	}
	cols, err := BuildColumns(f, cards)
	if err != nil {
		return nil, fmt.Errorf("build column contexts of %s: %w", f.Name(), err)
	}
	// A failed sample pass degrades precision, it does not fail the run.
	if err := fillSampledStats(ctx, f, cols); err != nil {
		slog.Warn("stats sampling degraded to metadata only",
			slog.String("file", f.Name()), slog.Any("error", err))
	}
	return &Context{File: f, Meta: f.Metadata(), FileSize: f.Size(), Columns: cols}, nil
}
