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

package rules

import (
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go/format"

	"github.com/cardinalhq/pqlint/internal/lint"
	"github.com/cardinalhq/pqlint/internal/prescription"
)

// sortedIntegers suggests DELTA_BINARY_PACKED for integer columns the
// file proves are sorted, either by declared sorting columns or by
// monotonic per-row-group minimums.
type sortedIntegers struct{}

func (*sortedIntegers) Name() string { return "sorted-integer-delta" }

func (r *sortedIntegers) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for i, cc := range lc.Columns {
		if !isInteger(cc) || !isScalar(cc) {
			continue
		}
		if !cc.Encodings[format.Plain] || hasDeltaEncoding(cc) {
			continue
		}
		if !declaredSorted(lc.Meta, i) && !monotonicMins(cc) {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"integer column %s is sorted but plain-encoded; delta_binary_packed exploits the ordering",
				cc.Leaf.DottedPath),
			Directives: []prescription.Directive{
				prescription.ColumnEncoding{
					Path:     cc.Leaf.DottedPath,
					Encoding: prescription.EncodingDeltaBinaryPacked,
				},
			},
		})
	}
	return diags, nil
}

// declaredSorted reports whether every row group lists the column
// among its sorting columns.
func declaredSorted(meta *format.FileMetaData, col int) bool {
	if len(meta.RowGroups) == 0 {
		return false
	}
	for _, g := range meta.RowGroups {
		found := false
		for _, sc := range g.SortingColumns {
			if int(sc.ColumnIdx) == col {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// monotonicMins reports whether exact per-row-group minimums exist and
// never decrease. One row group proves nothing.
func monotonicMins(cc *lint.ColumnContext) bool {
	stats, ok := cc.Stats.(lint.IntStats)
	if !ok || len(stats.ChunkMins) < 2 {
		return false
	}
	for i := 1; i < len(stats.ChunkMins); i++ {
		if stats.ChunkMins[i] < stats.ChunkMins[i-1] {
			return false
		}
	}
	return true
}
