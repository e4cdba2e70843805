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

// pageSize flags row groups past the row count or compressed size
// ceiling and recommends proportional caps plus a standard data page
// size.
type pageSize struct{ p Policy }

func (*pageSize) Name() string { return "page-row-group-size" }

func (r *pageSize) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	targetRows := r.p.MaxRowGroupRows
	var worst *format.RowGroup
	for i := range lc.Meta.RowGroups {
		g := &lc.Meta.RowGroups[i]
		size := groupCompressedSize(g)
		over := g.NumRows > r.p.MaxRowGroupRows || size > r.p.MaxRowGroupBytes
		if !over {
			continue
		}
		if worst == nil || g.NumRows > worst.NumRows {
			worst = g
		}
		// Scale the row cap down so the group's bytes fit under the
		// ceiling.
		if size > r.p.MaxRowGroupBytes && g.NumRows > 0 {
			scaled := int64(float64(g.NumRows) * float64(r.p.MaxRowGroupBytes) / float64(size))
			if scaled < 1 {
				scaled = 1
			}
			if scaled < targetRows {
				targetRows = scaled
			}
		}
	}
	if worst == nil {
		return nil, nil
	}

	return []lint.Diagnostic{{
		Rule:     r.Name(),
		Severity: lint.Warning,
		Message: fmt.Sprintf(
			"row groups reach %d rows / %d MiB, past the %d row / %d MiB ceiling; capping row groups at %d rows and pages at %d KiB restores seek granularity",
			worst.NumRows, groupCompressedSize(worst)>>20,
			r.p.MaxRowGroupRows, r.p.MaxRowGroupBytes>>20,
			targetRows, r.p.DataPageSizeBytes>>10),
		Directives: []prescription.Directive{
			prescription.FileMaxRowGroupSize{Rows: targetRows},
			prescription.FileDataPageSizeLimit{Bytes: r.p.DataPageSizeBytes},
		},
	}}, nil
}

func groupCompressedSize(g *format.RowGroup) int64 {
	if g.TotalCompressedSize > 0 {
		return g.TotalCompressedSize
	}
	var total int64
	for i := range g.Columns {
		total += g.Columns[i].MetaData.TotalCompressedSize
	}
	return total
}
