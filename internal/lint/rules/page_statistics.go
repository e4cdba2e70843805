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

	"github.com/cardinalhq/pqlint/internal/lint"
	"github.com/cardinalhq/pqlint/internal/prescription"
)

// pageStatistics recommends page-level statistics for columns missing
// a column index, which readers need for page-granularity pruning.
type pageStatistics struct{}

func (*pageStatistics) Name() string { return "missing-page-statistics" }

func (r *pageStatistics) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if cc.HasColumnIndex || len(cc.Chunks) == 0 {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"column %s has no column index; page-level statistics let readers skip pages instead of whole row groups",
				cc.Leaf.DottedPath),
			Directives: []prescription.Directive{
				prescription.ColumnStatistics{Path: cc.Leaf.DottedPath, Level: prescription.StatsPage},
			},
		})
	}
	return diags, nil
}
