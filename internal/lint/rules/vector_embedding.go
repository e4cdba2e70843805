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

// vectorEmbedding spots repeated float columns wide enough to be
// embedding vectors and recommends small data pages, which favor the
// point lookups such columns see over scan throughput.
type vectorEmbedding struct{ p Policy }

func (*vectorEmbedding) Name() string { return "vector-embedding-page-size" }

func (r *vectorEmbedding) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	if lc.Meta.NumRows == 0 {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if !isFloat(cc) || cc.Leaf.MaxRepLevel == 0 {
			continue
		}
		avg := float64(cc.NumValues) / float64(lc.Meta.NumRows)
		if avg < r.p.VectorMinAvgValues {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"column %s averages %.0f float elements per row and looks like an embedding vector; %d KiB data pages favor random access",
				cc.Leaf.DottedPath, avg, r.p.VectorPageSizeBytes>>10),
			Directives: []prescription.Directive{
				prescription.FileDataPageSizeLimit{Bytes: r.p.VectorPageSizeBytes},
			},
		})
	}
	return diags, nil
}
