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

// bloomFilter recommends bloom filters for high-cardinality byte array
// columns, which are the ones point lookups probe. The target NDV is
// the estimated distinct count.
type bloomFilter struct{ p Policy }

func (*bloomFilter) Name() string { return "bloom-filter-recommendation" }

func (r *bloomFilter) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if !isByteArray(cc) || cc.HasBloomFilter {
			continue
		}
		if cc.Cardinality.NonNull == 0 {
			continue
		}
		if !isUUID(cc) && cc.Cardinality.Ratio() <= r.p.BloomRatioThreshold {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"column %s (~%d distinct values) has no bloom filter; lookups pay a full chunk read for every negative probe",
				cc.Leaf.DottedPath, cc.Cardinality.Distinct),
			Directives: []prescription.Directive{
				prescription.ColumnBloomFilter{Path: cc.Leaf.DottedPath, Enabled: true},
				prescription.ColumnBloomFilterNDV{Path: cc.Leaf.DottedPath, NDV: cc.Cardinality.Distinct},
			},
		})
	}
	return diags, nil
}
