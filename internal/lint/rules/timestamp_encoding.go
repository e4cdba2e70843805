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

// timestampEncoding suggests DELTA_BINARY_PACKED for temporal integer
// columns on plain encoding. Timestamps in a written file are almost
// always near-monotonic, which delta encoding collapses to a few bits
// per value.
type timestampEncoding struct{ p Policy }

func (*timestampEncoding) Name() string { return "timestamp-delta-encoding" }

func (r *timestampEncoding) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if !isInteger(cc) || !isScalar(cc) || !isTemporal(cc) {
			continue
		}
		if !cc.Encodings[format.Plain] || hasDeltaEncoding(cc) {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"temporal column %s uses plain encoding; delta_binary_packed stores near-monotonic values in a fraction of the space",
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
