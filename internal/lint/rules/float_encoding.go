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

// floatEncoding suggests BYTE_STREAM_SPLIT for scalar float columns
// stuck on plain fixed-width encoding. Low-cardinality float columns
// are left to the dictionary rule instead.
type floatEncoding struct{ p Policy }

func (*floatEncoding) Name() string { return "float-byte-stream-split" }

func (r *floatEncoding) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if !isFloat(cc) || !isScalar(cc) {
			continue
		}
		if !cc.Encodings[format.Plain] || hasDeltaEncoding(cc) {
			continue
		}
		if cc.Cardinality.NonNull > 0 && cc.Cardinality.Ratio() < r.p.LowCardinalityRatio {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"float column %s uses plain encoding; byte_stream_split groups exponent and mantissa bytes so the codec can compress them",
				cc.Leaf.DottedPath),
			Directives: []prescription.Directive{
				prescription.ColumnEncoding{
					Path:     cc.Leaf.DottedPath,
					Encoding: prescription.EncodingByteStreamSplit,
				},
			},
		})
	}
	return diags, nil
}
