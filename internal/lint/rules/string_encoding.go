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

// stringEncoding targets byte array columns where the writer mixed
// dictionary and plain pages without a proven overflow. Two empirical
// size profiles mark such columns as better served by dropping the
// dictionary for delta length encoding.
type stringEncoding struct{ p Policy }

func (*stringEncoding) Name() string { return "string-byte-array-encoding" }

func (r *stringEncoding) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if !isByteArray(cc) {
			continue
		}
		// Mixed dictionary/plain without encoding stats. When stats
		// exist the dictionary rule owns the proven-fallback case.
		if !cc.HasDictionary || cc.HasEncodingStats {
			continue
		}
		if !cc.Encodings[format.Plain] || hasDeltaEncoding(cc) {
			continue
		}
		if !r.matchesProfile(cc) {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"byte array column %s mixes dictionary and plain pages at %d MiB (ratio %.2f); delta_length_byte_array without a dictionary fits this profile better",
				cc.Leaf.DottedPath, cc.CompressedSize>>20, cc.CompressionRatio()),
			Directives: []prescription.Directive{
				prescription.ColumnDictionary{Path: cc.Leaf.DottedPath, Enabled: false},
				prescription.ColumnEncoding{
					Path:     cc.Leaf.DottedPath,
					Encoding: prescription.EncodingDeltaLengthByteArray,
				},
			},
		})
	}
	return diags, nil
}

func (r *stringEncoding) matchesProfile(cc *lint.ColumnContext) bool {
	groups := len(cc.Chunks)
	avg := avgChunkBytes(cc)
	ratio := cc.CompressionRatio()

	fewLarge := cc.CompressedSize >= r.p.StringLargeTotalBytes &&
		groups >= r.p.StringLargeMinGroups && groups <= r.p.StringLargeMaxGroups &&
		avg >= r.p.StringLargeAvgBytes &&
		ratio >= r.p.StringLargeRatioLow && ratio <= r.p.StringLargeRatioHigh

	manySmall := cc.CompressedSize >= r.p.StringSmallTotalBytes &&
		groups >= r.p.StringSmallMinGroups &&
		avg <= r.p.StringSmallAvgBytes &&
		ratio >= r.p.StringSmallRatioLow && ratio <= r.p.StringSmallRatioHigh

	return fewLarge || manySmall
}
