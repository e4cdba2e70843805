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

// compressionRatio flags columns paying decompression cost for almost
// no size win.
type compressionRatio struct{ p Policy }

func (*compressionRatio) Name() string { return "low-compression-ratio" }

func (r *compressionRatio) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if cc.UncompressedSize == 0 {
			continue
		}
		codec, ok := soleCodec(cc)
		if !ok || codec == format.Uncompressed {
			continue
		}
		ratio := cc.CompressionRatio()
		if ratio <= r.p.IncompressibleRatio {
			continue
		}
		diags = append(diags, lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Warning,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"column %s is nearly incompressible under %s (ratio %.3f); storing it uncompressed skips the codec entirely",
				cc.Leaf.DottedPath, codec, ratio),
			Directives: []prescription.Directive{
				prescription.ColumnCompression{
					Path:  cc.Leaf.DottedPath,
					Codec: prescription.Codec{Kind: prescription.CodecUncompressed},
				},
			},
		})
	}
	return diags, nil
}
