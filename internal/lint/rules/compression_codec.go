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

// compressionCodec recommends moving big columns off weak or outdated
// codecs. The default target is zstd at a moderate level; columns
// whose chunk profile marks them as scan-heavy get lz4_raw instead,
// trading density for decompression speed.
type compressionCodec struct{ p Policy }

func (*compressionCodec) Name() string { return "compression-codec-upgrade" }

func (r *compressionCodec) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, cc := range lc.Columns {
		if cc.CompressedSize < r.p.MinColumnBytes {
			continue
		}
		// Booleans and scalar floats barely respond to general-purpose
		// codecs.
		if cc.PhysicalType() == format.Boolean {
			continue
		}
		if isFloat(cc) && isScalar(cc) {
			continue
		}
		codec, ok := soleCodec(cc)
		if !ok {
			continue
		}

		switch codec {
		case format.Zstd, format.Lz4Raw:
			continue
		case format.Snappy:
			if d, ok := r.checkSnappy(cc); ok {
				diags = append(diags, d)
			}
		default:
			ratio := cc.CompressionRatio()
			if codec != format.Uncompressed && ratio > r.p.IncompressibleRatio {
				continue
			}
			diags = append(diags, r.suggestZstd(cc, codec))
		}
	}
	return diags, nil
}

func (r *compressionCodec) checkSnappy(cc *lint.ColumnContext) (lint.Diagnostic, bool) {
	ratio := cc.CompressionRatio()
	if ratio > r.p.SnappySkipRatio {
		return lint.Diagnostic{}, false
	}

	avg := avgChunkBytes(cc)
	moderate := ratio >= r.p.ModerateRatioLow && ratio <= r.p.ModerateRatioHigh

	// Scan-heavy profiles keep a fast codec, just a better one.
	largeChunks := avg > r.p.LargeChunkBytes && moderate
	manySmall := isByteArray(cc) &&
		len(cc.Chunks) >= r.p.ManySmallChunks &&
		avg < r.p.SmallChunkAvgBytes &&
		ratio >= r.p.StringSmallRatioLow && ratio <= r.p.StringSmallRatioHigh

	if largeChunks || manySmall {
		return lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Warning,
			Column:   cc.Leaf.DottedPath,
			Message: fmt.Sprintf(
				"column %s stores %d MiB on snappy with ratio %.2f; lz4_raw decompresses faster at similar density",
				cc.Leaf.DottedPath, cc.CompressedSize>>20, ratio),
			Directives: []prescription.Directive{
				prescription.ColumnCompression{
					Path:  cc.Leaf.DottedPath,
					Codec: prescription.Codec{Kind: prescription.CodecLz4Raw},
				},
			},
		}, true
	}
	return r.suggestZstd(cc, format.Snappy), true
}

func (r *compressionCodec) suggestZstd(cc *lint.ColumnContext, from format.CompressionCodec) lint.Diagnostic {
	target := prescription.Codec{
		Kind:     prescription.CodecZstd,
		Level:    r.p.TargetZstdLevel,
		HasLevel: true,
	}
	return lint.Diagnostic{
		Rule:     r.Name(),
		Severity: lint.Suggestion,
		Column:   cc.Leaf.DottedPath,
		Message: fmt.Sprintf(
			"column %s stores %d MiB on %s; %s would shrink it at acceptable write cost",
			cc.Leaf.DottedPath, cc.CompressedSize>>20, from, target),
		Directives: []prescription.Directive{
			prescription.ColumnCompression{Path: cc.Leaf.DottedPath, Codec: target},
		},
	}
}
