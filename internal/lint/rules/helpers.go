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
	"github.com/parquet-go/parquet-go/format"

	"github.com/cardinalhq/pqlint/internal/lint"
)

// soleCodec returns the column's codec when every chunk agrees on one.
func soleCodec(cc *lint.ColumnContext) (format.CompressionCodec, bool) {
	if len(cc.Codecs) != 1 {
		return 0, false
	}
	for codec := range cc.Codecs {
		return codec, true
	}
	return 0, false
}

func isByteArray(cc *lint.ColumnContext) bool {
	t := cc.PhysicalType()
	return t == format.ByteArray || t == format.FixedLenByteArray
}

func isFloat(cc *lint.ColumnContext) bool {
	t := cc.PhysicalType()
	return t == format.Float || t == format.Double
}

func isInteger(cc *lint.ColumnContext) bool {
	t := cc.PhysicalType()
	return t == format.Int32 || t == format.Int64
}

func isScalar(cc *lint.ColumnContext) bool {
	return cc.Leaf.MaxRepLevel == 0
}

// isTemporal reports whether the column's logical type marks it as a
// point in time.
func isTemporal(cc *lint.ColumnContext) bool {
	lt := cc.LogicalType()
	if lt == nil {
		return false
	}
	return lt.Timestamp != nil || lt.Date != nil || lt.Time != nil
}

func isUUID(cc *lint.ColumnContext) bool {
	lt := cc.LogicalType()
	return lt != nil && lt.UUID != nil
}

// hasDeltaEncoding reports whether any chunk already uses one of the
// delta or byte-split encodings.
func hasDeltaEncoding(cc *lint.ColumnContext) bool {
	for _, e := range []format.Encoding{
		format.DeltaBinaryPacked,
		format.DeltaLengthByteArray,
		format.DeltaByteArray,
		format.ByteStreamSplit,
	} {
		if cc.Encodings[e] {
			return true
		}
	}
	return false
}

// avgChunkBytes is the mean compressed chunk size.
func avgChunkBytes(cc *lint.ColumnContext) int64 {
	if len(cc.Chunks) == 0 {
		return 0
	}
	return cc.CompressedSize / int64(len(cc.Chunks))
}
