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

package lint

import (
	"encoding/binary"
	"math"

	"github.com/parquet-go/parquet-go/format"

	"github.com/cardinalhq/pqlint/internal/cardinality"
	"github.com/cardinalhq/pqlint/internal/fileview"
)

// ColumnContext aggregates the physical metadata of one leaf column
// across every row group.
type ColumnContext struct {
	Leaf fileview.Leaf

	// Chunks holds the raw column chunks, indexed by row group.
	Chunks []*format.ColumnChunk

	CompressedSize   int64
	UncompressedSize int64
	NumValues        int64
	NonNull          int64

	// Codecs is the set of codecs seen across chunks. Well-formed
	// writers use one.
	Codecs map[format.CompressionCodec]bool

	// Encodings is the union of the chunk-level encoding lists.
	Encodings map[format.Encoding]bool

	// DataPageEncodings is the set of encodings page encoding stats
	// attribute to data pages. Empty when no chunk carries encoding
	// stats.
	DataPageEncodings map[format.Encoding]bool
	HasEncodingStats  bool

	HasDictionary  bool
	HasColumnIndex bool
	HasBloomFilter bool

	Cardinality cardinality.Column

	// Mapped is the column's value domain, folded from the physical
	// type and the logical annotation.
	Mapped MappedType

	// Stats aggregates min/max across chunks when the footer supplies
	// usable bounds, with sampled fill for fields the footer lacks.
	Stats TypeStats
}

// CompressionRatio is compressed bytes per uncompressed byte, or 1
// when the column holds no data.
func (c *ColumnContext) CompressionRatio() float64 {
	if c.UncompressedSize == 0 {
		return 1
	}
	return float64(c.CompressedSize) / float64(c.UncompressedSize)
}

// PhysicalType returns the column's physical type.
func (c *ColumnContext) PhysicalType() format.Type {
	if c.Leaf.Element.Type != nil {
		return *c.Leaf.Element.Type
	}
	return format.Boolean
}

// LogicalType returns the column's logical type annotation, or nil.
func (c *ColumnContext) LogicalType() *format.LogicalType {
	return c.Leaf.Element.LogicalType
}

// ValueKind is a column's mapped value domain.
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
	KindFixedLenBinary
)

// MappedType folds a column's physical storage type and logical
// annotation into one value domain plus its parameters.
type MappedType struct {
	Kind      ValueKind
	BitWidth  int  // integers and floats
	Unsigned  bool // integers
	Precision int  // decimals
	Scale     int
	TypeLen   int // fixed length byte arrays
}

// MapValueType derives the mapped value domain of a leaf column.
// Physical types with no mapping (Int96 among them) come back Unknown.
func MapValueType(leaf fileview.Leaf) MappedType {
	el := leaf.Element
	if el == nil || el.Type == nil {
		return MappedType{Kind: KindUnknown}
	}
	lt := el.LogicalType
	switch *el.Type {
	case format.Boolean:
		return MappedType{Kind: KindBool}
	case format.Int32, format.Int64:
		m := MappedType{Kind: KindInt, BitWidth: 32}
		if *el.Type == format.Int64 {
			m.BitWidth = 64
		}
		if lt != nil {
			switch {
			case lt.Integer != nil:
				m.BitWidth = int(lt.Integer.BitWidth)
				m.Unsigned = !lt.Integer.IsSigned
			case lt.Decimal != nil:
				m.Precision = int(lt.Decimal.Precision)
				m.Scale = int(lt.Decimal.Scale)
			}
		}
		return m
	case format.Float:
		return MappedType{Kind: KindFloat, BitWidth: 32}
	case format.Double:
		return MappedType{Kind: KindFloat, BitWidth: 64}
	case format.ByteArray:
		if lt != nil && (lt.UTF8 != nil || lt.Enum != nil || lt.Json != nil) {
			return MappedType{Kind: KindString}
		}
		m := MappedType{Kind: KindBinary}
		if lt != nil && lt.Decimal != nil {
			m.Precision = int(lt.Decimal.Precision)
			m.Scale = int(lt.Decimal.Scale)
		}
		return m
	case format.FixedLenByteArray:
		m := MappedType{Kind: KindFixedLenBinary}
		if el.TypeLength != nil {
			m.TypeLen = int(*el.TypeLength)
		}
		if lt != nil && lt.Decimal != nil {
			m.Precision = int(lt.Decimal.Precision)
			m.Scale = int(lt.Decimal.Scale)
		}
		return m
	default:
		return MappedType{Kind: KindUnknown}
	}
}

// TypeStats is the aggregated min/max summary of a column, in its
// mapped value domain.
type TypeStats interface{ isTypeStats() }

// BoolStats aggregates boolean min/max: the min is the AND of chunk
// minimums, the max the OR of chunk maximums.
type BoolStats struct{ Min, Max bool }

// IntStats aggregates integer min/max. ChunkMins holds the per-row-
// group minimums in file order, for ordering checks; it stays nil when
// the bounds came from a sample.
type IntStats struct {
	Min, Max  int64
	ChunkMins []int64
}

// FloatStats aggregates floating point min/max.
type FloatStats struct{ Min, Max float64 }

// ByteLengthStats is a sampled value-length distribution.
type ByteLengthStats struct {
	Min, Max int64
	Avg      float64
}

// StringStats summarizes a string column: byte lengths of the declared
// min/max bounds (zero when the footer carries none) and, when
// sampled, the value-length distribution.
type StringStats struct {
	MinValueLen, MaxValueLen int
	Lengths                  *ByteLengthStats
}

// BinaryStats is StringStats for unannotated byte array columns.
type BinaryStats struct {
	MinValueLen, MaxValueLen int
	Lengths                  *ByteLengthStats
}

// FixedLenBytesStats tracks the bound lengths of fixed length byte
// array columns.
type FixedLenBytesStats struct{ MinValueLen, MaxValueLen int }

func (BoolStats) isTypeStats()          {}
func (IntStats) isTypeStats()           {}
func (FloatStats) isTypeStats()         {}
func (StringStats) isTypeStats()        {}
func (BinaryStats) isTypeStats()        {}
func (FixedLenBytesStats) isTypeStats() {}

// BuildColumns aggregates the metadata of every leaf column. cards
// must be indexed by leaf ordinal, as returned by the cardinality
// estimator.
func BuildColumns(f *fileview.File, cards []cardinality.Column) ([]*ColumnContext, error) {
	meta := f.Metadata()
	leaves := f.Leaves()
	cols := make([]*ColumnContext, len(leaves))

	for i, leaf := range leaves {
		cc := &ColumnContext{
			Leaf:              leaf,
			Mapped:            MapValueType(leaf),
			Codecs:            make(map[format.CompressionCodec]bool),
			Encodings:         make(map[format.Encoding]bool),
			DataPageEncodings: make(map[format.Encoding]bool),
			HasColumnIndex:    len(meta.RowGroups) > 0,
		}
		if i < len(cards) {
			cc.Cardinality = cards[i]
		}

		for rg := range meta.RowGroups {
			chunk := f.Chunk(rg, i)
			md := &chunk.MetaData

			cc.Chunks = append(cc.Chunks, chunk)
			cc.CompressedSize += md.TotalCompressedSize
			cc.UncompressedSize += md.TotalUncompressedSize
			cc.NumValues += md.NumValues
			cc.NonNull += fileview.NonNullValues(chunk)
			cc.Codecs[md.Codec] = true
			for _, e := range md.Encoding {
				cc.Encodings[e] = true
			}
			for _, es := range md.EncodingStats {
				cc.HasEncodingStats = true
				if es.PageType == format.DataPage || es.PageType == format.DataPageV2 {
					cc.DataPageEncodings[es.Encoding] = true
				}
			}
			if md.DictionaryPageOffset > 0 {
				cc.HasDictionary = true
			}
			if chunk.ColumnIndexOffset <= 0 {
				cc.HasColumnIndex = false
			}
			if md.BloomFilterOffset > 0 {
				cc.HasBloomFilter = true
			}
		}

		cc.Stats = aggregateStats(cc)
		cols[i] = cc
	}
	return cols, nil
}

// aggregateStats folds per-chunk statistics into a typed summary. Any
// chunk with missing bounds voids the result. Fixed-width bounds are
// exact whenever present (statistics truncation only applies to byte
// arrays); byte array bounds may be truncated, so only their encoded
// lengths are kept, never the values, and a truncated bound can only
// shorten those.
func aggregateStats(cc *ColumnContext) TypeStats {
	for _, chunk := range cc.Chunks {
		st := &chunk.MetaData.Statistics
		if len(st.MinValue) == 0 || len(st.MaxValue) == 0 {
			return nil
		}
	}
	if len(cc.Chunks) == 0 {
		return nil
	}

	switch cc.PhysicalType() {
	case format.Boolean:
		out := BoolStats{Min: true, Max: false}
		for _, chunk := range cc.Chunks {
			st := &chunk.MetaData.Statistics
			out.Min = out.Min && st.MinValue[0] != 0
			out.Max = out.Max || st.MaxValue[0] != 0
		}
		return out
	case format.Int32:
		return aggregateInts(cc, func(b []byte) (int64, bool) {
			if len(b) < 4 {
				return 0, false
			}
			return int64(int32(binary.LittleEndian.Uint32(b))), true
		})
	case format.Int64:
		return aggregateInts(cc, func(b []byte) (int64, bool) {
			if len(b) < 8 {
				return 0, false
			}
			return int64(binary.LittleEndian.Uint64(b)), true
		})
	case format.Float:
		return aggregateFloats(cc, func(b []byte) (float64, bool) {
			if len(b) < 4 {
				return 0, false
			}
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
		})
	case format.Double:
		return aggregateFloats(cc, func(b []byte) (float64, bool) {
			if len(b) < 8 {
				return 0, false
			}
			return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
		})
	case format.ByteArray, format.FixedLenByteArray:
		var minLen, maxLen int
		for _, chunk := range cc.Chunks {
			st := &chunk.MetaData.Statistics
			if n := len(st.MinValue); n > minLen {
				minLen = n
			}
			if n := len(st.MaxValue); n > maxLen {
				maxLen = n
			}
		}
		switch cc.Mapped.Kind {
		case KindString:
			return StringStats{MinValueLen: minLen, MaxValueLen: maxLen}
		case KindFixedLenBinary:
			return FixedLenBytesStats{MinValueLen: minLen, MaxValueLen: maxLen}
		default:
			return BinaryStats{MinValueLen: minLen, MaxValueLen: maxLen}
		}
	default:
		return nil
	}
}

func aggregateInts(cc *ColumnContext, decode func([]byte) (int64, bool)) TypeStats {
	out := IntStats{Min: math.MaxInt64, Max: math.MinInt64}
	for _, chunk := range cc.Chunks {
		st := &chunk.MetaData.Statistics
		lo, ok := decode(st.MinValue)
		if !ok {
			return nil
		}
		hi, ok := decode(st.MaxValue)
		if !ok {
			return nil
		}
		out.Min = min(out.Min, lo)
		out.Max = max(out.Max, hi)
		out.ChunkMins = append(out.ChunkMins, lo)
	}
	return out
}

func aggregateFloats(cc *ColumnContext, decode func([]byte) (float64, bool)) TypeStats {
	out := FloatStats{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, chunk := range cc.Chunks {
		st := &chunk.MetaData.Statistics
		lo, ok := decode(st.MinValue)
		if !ok {
			return nil
		}
		hi, ok := decode(st.MaxValue)
		if !ok {
			return nil
		}
		out.Min = math.Min(out.Min, lo)
		out.Max = math.Max(out.Max, hi)
	}
	return out
}
