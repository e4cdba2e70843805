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
	"testing"

	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/pqlint/internal/cardinality"
	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/lint"
	"github.com/cardinalhq/pqlint/internal/prescription"
)

type colSpec struct {
	path      string
	typ       format.Type
	logical   *format.LogicalType
	repLevel  int
	chunks    []*format.ColumnChunk
	comp      int64
	uncomp    int64
	numValues int64
	nonNull   int64
	distinct  int64
	encodings []format.Encoding
	codec     format.CompressionCodec
	hasDict   bool
	hasIndex  bool
	hasBloom  bool
	encStats  bool
	stats     lint.TypeStats
}

func makeColumn(s colSpec) *lint.ColumnContext {
	typ := s.typ
	cc := &lint.ColumnContext{
		Leaf: fileview.Leaf{
			DottedPath:  s.path,
			Path:        []string{s.path},
			Element:     &format.SchemaElement{Name: s.path, Type: &typ, LogicalType: s.logical},
			MaxRepLevel: s.repLevel,
		},
		Chunks:            s.chunks,
		CompressedSize:    s.comp,
		UncompressedSize:  s.uncomp,
		NumValues:         s.numValues,
		NonNull:           s.nonNull,
		Codecs:            map[format.CompressionCodec]bool{s.codec: true},
		Encodings:         map[format.Encoding]bool{},
		DataPageEncodings: map[format.Encoding]bool{},
		HasEncodingStats:  s.encStats,
		HasDictionary:     s.hasDict,
		HasColumnIndex:    s.hasIndex,
		HasBloomFilter:    s.hasBloom,
		Cardinality:       cardinality.Column{Distinct: s.distinct, NonNull: s.nonNull},
		Stats:             s.stats,
	}
	cc.Mapped = lint.MapValueType(cc.Leaf)
	for _, e := range s.encodings {
		cc.Encodings[e] = true
	}
	if len(cc.Chunks) == 0 {
		cc.Chunks = []*format.ColumnChunk{{}}
	}
	return cc
}

func makeContext(cols ...*lint.ColumnContext) *lint.Context {
	groups := 1
	var rows int64
	for _, cc := range cols {
		if len(cc.Chunks) > groups {
			groups = len(cc.Chunks)
		}
		if cc.NumValues > rows {
			rows = cc.NumValues
		}
	}
	meta := &format.FileMetaData{NumRows: rows}
	meta.RowGroups = make([]format.RowGroup, groups)
	for i := range meta.RowGroups {
		meta.RowGroups[i].NumRows = rows / int64(groups)
	}
	return &lint.Context{Meta: meta, Columns: cols}
}

func TestCompressionCodecWeakCodecLargeChunk(t *testing.T) {
	// One 10 MiB snappy chunk below the moderate ratio band moves to
	// the default zstd target.
	lc := makeContext(makeColumn(colSpec{
		path: "payload", typ: format.ByteArray, codec: format.Snappy,
		comp: 10 << 20, uncomp: 25 << 20,
		encodings: []format.Encoding{format.Plain},
	}))

	r := &compressionCodec{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.Suggestion, diags[0].Severity)
	require.Len(t, diags[0].Directives, 1)
	assert.Equal(t, prescription.ColumnCompression{
		Path:  "payload",
		Codec: prescription.Codec{Kind: prescription.CodecZstd, Level: 3, HasLevel: true},
	}, diags[0].Directives[0])
}

func TestCompressionCodecSpeedSensitiveSnappy(t *testing.T) {
	// Large snappy chunks at moderate compressibility prefer lz4_raw.
	lc := makeContext(makeColumn(colSpec{
		path: "body", typ: format.ByteArray, codec: format.Snappy,
		comp: 12 << 20, uncomp: 17 << 20, // ratio ~0.70
		chunks: []*format.ColumnChunk{{}, {}},
	}))

	r := &compressionCodec{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.Warning, diags[0].Severity)
	assert.Equal(t, prescription.ColumnCompression{
		Path:  "body",
		Codec: prescription.Codec{Kind: prescription.CodecLz4Raw},
	}, diags[0].Directives[0])
}

func TestCompressionCodecSkips(t *testing.T) {
	p := DefaultPolicy()
	r := &compressionCodec{p: p}
	for name, spec := range map[string]colSpec{
		"small column":         {path: "a", typ: format.ByteArray, codec: format.Gzip, comp: 1 << 20, uncomp: 4 << 20},
		"already zstd":         {path: "a", typ: format.ByteArray, codec: format.Zstd, comp: 20 << 20, uncomp: 60 << 20},
		"already lz4_raw":      {path: "a", typ: format.ByteArray, codec: format.Lz4Raw, comp: 20 << 20, uncomp: 60 << 20},
		"boolean column":       {path: "a", typ: format.Boolean, codec: format.Gzip, comp: 20 << 20, uncomp: 60 << 20},
		"scalar float column":  {path: "a", typ: format.Double, codec: format.Gzip, comp: 20 << 20, uncomp: 60 << 20},
		"incompressible snappy": {path: "a", typ: format.ByteArray, codec: format.Snappy, comp: 19 << 20, uncomp: 20 << 20},
	} {
		lc := makeContext(makeColumn(spec))
		diags, err := r.Check(context.Background(), lc)
		require.NoError(t, err)
		assert.Empty(t, diags, name)
	}
}

func TestCompressionRatioNearlyIncompressible(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "blob", typ: format.ByteArray, codec: format.Gzip,
		comp: 97, uncomp: 100,
	}))

	r := &compressionRatio{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.Warning, diags[0].Severity)
	assert.Equal(t, prescription.ColumnCompression{
		Path:  "blob",
		Codec: prescription.Codec{Kind: prescription.CodecUncompressed},
	}, diags[0].Directives[0])
}

func TestCompressionRatioSkipsUncompressed(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "blob", typ: format.ByteArray, codec: format.Uncompressed,
		comp: 100, uncomp: 100,
	}))

	r := &compressionRatio{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func fallbackChunk() *format.ColumnChunk {
	c := &format.ColumnChunk{}
	c.MetaData.EncodingStats = []format.PageEncodingStats{
		{PageType: format.DictionaryPage, Encoding: format.Plain, Count: 1},
		{PageType: format.DataPage, Encoding: format.RLEDictionary, Count: 3},
		{PageType: format.DataPage, Encoding: format.Plain, Count: 2},
	}
	return c
}

func dictOnlyChunk() *format.ColumnChunk {
	c := &format.ColumnChunk{}
	c.MetaData.EncodingStats = []format.PageEncodingStats{
		{PageType: format.DictionaryPage, Encoding: format.Plain, Count: 1},
		{PageType: format.DataPage, Encoding: format.RLEDictionary, Count: 4},
	}
	return c
}

func noDictChunk() *format.ColumnChunk {
	c := &format.ColumnChunk{}
	c.MetaData.EncodingStats = []format.PageEncodingStats{
		{PageType: format.DataPage, Encoding: format.Plain, Count: 4},
	}
	return c
}

func TestDictionaryFallbackHighCardinalityDisables(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "trace_id", typ: format.ByteArray, codec: format.Zstd,
		comp: 10 << 20, uncomp: 30 << 20,
		numValues: 1000, nonNull: 1000, distinct: 800,
		chunks: []*format.ColumnChunk{fallbackChunk()},
	}))

	r := &dictionaryEncoding{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.Warning, diags[0].Severity)
	assert.Equal(t, prescription.ColumnDictionary{Path: "trace_id", Enabled: false}, diags[0].Directives[0])
}

func TestDictionaryFallbackModerateRaisesLimit(t *testing.T) {
	// Ratio 0.005 stays well under the disable threshold; the fix is
	// more dictionary room, not dropping the dictionary.
	lc := makeContext(makeColumn(colSpec{
		path: "host", typ: format.ByteArray, codec: format.Zstd,
		comp: 10 << 20, uncomp: 100 << 20,
		numValues: 1000, nonNull: 1000, distinct: 5,
		chunks: []*format.ColumnChunk{fallbackChunk()},
	}))

	r := &dictionaryEncoding{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	require.Len(t, diags[0].Directives, 1)
	limit, ok := diags[0].Directives[0].(prescription.ColumnDictionaryPageSizeLimit)
	require.True(t, ok)
	assert.GreaterOrEqual(t, limit.Bytes, int64(2<<20))
	assert.LessOrEqual(t, limit.Bytes, int64(16<<20))
}

func TestDictionaryOversizedShrinksRowGroups(t *testing.T) {
	// A ~37 MiB dictionary estimate exceeds the 16 MiB cap.
	lc := makeContext(makeColumn(colSpec{
		path: "url", typ: format.ByteArray, codec: format.Zstd,
		comp: 40 << 20, uncomp: 100 << 20,
		numValues: 1_000_000, nonNull: 1_000_000, distinct: 300_000,
		chunks: []*format.ColumnChunk{fallbackChunk()},
	}))

	r := &dictionaryEncoding{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.Warning, diags[0].Severity)
	require.Len(t, diags[0].Directives, 2)
	assert.Equal(t, prescription.ColumnDictionaryPageSizeLimit{Path: "url", Bytes: 16 << 20}, diags[0].Directives[0])
	shrink, ok := diags[0].Directives[1].(prescription.FileMaxRowGroupSize)
	require.True(t, ok)
	assert.Greater(t, shrink.Rows, int64(0))
}

func TestDictionaryEnableLowCardinality(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "level", typ: format.ByteArray, codec: format.Zstd,
		numValues: 10000, nonNull: 10000, distinct: 6,
		chunks: []*format.ColumnChunk{noDictChunk()},
	}))

	r := &dictionaryEncoding{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.ColumnDictionary{Path: "level", Enabled: true}, diags[0].Directives[0])
}

func TestDictionaryHealthyColumnIsQuiet(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "host", typ: format.ByteArray, codec: format.Zstd,
		numValues: 10000, nonNull: 10000, distinct: 6,
		chunks: []*format.ColumnChunk{dictOnlyChunk()},
	}))

	r := &dictionaryEncoding{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestFloatEncoding(t *testing.T) {
	r := &floatEncoding{p: DefaultPolicy()}

	fires := makeContext(makeColumn(colSpec{
		path: "temp", typ: format.Double,
		numValues: 1000, nonNull: 1000, distinct: 900,
		encodings: []format.Encoding{format.Plain},
	}))
	diags, err := r.Check(context.Background(), fires)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.ColumnEncoding{
		Path: "temp", Encoding: prescription.EncodingByteStreamSplit,
	}, diags[0].Directives[0])

	lowCard := makeContext(makeColumn(colSpec{
		path: "temp", typ: format.Double,
		numValues: 1000, nonNull: 1000, distinct: 10,
		encodings: []format.Encoding{format.Plain},
	}))
	diags, err = r.Check(context.Background(), lowCard)
	require.NoError(t, err)
	assert.Empty(t, diags, "low cardinality floats belong to the dictionary rule")

	already := makeContext(makeColumn(colSpec{
		path: "temp", typ: format.Double,
		numValues: 1000, nonNull: 1000, distinct: 900,
		encodings: []format.Encoding{format.ByteStreamSplit},
	}))
	diags, err = r.Check(context.Background(), already)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestTimestampEncoding(t *testing.T) {
	r := &timestampEncoding{p: DefaultPolicy()}
	ts := &format.LogicalType{Timestamp: &format.TimestampType{}}

	fires := makeContext(makeColumn(colSpec{
		path: "ts", typ: format.Int64, logical: ts,
		encodings: []format.Encoding{format.Plain},
	}))
	diags, err := r.Check(context.Background(), fires)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.ColumnEncoding{
		Path: "ts", Encoding: prescription.EncodingDeltaBinaryPacked,
	}, diags[0].Directives[0])

	plain := makeContext(makeColumn(colSpec{
		path: "n", typ: format.Int64,
		encodings: []format.Encoding{format.Plain},
	}))
	diags, err = r.Check(context.Background(), plain)
	require.NoError(t, err)
	assert.Empty(t, diags, "plain integers without temporal annotation stay untouched")
}

func TestSortedIntegers(t *testing.T) {
	r := &sortedIntegers{}

	monotonic := makeContext(makeColumn(colSpec{
		path: "seq", typ: format.Int64,
		encodings: []format.Encoding{format.Plain},
		chunks:    []*format.ColumnChunk{{}, {}, {}},
		stats:     lint.IntStats{Min: 0, Max: 900, ChunkMins: []int64{0, 300, 600}},
	}))
	diags, err := r.Check(context.Background(), monotonic)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.ColumnEncoding{
		Path: "seq", Encoding: prescription.EncodingDeltaBinaryPacked,
	}, diags[0].Directives[0])

	unsorted := makeContext(makeColumn(colSpec{
		path: "seq", typ: format.Int64,
		encodings: []format.Encoding{format.Plain},
		chunks:    []*format.ColumnChunk{{}, {}},
		stats:     lint.IntStats{Min: 0, Max: 900, ChunkMins: []int64{500, 100}},
	}))
	diags, err = r.Check(context.Background(), unsorted)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestSortedIntegersDeclaredSortingColumns(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "id", typ: format.Int64,
		encodings: []format.Encoding{format.Plain},
	}))
	for i := range lc.Meta.RowGroups {
		lc.Meta.RowGroups[i].SortingColumns = []format.SortingColumn{{ColumnIdx: 0}}
	}

	diags, err := (&sortedIntegers{}).Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
}

func TestPageSizeOversizedRowGroup(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{
		path: "a", typ: format.Int64, numValues: 1 << 20,
	}))
	lc.Meta.RowGroups[0].NumRows = 1 << 20
	lc.Meta.RowGroups[0].TotalCompressedSize = 512 << 20

	r := &pageSize{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), lc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.Warning, diags[0].Severity)
	assert.Empty(t, diags[0].Column)

	require.Len(t, diags[0].Directives, 2)
	rowCap, ok := diags[0].Directives[0].(prescription.FileMaxRowGroupSize)
	require.True(t, ok)
	assert.LessOrEqual(t, rowCap.Rows, int64(64<<10))
	assert.Equal(t, prescription.FileDataPageSizeLimit{Bytes: 1 << 20}, diags[0].Directives[1])
}

func TestPageSizeCompliantFile(t *testing.T) {
	lc := makeContext(makeColumn(colSpec{path: "a", typ: format.Int64, numValues: 1000}))
	diags, err := (&pageSize{p: DefaultPolicy()}).Check(context.Background(), lc)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestPageStatistics(t *testing.T) {
	missing := makeContext(makeColumn(colSpec{path: "a", typ: format.Int64}))
	diags, err := (&pageStatistics{}).Check(context.Background(), missing)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.ColumnStatistics{Path: "a", Level: prescription.StatsPage}, diags[0].Directives[0])

	present := makeContext(makeColumn(colSpec{path: "a", typ: format.Int64, hasIndex: true}))
	diags, err = (&pageStatistics{}).Check(context.Background(), present)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestVectorEmbedding(t *testing.T) {
	wide := makeContext(
		makeColumn(colSpec{
			path: "embedding.list.element", typ: format.Float, repLevel: 1,
			numValues: 128_000,
		}),
		makeColumn(colSpec{
			path: "centroid.list.element", typ: format.Double, repLevel: 1,
			numValues: 96_000,
		}),
	)
	wide.Meta.NumRows = 1000
	wide.Meta.RowGroups[0].NumRows = 1000

	r := &vectorEmbedding{p: DefaultPolicy()}
	diags, err := r.Check(context.Background(), wide)
	require.NoError(t, err)
	require.Len(t, diags, 2, "one diagnostic per embedding column")
	assert.Equal(t, "embedding.list.element", diags[0].Column)
	assert.Equal(t, prescription.FileDataPageSizeLimit{Bytes: 256 << 10}, diags[0].Directives[0])
	assert.Equal(t, "centroid.list.element", diags[1].Column)

	narrow := makeContext(makeColumn(colSpec{
		path: "tags.list.element", typ: format.Float, repLevel: 1,
		numValues: 3000,
	}))
	narrow.Meta.NumRows = 1000
	diags, err = r.Check(context.Background(), narrow)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestBloomFilter(t *testing.T) {
	r := &bloomFilter{p: DefaultPolicy()}

	highCard := makeContext(makeColumn(colSpec{
		path: "span_id", typ: format.ByteArray,
		numValues: 1000, nonNull: 1000, distinct: 900,
	}))
	diags, err := r.Check(context.Background(), highCard)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.ColumnBloomFilter{Path: "span_id", Enabled: true}, diags[0].Directives[0])
	assert.Equal(t, prescription.ColumnBloomFilterNDV{Path: "span_id", NDV: 900}, diags[0].Directives[1])

	uuid := makeContext(makeColumn(colSpec{
		path: "id", typ: format.FixedLenByteArray,
		logical:   &format.LogicalType{UUID: &format.UUIDType{}},
		numValues: 1000, nonNull: 1000, distinct: 100,
	}))
	diags, err = r.Check(context.Background(), uuid)
	require.NoError(t, err)
	require.Len(t, diags, 1, "UUID columns qualify regardless of ratio")

	lowCard := makeColumn(colSpec{
		path: "level", typ: format.ByteArray,
		numValues: 1000, nonNull: 1000, distinct: 5,
	})
	existing := makeColumn(colSpec{
		path: "span_id", typ: format.ByteArray,
		numValues: 1000, nonNull: 1000, distinct: 900, hasBloom: true,
	})
	diags, err = r.Check(context.Background(), makeContext(lowCard, existing))
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestStringStatistics(t *testing.T) {
	r := &stringStatistics{p: DefaultPolicy()}

	oversized := makeContext(makeColumn(colSpec{
		path: "url", typ: format.ByteArray,
		stats: lint.BinaryStats{MinValueLen: 120, MaxValueLen: 200},
	}))
	diags, err := r.Check(context.Background(), oversized)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, prescription.FileStatsTruncate{Length: 64}, diags[0].Directives[0])
	assert.Contains(t, diags[0].Message, "url")

	modest := makeContext(makeColumn(colSpec{
		path: "level", typ: format.ByteArray,
		stats: lint.StringStats{MinValueLen: 4, MaxValueLen: 8},
	}))
	diags, err = r.Check(context.Background(), modest)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestRegistryGet(t *testing.T) {
	p := DefaultPolicy()
	assert.Len(t, All(p), 12)
	assert.Len(t, Get(nil, p), 12)

	got := Get([]string{"low-compression-ratio", "missing-page-statistics"}, p)
	require.Len(t, got, 2)
	assert.Equal(t, "low-compression-ratio", got[0].Name())
	assert.Equal(t, "missing-page-statistics", got[1].Name())

	assert.Empty(t, Get([]string{"no-such-rule"}, p))
}
