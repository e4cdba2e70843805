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

package prescription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllDirectiveForms(t *testing.T) {
	text := `# tuning for events.parquet
set file compression zstd(3)
set file max_row_group_size 65536
set file data_page_size_limit 1048576
set file statistics_truncate_length 64

set column user.id dictionary false
set column user.id encoding delta_length_byte_array
set column payload compression lz4_raw
set column payload statistics none
set column trace_id bloom_filter true
set column trace_id bloom_filter_ndv 120000
set column trace_id bloom_filter_fpp 0.01
set column tags.value dictionary_page_size_limit 2097152
`
	p, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, p.Directives, 12)

	assert.Equal(t, FileCompression{Codec: Codec{Kind: CodecZstd, Level: 3, HasLevel: true}}, p.Directives[0])
	assert.Equal(t, FileMaxRowGroupSize{Rows: 65536}, p.Directives[1])
	assert.Equal(t, ColumnDictionary{Path: "user.id", Enabled: false}, p.Directives[4])
	assert.Equal(t, ColumnBloomFilterNDV{Path: "trace_id", NDV: 120000}, p.Directives[9])
	assert.Empty(t, p.Validate())
}

func TestParseTrailingComments(t *testing.T) {
	text := "set file compression zstd(3) # prefer density\n# whole-line comment\nset column host dictionary false\t# mixed\n"
	p, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, p.Directives, 2)
	assert.Equal(t, FileCompression{Codec: Codec{Kind: CodecZstd, Level: 3, HasLevel: true}}, p.Directives[0])
	assert.Equal(t, ColumnDictionary{Path: "host", Enabled: false}, p.Directives[1])
}

func TestRoundTrip(t *testing.T) {
	p := &Prescription{}
	p.Add(
		FileCompression{Codec: Codec{Kind: CodecZstd, Level: 3, HasLevel: true}},
		ColumnDictionary{Path: "host", Enabled: true},
		ColumnEncoding{Path: "ts", Encoding: EncodingDeltaBinaryPacked},
		ColumnStatistics{Path: "payload", Level: StatsPage},
		FileStatsTruncate{Length: 0},
	)

	back, err := Parse(p.String())
	require.NoError(t, err)
	assert.Equal(t, p.Directives, back.Directives)
}

func TestParseErrorCarriesLineNumber(t *testing.T) {
	text := "set file compression zstd(3)\n\nset column a b\n"
	_, err := Parse(text)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
	assert.Contains(t, err.Error(), "invalid prescription at line 3")
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, line := range []string{
		"put file compression zstd",
		"set file compression zstd(99)",
		"set file compression lzma",
		"set file compression snappy(1)",
		"set file max_row_group_size -5",
		"set file max_row_group_size lots",
		"set column a encoding rle",
		"set column a dictionary maybe",
		"set column a statistics all",
		"set column a bloom_filter_fpp 1.5",
		"set column a unknown_prop 1",
		"set gopher compression zstd",
	} {
		_, err := Parse(line)
		assert.Error(t, err, "line %q should not parse", line)
	}
}

func TestCodecLevelBounds(t *testing.T) {
	for _, ok := range []string{"gzip(0)", "gzip(9)", "brotli(11)", "zstd(1)", "zstd(22)", "zstd", "snappy"} {
		_, err := parseCodec(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"gzip(10)", "brotli(12)", "zstd(0)", "zstd(23)", "uncompressed(1)"} {
		_, err := parseCodec(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateReportsConflicts(t *testing.T) {
	p := &Prescription{}
	p.Add(
		ColumnDictionary{Path: "host", Enabled: true},
		ColumnDictionary{Path: "host", Enabled: false},
		ColumnDictionary{Path: "other", Enabled: false},
	)

	errs := p.Validate()
	require.Len(t, errs, 1)
	var cerr *ConflictError
	require.ErrorAs(t, errs[0], &cerr)
	assert.Equal(t, "column host dictionary", cerr.Key)
	assert.Contains(t, errs[0].Error(), "conflicting directives for column host dictionary")
}

func TestValidateIgnoresIdenticalDuplicates(t *testing.T) {
	p := &Prescription{}
	p.Add(
		FileMaxRowGroupSize{Rows: 65536},
		FileMaxRowGroupSize{Rows: 65536},
	)
	assert.Empty(t, p.Validate())
}

func TestWriterOptionsCoverEveryDirective(t *testing.T) {
	p := &Prescription{}
	p.Add(
		FileCompression{Codec: Codec{Kind: CodecZstd, Level: 3, HasLevel: true}},
		FileMaxRowGroupSize{Rows: 65536},
		FileDataPageSizeLimit{Bytes: 1 << 20},
		FileStatsTruncate{Length: 64},
		ColumnCompression{Path: "a", Codec: Codec{Kind: CodecLz4Raw}},
		ColumnEncoding{Path: "a", Encoding: EncodingByteStreamSplit},
		ColumnDictionary{Path: "a", Enabled: false},
		ColumnDictionaryPageSizeLimit{Path: "a", Bytes: 1 << 21},
		ColumnStatistics{Path: "a", Level: StatsPage},
		ColumnBloomFilter{Path: "a", Enabled: true},
		ColumnBloomFilterNDV{Path: "a", NDV: 1000},
		ColumnBloomFilterFPP{Path: "a", FPP: 0.01},
	)

	opts := p.WriterOptions()
	// The leveled file compression and the statistics directive each
	// expand to two options; the other ten map one to one.
	assert.Len(t, opts, 14)
	for _, o := range opts {
		assert.NotNil(t, o)
	}
}
