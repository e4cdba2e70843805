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
	"fmt"
	"strconv"
)

// CodecKind names a compression codec usable in a directive.
type CodecKind string

const (
	CodecUncompressed CodecKind = "uncompressed"
	CodecSnappy       CodecKind = "snappy"
	CodecLz4Raw       CodecKind = "lz4_raw"
	CodecGzip         CodecKind = "gzip"
	CodecBrotli       CodecKind = "brotli"
	CodecZstd         CodecKind = "zstd"
)

// Codec is a compression codec with an optional level. Only gzip,
// brotli and zstd accept a level.
type Codec struct {
	Kind     CodecKind
	Level    int
	HasLevel bool
}

func (c Codec) String() string {
	if c.HasLevel {
		return fmt.Sprintf("%s(%d)", c.Kind, c.Level)
	}
	return string(c.Kind)
}

// DataEncoding names a data page encoding usable in a directive.
type DataEncoding string

const (
	EncodingPlain                DataEncoding = "plain"
	EncodingDeltaBinaryPacked    DataEncoding = "delta_binary_packed"
	EncodingDeltaLengthByteArray DataEncoding = "delta_length_byte_array"
	EncodingDeltaByteArray       DataEncoding = "delta_byte_array"
	EncodingByteStreamSplit      DataEncoding = "byte_stream_split"
)

// StatisticsLevel selects how much statistics a column carries.
type StatisticsLevel string

const (
	StatsNone  StatisticsLevel = "none"
	StatsChunk StatisticsLevel = "chunk"
	StatsPage  StatisticsLevel = "page"
)

// Directive is one physical-layout change. Directives that write the
// same property of the same scope share a conflict key; a later
// directive with the same key overrides an earlier one.
type Directive interface {
	// ConflictKey identifies the property slot the directive writes.
	ConflictKey() string
	// String renders the directive in its one-line source form.
	String() string

	conflictValue() string
	isDirective()
}

// FileCompression sets the default compression codec for all columns.
type FileCompression struct{ Codec Codec }

func (d FileCompression) ConflictKey() string   { return "file compression" }
func (d FileCompression) conflictValue() string { return d.Codec.String() }
func (d FileCompression) String() string        { return "set file compression " + d.Codec.String() }
func (FileCompression) isDirective()            {}

// FileMaxRowGroupSize caps the number of rows per row group.
type FileMaxRowGroupSize struct{ Rows int64 }

func (d FileMaxRowGroupSize) ConflictKey() string   { return "file max_row_group_size" }
func (d FileMaxRowGroupSize) conflictValue() string { return strconv.FormatInt(d.Rows, 10) }
func (d FileMaxRowGroupSize) String() string {
	return "set file max_row_group_size " + strconv.FormatInt(d.Rows, 10)
}
func (FileMaxRowGroupSize) isDirective() {}

// FileDataPageSizeLimit caps the uncompressed size of data pages.
type FileDataPageSizeLimit struct{ Bytes int64 }

func (d FileDataPageSizeLimit) ConflictKey() string   { return "file data_page_size_limit" }
func (d FileDataPageSizeLimit) conflictValue() string { return strconv.FormatInt(d.Bytes, 10) }
func (d FileDataPageSizeLimit) String() string {
	return "set file data_page_size_limit " + strconv.FormatInt(d.Bytes, 10)
}
func (FileDataPageSizeLimit) isDirective() {}

// FileStatsTruncate truncates min/max statistics values to the given
// byte length. A zero length disables truncation.
type FileStatsTruncate struct{ Length int }

func (d FileStatsTruncate) ConflictKey() string { return "file statistics_truncate_length" }
func (d FileStatsTruncate) conflictValue() string {
	if d.Length == 0 {
		return "none"
	}
	return strconv.Itoa(d.Length)
}
func (d FileStatsTruncate) String() string {
	return "set file statistics_truncate_length " + d.conflictValue()
}
func (FileStatsTruncate) isDirective() {}

// ColumnCompression sets the compression codec of one column.
type ColumnCompression struct {
	Path  string
	Codec Codec
}

func (d ColumnCompression) ConflictKey() string   { return "column " + d.Path + " compression" }
func (d ColumnCompression) conflictValue() string { return d.Codec.String() }
func (d ColumnCompression) String() string {
	return fmt.Sprintf("set column %s compression %s", d.Path, d.Codec)
}
func (ColumnCompression) isDirective() {}

// ColumnEncoding sets the data page encoding of one column.
type ColumnEncoding struct {
	Path     string
	Encoding DataEncoding
}

func (d ColumnEncoding) ConflictKey() string   { return "column " + d.Path + " encoding" }
func (d ColumnEncoding) conflictValue() string { return string(d.Encoding) }
func (d ColumnEncoding) String() string {
	return fmt.Sprintf("set column %s encoding %s", d.Path, d.Encoding)
}
func (ColumnEncoding) isDirective() {}

// ColumnDictionary enables or disables dictionary encoding for one
// column.
type ColumnDictionary struct {
	Path    string
	Enabled bool
}

func (d ColumnDictionary) ConflictKey() string   { return "column " + d.Path + " dictionary" }
func (d ColumnDictionary) conflictValue() string { return strconv.FormatBool(d.Enabled) }
func (d ColumnDictionary) String() string {
	return fmt.Sprintf("set column %s dictionary %t", d.Path, d.Enabled)
}
func (ColumnDictionary) isDirective() {}

// ColumnDictionaryPageSizeLimit caps the dictionary page size for one
// column.
type ColumnDictionaryPageSizeLimit struct {
	Path  string
	Bytes int64
}

func (d ColumnDictionaryPageSizeLimit) ConflictKey() string {
	return "column " + d.Path + " dictionary_page_size_limit"
}
func (d ColumnDictionaryPageSizeLimit) conflictValue() string {
	return strconv.FormatInt(d.Bytes, 10)
}
func (d ColumnDictionaryPageSizeLimit) String() string {
	return fmt.Sprintf("set column %s dictionary_page_size_limit %d", d.Path, d.Bytes)
}
func (ColumnDictionaryPageSizeLimit) isDirective() {}

// ColumnStatistics selects the statistics level of one column.
type ColumnStatistics struct {
	Path  string
	Level StatisticsLevel
}

func (d ColumnStatistics) ConflictKey() string   { return "column " + d.Path + " statistics" }
func (d ColumnStatistics) conflictValue() string { return string(d.Level) }
func (d ColumnStatistics) String() string {
	return fmt.Sprintf("set column %s statistics %s", d.Path, d.Level)
}
func (ColumnStatistics) isDirective() {}

// ColumnBloomFilter enables or disables a bloom filter for one column.
type ColumnBloomFilter struct {
	Path    string
	Enabled bool
}

func (d ColumnBloomFilter) ConflictKey() string   { return "column " + d.Path + " bloom_filter" }
func (d ColumnBloomFilter) conflictValue() string { return strconv.FormatBool(d.Enabled) }
func (d ColumnBloomFilter) String() string {
	return fmt.Sprintf("set column %s bloom_filter %t", d.Path, d.Enabled)
}
func (ColumnBloomFilter) isDirective() {}

// ColumnBloomFilterNDV sets the expected distinct value count used to
// size a column's bloom filter.
type ColumnBloomFilterNDV struct {
	Path string
	NDV  int64
}

func (d ColumnBloomFilterNDV) ConflictKey() string   { return "column " + d.Path + " bloom_filter_ndv" }
func (d ColumnBloomFilterNDV) conflictValue() string { return strconv.FormatInt(d.NDV, 10) }
func (d ColumnBloomFilterNDV) String() string {
	return fmt.Sprintf("set column %s bloom_filter_ndv %d", d.Path, d.NDV)
}
func (ColumnBloomFilterNDV) isDirective() {}

// ColumnBloomFilterFPP sets the target false positive rate of a
// column's bloom filter.
type ColumnBloomFilterFPP struct {
	Path string
	FPP  float64
}

func (d ColumnBloomFilterFPP) ConflictKey() string   { return "column " + d.Path + " bloom_filter_fpp" }
func (d ColumnBloomFilterFPP) conflictValue() string {
	return strconv.FormatFloat(d.FPP, 'g', -1, 64)
}
func (d ColumnBloomFilterFPP) String() string {
	return fmt.Sprintf("set column %s bloom_filter_fpp %s", d.Path, d.conflictValue())
}
func (ColumnBloomFilterFPP) isDirective() {}
