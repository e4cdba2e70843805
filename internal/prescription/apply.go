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
	"math"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
)

// WriterOptions translates the prescription into parquet writer
// properties, in directive order. Appending these after a base option
// set makes later directives override both the base and earlier
// directives, which is the documented last-write-wins behavior.
func (p *Prescription) WriterOptions() []parquet.WriterProperty {
	var opts []parquet.WriterProperty
	for _, d := range p.Directives {
		opts = append(opts, writerOptions(d)...)
	}
	return opts
}

func writerOptions(d Directive) []parquet.WriterProperty {
	switch d := d.(type) {
	case FileCompression:
		opts := []parquet.WriterProperty{parquet.WithCompression(codecOf(d.Codec))}
		if d.Codec.HasLevel {
			opts = append(opts, parquet.WithCompressionLevel(d.Codec.Level))
		}
		return opts
	case FileMaxRowGroupSize:
		return []parquet.WriterProperty{parquet.WithMaxRowGroupLength(d.Rows)}
	case FileDataPageSizeLimit:
		return []parquet.WriterProperty{parquet.WithDataPageSize(d.Bytes)}
	case FileStatsTruncate:
		limit := int64(d.Length)
		if d.Length == 0 {
			limit = math.MaxInt32
		}
		return []parquet.WriterProperty{parquet.WithMaxStatsSize(limit)}
	case ColumnCompression:
		opts := []parquet.WriterProperty{parquet.WithCompressionFor(d.Path, codecOf(d.Codec))}
		if d.Codec.HasLevel {
			opts = append(opts, parquet.WithCompressionLevelFor(d.Path, d.Codec.Level))
		}
		return opts
	case ColumnEncoding:
		return []parquet.WriterProperty{parquet.WithEncodingFor(d.Path, encodingOf(d.Encoding))}
	case ColumnDictionary:
		return []parquet.WriterProperty{parquet.WithDictionaryFor(d.Path, d.Enabled)}
	case ColumnDictionaryPageSizeLimit:
		// The writer has no per-column dictionary page cap; the
		// file-level limit carries the directive's intent.
		return []parquet.WriterProperty{parquet.WithDictionaryPageSizeLimit(d.Bytes)}
	case ColumnStatistics:
		return []parquet.WriterProperty{
			parquet.WithStatsFor(d.Path, d.Level != StatsNone),
			parquet.WithPageIndexEnabledFor(d.Path, d.Level == StatsPage),
		}
	case ColumnBloomFilter:
		return []parquet.WriterProperty{parquet.WithBloomFilterEnabledFor(d.Path, d.Enabled)}
	case ColumnBloomFilterNDV:
		return []parquet.WriterProperty{parquet.WithBloomFilterNDVFor(d.Path, d.NDV)}
	case ColumnBloomFilterFPP:
		return []parquet.WriterProperty{parquet.WithBloomFilterFPPFor(d.Path, d.FPP)}
	default:
		return nil
	}
}

func codecOf(c Codec) compress.Compression {
	switch c.Kind {
	case CodecSnappy:
		return compress.Codecs.Snappy
	case CodecLz4Raw:
		return compress.Codecs.Lz4Raw
	case CodecGzip:
		return compress.Codecs.Gzip
	case CodecBrotli:
		return compress.Codecs.Brotli
	case CodecZstd:
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Uncompressed
	}
}

func encodingOf(e DataEncoding) parquet.Encoding {
	switch e {
	case EncodingDeltaBinaryPacked:
		return parquet.Encodings.DeltaBinaryPacked
	case EncodingDeltaLengthByteArray:
		return parquet.Encodings.DeltaLengthByteArray
	case EncodingDeltaByteArray:
		return parquet.Encodings.DeltaByteArray
	case EncodingByteStreamSplit:
		return parquet.Encodings.ByteStreamSplit
	default:
		return parquet.Encodings.Plain
	}
}
