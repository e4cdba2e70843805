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

// Package rewrite re-encodes a Parquet file under corrected physical
// properties. The writer configuration starts from the source file's
// own inferred properties and overlays the prescription, so untouched
// columns keep their original layout. Logical schema and row values
// pass through unchanged; a schema difference in the output is an
// error, not a warning.
package rewrite

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/parquet-go/parquet-go/format"

	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/prescription"
	"github.com/cardinalhq/pqlint/internal/source"
)

// File streams every record batch of the source through a writer
// configured as inferred-base plus prescription, writing to dst on the
// local filesystem.
func File(ctx context.Context, h source.Handle, dst string, p *prescription.Prescription) error {
	src, err := fileview.Open(ctx, h)
	if err != nil {
		return err
	}

	opts := InferBase(src)
	if p != nil {
		opts = append(opts, p.WriterOptions()...)
	}
	props := parquet.NewWriterProperties(opts...)

	rs, err := src.NewRecordReader(ctx, nil, nil, fileview.DefaultBatchSize)
	if err != nil {
		return err
	}
	defer func() { _ = rs.Close() }()

	out, err := source.Create(dst)
	if err != nil {
		return fmt.Errorf("create output %s: %w", dst, err)
	}

	w, err := pqarrow.NewFileWriter(rs.Schema(), out,
		props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("open writer for %s: %w", dst, err)
	}

	for rs.Next() {
		if err := ctx.Err(); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Write(rs.Record()); err != nil {
			_ = w.Close()
			return fmt.Errorf("write batch to %s: %w", dst, err)
		}
	}
	if err := rs.Err(); err != nil {
		_ = w.Close()
		return fmt.Errorf("read batches from %s: %w", h.Name(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish output %s: %w", dst, err)
	}

	return verifySchema(ctx, src, dst)
}

// verifySchema re-opens the output and requires structural equality
// with the source's leaf schema. This holds regardless of bytes
// already written.
func verifySchema(ctx context.Context, src *fileview.File, dst string) error {
	oh, err := source.Resolve(ctx, dst)
	if err != nil {
		return fmt.Errorf("reopen output %s: %w", dst, err)
	}
	defer func() { _ = oh.Close() }()

	out, err := fileview.Open(ctx, oh)
	if err != nil {
		return fmt.Errorf("decode output %s: %w", dst, err)
	}

	a, b := src.Leaves(), out.Leaves()
	if len(a) != len(b) {
		return fmt.Errorf("rewrite changed the schema of %s: %d leaf columns became %d",
			dst, len(a), len(b))
	}
	for i := range a {
		if a[i].DottedPath != b[i].DottedPath ||
			typeOf(a[i]) != typeOf(b[i]) ||
			a[i].MaxRepLevel != b[i].MaxRepLevel ||
			a[i].MaxDefLevel != b[i].MaxDefLevel {
			return fmt.Errorf("rewrite changed the schema of %s at column %s",
				dst, a[i].DottedPath)
		}
	}
	return nil
}

func typeOf(l fileview.Leaf) format.Type {
	if l.Element.Type != nil {
		return *l.Element.Type
	}
	return format.Boolean
}

// InferBase derives writer properties reproducing the source file's
// effective layout: format version, sort order when consistent,
// per-column majority codec and encoding, dictionary and bloom
// presence, statistics level, and the largest observed row group size.
func InferBase(f *fileview.File) []parquet.WriterProperty {
	meta := f.Metadata()

	var opts []parquet.WriterProperty
	if meta.Version <= 1 {
		opts = append(opts, parquet.WithVersion(parquet.V1_0))
	} else {
		opts = append(opts, parquet.WithVersion(parquet.V2_LATEST))
	}
	if meta.CreatedBy != "" {
		opts = append(opts, parquet.WithCreatedBy(meta.CreatedBy))
	}

	var maxRows int64
	for _, g := range meta.RowGroups {
		maxRows = max(maxRows, g.NumRows)
	}
	if maxRows > 0 {
		opts = append(opts, parquet.WithMaxRowGroupLength(maxRows))
	}

	if sc := commonSortingColumns(meta); len(sc) > 0 {
		opts = append(opts, parquet.WithSortingColumns(sc))
	}

	for i, leaf := range f.Leaves() {
		path := leaf.DottedPath

		if codec, ok := majorityCodec(f, i); ok {
			opts = append(opts, parquet.WithCompressionFor(path, codec))
		}
		if enc, ok := majorityEncoding(f, i); ok && enc != parquet.Encodings.Plain {
			opts = append(opts, parquet.WithEncodingFor(path, enc))
		}

		dict := false
		bloom := false
		hasStats := false
		hasIndex := len(meta.RowGroups) > 0
		for rg := range meta.RowGroups {
			chunk := f.Chunk(rg, i)
			if chunk.MetaData.DictionaryPageOffset > 0 {
				dict = true
			}
			if chunk.MetaData.BloomFilterOffset > 0 {
				bloom = true
			}
			st := &chunk.MetaData.Statistics
			if len(st.MinValue) > 0 || len(st.MaxValue) > 0 || len(st.Min) > 0 || len(st.Max) > 0 {
				hasStats = true
			}
			if chunk.ColumnIndexOffset <= 0 {
				hasIndex = false
			}
		}
		opts = append(opts, parquet.WithDictionaryFor(path, dict))
		opts = append(opts,
			parquet.WithStatsFor(path, hasStats),
			parquet.WithPageIndexEnabledFor(path, hasStats && hasIndex),
		)
		if bloom {
			opts = append(opts, parquet.WithBloomFilterEnabledFor(path, true))
		}
	}
	return opts
}

// commonSortingColumns returns the sort order when every row group
// declares the same one.
func commonSortingColumns(meta *format.FileMetaData) []parquet.SortingColumn {
	if len(meta.RowGroups) == 0 || len(meta.RowGroups[0].SortingColumns) == 0 {
		return nil
	}
	first := meta.RowGroups[0].SortingColumns
	for _, g := range meta.RowGroups[1:] {
		if len(g.SortingColumns) != len(first) {
			return nil
		}
		for i, sc := range g.SortingColumns {
			if sc != first[i] {
				return nil
			}
		}
	}
	out := make([]parquet.SortingColumn, len(first))
	for i, sc := range first {
		out[i] = parquet.SortingColumn{
			ColumnIdx:  sc.ColumnIdx,
			Descending: sc.Descending,
			NullsFirst: sc.NullsFirst,
		}
	}
	return out
}

func majorityCodec(f *fileview.File, col int) (compress.Compression, bool) {
	counts := make(map[format.CompressionCodec]int)
	for rg := range f.Metadata().RowGroups {
		counts[f.Chunk(rg, col).MetaData.Codec]++
	}
	best, bestCount := format.Uncompressed, 0
	for codec, n := range counts {
		if n > bestCount {
			best, bestCount = codec, n
		}
	}
	if bestCount == 0 {
		return 0, false
	}
	switch best {
	case format.Snappy:
		return compress.Codecs.Snappy, true
	case format.Gzip:
		return compress.Codecs.Gzip, true
	case format.Brotli:
		return compress.Codecs.Brotli, true
	case format.Lz4:
		return compress.Codecs.Lz4, true
	case format.Lz4Raw:
		return compress.Codecs.Lz4Raw, true
	case format.Zstd:
		return compress.Codecs.Zstd, true
	case format.Uncompressed:
		return compress.Codecs.Uncompressed, true
	default:
		return 0, false
	}
}

// majorityEncoding votes on data encodings, excluding the structural
// level encodings and dictionary index encodings.
func majorityEncoding(f *fileview.File, col int) (parquet.Encoding, bool) {
	counts := make(map[format.Encoding]int)
	for rg := range f.Metadata().RowGroups {
		for _, e := range f.Chunk(rg, col).MetaData.Encoding {
			switch e {
			case format.RLE, format.BitPacked, format.PlainDictionary, format.RLEDictionary:
				continue
			}
			counts[e]++
		}
	}
	best, bestCount := format.Plain, 0
	for e, n := range counts {
		if n > bestCount {
			best, bestCount = e, n
		}
	}
	if bestCount == 0 {
		return parquet.Encodings.Plain, false
	}
	switch best {
	case format.Plain:
		return parquet.Encodings.Plain, true
	case format.DeltaBinaryPacked:
		return parquet.Encodings.DeltaBinaryPacked, true
	case format.DeltaLengthByteArray:
		return parquet.Encodings.DeltaLengthByteArray, true
	case format.DeltaByteArray:
		return parquet.Encodings.DeltaByteArray, true
	case format.ByteStreamSplit:
		return parquet.Encodings.ByteStreamSplit, true
	default:
		return parquet.Encodings.Plain, false
	}
}
