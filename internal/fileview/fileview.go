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

// Package fileview provides a read-only view over a Parquet file's
// physical layout: the raw footer metadata, the leaf column schema,
// and page headers fetched on demand through byte-range reads.
package fileview

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/segmentio/encoding/thrift"

	"github.com/cardinalhq/pqlint/internal/source"
)

// Leaf describes one leaf column of the schema, in footer order.
type Leaf struct {
	// ColumnIndex is the leaf's ordinal, matching the column chunk
	// position inside every row group.
	ColumnIndex int
	Path        []string
	DottedPath  string
	Element     *format.SchemaElement
	MaxDefLevel int
	MaxRepLevel int
}

// File is an open Parquet file with its footer decoded.
type File struct {
	handle source.Handle
	pf     *parquet.File
	meta   *format.FileMetaData
	leaves []Leaf
	flat   bool
}

// Open decodes the footer of the file behind h. Page indexes and bloom
// filters are not loaded; the linter only needs their offsets.
func Open(ctx context.Context, h source.Handle) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(h, h.Size(),
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		return nil, fmt.Errorf("open parquet file %s: %w", h.Name(), err)
	}

	f := &File{handle: h, pf: pf, meta: pf.Metadata()}
	if err := f.buildLeaves(); err != nil {
		return nil, fmt.Errorf("walk schema of %s: %w", h.Name(), err)
	}
	return f, nil
}

// Metadata returns the raw footer.
func (f *File) Metadata() *format.FileMetaData { return f.meta }

// Handle returns the underlying byte source.
func (f *File) Handle() source.Handle { return f.handle }

// Name returns the locator the file was opened from.
func (f *File) Name() string { return f.handle.Name() }

// Size returns the total file size in bytes.
func (f *File) Size() int64 { return f.handle.Size() }

// Leaves returns the leaf columns in footer order.
func (f *File) Leaves() []Leaf { return f.leaves }

// Flat reports whether every leaf sits directly under the schema root
// with no repetition. Sampling reads only cover flat schemas.
func (f *File) Flat() bool { return f.flat }

// Chunk returns the column chunk for leaf col inside row group rg.
func (f *File) Chunk(rg, col int) *format.ColumnChunk {
	return &f.meta.RowGroups[rg].Columns[col]
}

func (f *File) buildLeaves() error {
	schema := f.meta.Schema
	if len(schema) == 0 {
		return fmt.Errorf("empty schema")
	}
	idx := 1
	rootChildren := int(schema[0].NumChildren)
	for range rootChildren {
		if err := f.walkElement(schema, &idx, nil, 0, 0); err != nil {
			return err
		}
	}
	f.flat = len(f.leaves) == rootChildren
	for _, l := range f.leaves {
		if l.MaxRepLevel > 0 {
			f.flat = false
		}
	}
	return nil
}

func (f *File) walkElement(schema []format.SchemaElement, idx *int, path []string, def, rep int) error {
	if *idx >= len(schema) {
		return fmt.Errorf("schema element index %d out of range", *idx)
	}
	el := &schema[*idx]
	*idx++

	if el.RepetitionType != nil {
		switch *el.RepetitionType {
		case format.Optional:
			def++
		case format.Repeated:
			def++
			rep++
		}
	}

	childPath := append(append([]string(nil), path...), el.Name)
	if el.NumChildren == 0 {
		f.leaves = append(f.leaves, Leaf{
			ColumnIndex: len(f.leaves),
			Path:        childPath,
			DottedPath:  strings.Join(childPath, "."),
			Element:     el,
			MaxDefLevel: def,
			MaxRepLevel: rep,
		})
		return nil
	}
	for range int(el.NumChildren) {
		if err := f.walkElement(schema, idx, childPath, def, rep); err != nil {
			return err
		}
	}
	return nil
}

// chunkStartOffset returns the byte offset of the first page of a
// chunk, which is the dictionary page when one exists.
func chunkStartOffset(cc *format.ColumnChunk) int64 {
	off := cc.MetaData.DataPageOffset
	if d := cc.MetaData.DictionaryPageOffset; d > 0 && d < off {
		off = d
	}
	return off
}

// decodePageHeader reads and decodes a single thrift page header at
// the given offset, returning the header and the number of bytes the
// encoded header occupied.
func (f *File) decodePageHeader(off int64) (*format.PageHeader, int64, error) {
	for _, window := range []int64{16 << 10, 256 << 10} {
		n := window
		if rem := f.handle.Size() - off; rem < n {
			n = rem
		}
		if n <= 0 {
			return nil, 0, fmt.Errorf("page header offset %d beyond end of file", off)
		}
		buf := make([]byte, n)
		read, err := f.handle.ReadAt(buf, off)
		if err != nil && read == 0 {
			return nil, 0, fmt.Errorf("read page header at offset %d: %w", off, err)
		}
		buf = buf[:read]

		br := bytes.NewReader(buf)
		proto := &thrift.CompactProtocol{}
		dec := thrift.NewDecoder(proto.NewReader(br))
		var hdr format.PageHeader
		if err := dec.Decode(&hdr); err != nil {
			if int64(len(buf)) < window {
				return nil, 0, fmt.Errorf("decode page header at offset %d: %w", off, err)
			}
			continue
		}
		consumed := int64(len(buf)) - int64(br.Len())
		return &hdr, consumed, nil
	}
	return nil, 0, fmt.Errorf("page header at offset %d exceeds decode window", off)
}

// FirstPageHeader returns the header of the first page of the chunk,
// which is the dictionary page header when the chunk is
// dictionary-encoded.
func (f *File) FirstPageHeader(ctx context.Context, rg, col int) (*format.PageHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hdr, _, err := f.decodePageHeader(chunkStartOffset(f.Chunk(rg, col)))
	return hdr, err
}

// DictionaryEntries returns the number of entries in the chunk's
// dictionary page, or ok=false when the chunk carries no dictionary.
func (f *File) DictionaryEntries(ctx context.Context, rg, col int) (int64, bool, error) {
	cc := f.Chunk(rg, col)
	if cc.MetaData.DictionaryPageOffset <= 0 {
		return 0, false, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	hdr, _, err := f.decodePageHeader(cc.MetaData.DictionaryPageOffset)
	if err != nil {
		return 0, false, err
	}
	if hdr.Type != format.DictionaryPage || hdr.DictionaryPageHeader == nil {
		return 0, false, nil
	}
	return int64(hdr.DictionaryPageHeader.NumValues), true, nil
}

// PageScan holds the page headers of one column chunk, in file order.
type PageScan struct {
	Headers []format.PageHeader
	// Truncated is set when the scan stopped at maxPages before the
	// chunk was exhausted.
	Truncated bool
}

// ScanPages decodes page headers for the chunk sequentially,
// stopping after maxPages headers (0 means no cap).
func (f *File) ScanPages(ctx context.Context, rg, col int, maxPages int) (*PageScan, error) {
	cc := f.Chunk(rg, col)
	off := chunkStartOffset(cc)
	end := off + cc.MetaData.TotalCompressedSize

	scan := &PageScan{}
	for off < end {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if maxPages > 0 && len(scan.Headers) >= maxPages {
			scan.Truncated = true
			break
		}
		hdr, consumed, err := f.decodePageHeader(off)
		if err != nil {
			return nil, fmt.Errorf("scan pages of row group %d column %d: %w", rg, col, err)
		}
		scan.Headers = append(scan.Headers, *hdr)
		off += consumed + int64(hdr.CompressedPageSize)
	}
	return scan, nil
}

// NonNullValues returns the number of non-null values a chunk holds,
// derived from its statistics. Without a null count it assumes every
// value is present.
func NonNullValues(cc *format.ColumnChunk) int64 {
	total := cc.MetaData.NumValues
	nulls := cc.MetaData.Statistics.NullCount
	if nulls < 0 {
		nulls = 0
	}
	if nulls > total {
		nulls = total
	}
	return total - nulls
}
