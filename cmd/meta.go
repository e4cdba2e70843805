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

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go/format"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/source"
)

func getMetaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta FILE",
		Short: "Print parquet file metadata",
		Long:  `Prints the footer metadata of a parquet file: schema, row groups, and per-chunk codecs, encodings, sizes, and offsets.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			showChunks, err := c.Flags().GetBool("chunks")
			if err != nil {
				return fmt.Errorf("failed to get chunks flag: %w", err)
			}
			return runMeta(c.Context(), args[0], showChunks, c.OutOrStdout())
		},
	}

	cmd.Flags().Bool("chunks", true, "Include per-chunk detail for each row group")

	return cmd
}

func runMeta(ctx context.Context, locator string, showChunks bool, out io.Writer) error {
	h, err := source.Resolve(ctx, locator)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	f, err := fileview.Open(ctx, h)
	if err != nil {
		return err
	}

	meta := f.Metadata()
	fmt.Fprintf(out, "file: %s (%d bytes)\n", f.Name(), f.Size())
	fmt.Fprintf(out, "created by: %s\n", meta.CreatedBy)
	fmt.Fprintf(out, "format version: %d\n", meta.Version)
	fmt.Fprintf(out, "rows: %d in %d row groups\n", meta.NumRows, len(meta.RowGroups))

	fmt.Fprintln(out, "\nschema:")
	for _, l := range f.Leaves() {
		fmt.Fprintf(out, "  %-3d %-40s %s%s\n", l.ColumnIndex, l.DottedPath, leafType(l), leafLevels(l))
	}

	for i := range meta.RowGroups {
		rg := &meta.RowGroups[i]
		fmt.Fprintf(out, "\nrow group %d: %d rows, %s compressed, %s uncompressed\n",
			i, rg.NumRows, formatBytes(groupCompressed(rg)), formatBytes(rg.TotalByteSize))
		if len(rg.SortingColumns) > 0 {
			fmt.Fprintf(out, "  sorted by: %s\n", sortingDesc(f, rg.SortingColumns))
		}
		if !showChunks {
			continue
		}
		for col := range rg.Columns {
			printChunk(out, f, i, col)
		}
	}
	return nil
}

func printChunk(out io.Writer, f *fileview.File, rg, col int) {
	cc := f.Chunk(rg, col)
	if cc == nil {
		return
	}
	md := &cc.MetaData
	leaf := f.Leaves()[col]

	var attrs []string
	attrs = append(attrs, strings.ToLower(md.Codec.String()))
	var encs []string
	for _, e := range md.Encoding {
		encs = append(encs, strings.ToLower(e.String()))
	}
	attrs = append(attrs, strings.Join(encs, "+"))
	if md.DictionaryPageOffset > 0 {
		attrs = append(attrs, "dict")
	}
	if cc.ColumnIndexOffset > 0 {
		attrs = append(attrs, "page-index")
	}
	if md.BloomFilterOffset > 0 {
		attrs = append(attrs, "bloom")
	}
	if md.Statistics.NullCount > 0 {
		attrs = append(attrs, fmt.Sprintf("%d nulls", md.Statistics.NullCount))
	}

	fmt.Fprintf(out, "  %-40s %s -> %s @%d  %s\n",
		leaf.DottedPath,
		formatBytes(md.TotalUncompressedSize),
		formatBytes(md.TotalCompressedSize),
		md.DataPageOffset,
		strings.Join(attrs, ", "))
}

func leafType(l fileview.Leaf) string {
	if l.Element.Type == nil {
		return "group"
	}
	s := strings.ToLower(l.Element.Type.String())
	if l.Element.LogicalType != nil {
		s += " (" + strings.ToLower(l.Element.LogicalType.String()) + ")"
	}
	return s
}

func leafLevels(l fileview.Leaf) string {
	if l.MaxDefLevel == 0 && l.MaxRepLevel == 0 {
		return ""
	}
	return fmt.Sprintf(" def=%d rep=%d", l.MaxDefLevel, l.MaxRepLevel)
}

func sortingDesc(f *fileview.File, scs []format.SortingColumn) string {
	var parts []string
	for _, sc := range scs {
		name := fmt.Sprintf("column %d", sc.ColumnIdx)
		if int(sc.ColumnIdx) < len(f.Leaves()) {
			name = f.Leaves()[sc.ColumnIdx].DottedPath
		}
		if sc.Descending {
			name += " desc"
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func groupCompressed(rg *format.RowGroup) int64 {
	if rg.TotalCompressedSize > 0 {
		return rg.TotalCompressedSize
	}
	var total int64
	for i := range rg.Columns {
		total += rg.Columns[i].MetaData.TotalCompressedSize
	}
	return total
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/float64(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
