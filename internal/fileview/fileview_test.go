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

package fileview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/pqlint/internal/source"
)

type flatRow struct {
	Name string  `parquet:"name"`
	Age  int64   `parquet:"age"`
	Temp float64 `parquet:"temp"`
}

type nestedRow struct {
	ID   int64 `parquet:"id"`
	Meta struct {
		Host string `parquet:"host"`
		Port int32  `parquet:"port"`
	} `parquet:"meta"`
	Tags []string `parquet:"tags"`
}

func writeParquet[T any](t *testing.T, rows []T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.parquet")
	out, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[T](out)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())
	return path
}

func openView(t *testing.T, path string) *File {
	t.Helper()
	h, err := source.Resolve(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	f, err := Open(context.Background(), h)
	require.NoError(t, err)
	return f
}

func flatRows(n int) []flatRow {
	rows := make([]flatRow, n)
	for i := range rows {
		rows[i] = flatRow{
			Name: fmt.Sprintf("host-%03d", i%10),
			Age:  int64(i),
			Temp: float64(i) * 0.5,
		}
	}
	return rows
}

func TestOpenFlatSchema(t *testing.T) {
	f := openView(t, writeParquet(t, flatRows(100)))

	leaves := f.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, "name", leaves[0].DottedPath)
	assert.Equal(t, "age", leaves[1].DottedPath)
	assert.Equal(t, "temp", leaves[2].DottedPath)
	assert.Equal(t, 0, leaves[0].MaxRepLevel)
	assert.True(t, f.Flat())
	assert.Equal(t, int64(100), f.Metadata().NumRows)
}

func TestOpenNestedSchema(t *testing.T) {
	rows := make([]nestedRow, 20)
	for i := range rows {
		rows[i].ID = int64(i)
		rows[i].Meta.Host = "h"
		rows[i].Meta.Port = int32(i)
		rows[i].Tags = []string{"a", "b"}
	}
	f := openView(t, writeParquet(t, rows))

	assert.False(t, f.Flat())
	paths := make([]string, 0, len(f.Leaves()))
	for _, l := range f.Leaves() {
		paths = append(paths, l.DottedPath)
	}
	assert.Contains(t, paths, "id")
	assert.Contains(t, paths, "meta.host")
	assert.Contains(t, paths, "meta.port")

	for _, l := range f.Leaves() {
		if l.DottedPath == "id" {
			assert.Equal(t, 0, l.MaxRepLevel)
		}
	}
}

func TestFirstPageHeader(t *testing.T) {
	f := openView(t, writeParquet(t, flatRows(500)))

	hdr, err := f.FirstPageHeader(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Greater(t, hdr.CompressedPageSize, int32(0))
	assert.Contains(t, []format.PageType{format.DataPage, format.DataPageV2, format.DictionaryPage}, hdr.Type)
}

func TestScanPagesCoversChunk(t *testing.T) {
	f := openView(t, writeParquet(t, flatRows(2000)))

	scan, err := f.ScanPages(context.Background(), 0, 1, 0)
	require.NoError(t, err)
	require.NotEmpty(t, scan.Headers)
	assert.False(t, scan.Truncated)

	var values int64
	for _, hdr := range scan.Headers {
		switch hdr.Type {
		case format.DataPage:
			values += int64(hdr.DataPageHeader.NumValues)
		case format.DataPageV2:
			values += int64(hdr.DataPageHeaderV2.NumValues)
		}
	}
	assert.Equal(t, f.Chunk(0, 1).MetaData.NumValues, values)
}

func TestScanPagesRespectsCap(t *testing.T) {
	f := openView(t, writeParquet(t, flatRows(2000)))

	scan, err := f.ScanPages(context.Background(), 0, 0, 1)
	require.NoError(t, err)
	assert.Len(t, scan.Headers, 1)
}

func TestNonNullValues(t *testing.T) {
	cc := &format.ColumnChunk{}
	cc.MetaData.NumValues = 100
	cc.MetaData.Statistics.NullCount = 25
	assert.Equal(t, int64(75), NonNullValues(cc))

	cc.MetaData.Statistics.NullCount = 500
	assert.Equal(t, int64(0), NonNullValues(cc))
}

func TestRecordReaderStreamsRows(t *testing.T) {
	f := openView(t, writeParquet(t, flatRows(300)))

	rs, err := f.NewRecordReader(context.Background(), nil, nil, 64)
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()

	var rows int64
	for rs.Next() {
		rows += rs.Record().NumRows()
	}
	require.NoError(t, rs.Err())
	assert.Equal(t, int64(300), rows)
}
