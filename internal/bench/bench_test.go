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

package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type benchRow struct {
	Name  string `parquet:"name"`
	Value int64  `parquet:"value"`
}

func writeFile(t *testing.T, n int) string {
	t.Helper()
	rows := make([]benchRow, n)
	for i := range rows {
		rows[i] = benchRow{Name: "n", Value: int64(i)}
	}
	path := filepath.Join(t.TempDir(), "bench.parquet")
	out, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[benchRow](out)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())
	return path
}

func TestMeasure(t *testing.T) {
	path := writeFile(t, 2000)

	m, err := Measure(context.Background(), path, 256, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), m.Rows)
	assert.Positive(t, m.SizeMB)
	assert.GreaterOrEqual(t, m.ScanMs, 0.0)
	assert.Equal(t, 3, m.BestOfN)
	assert.Equal(t, m.ScanMs+m.SizeMB, m.Cost())
}

func TestCompare(t *testing.T) {
	a := writeFile(t, 1000)
	b := writeFile(t, 1000)

	c, err := Compare(context.Background(), a, b, 256, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.Before.Rows)
	assert.Equal(t, int64(1000), c.After.Rows)
	assert.Contains(t, c.String(), "cost delta")
}

func TestMeasureMissingFile(t *testing.T) {
	_, err := Measure(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"), 256, 1)
	assert.Error(t, err)
}
