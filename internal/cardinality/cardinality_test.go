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

package cardinality

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/axiomhq/hyperloglog"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/source"
)

type sampleRow struct {
	Host string  `parquet:"host"`
	Seq  int64   `parquet:"seq"`
	Temp float64 `parquet:"temp"`
}

func openView(t *testing.T, rows []sampleRow) *fileview.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.parquet")
	out, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[sampleRow](out)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	h, err := source.Resolve(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	f, err := fileview.Open(context.Background(), h)
	require.NoError(t, err)
	return f
}

func TestEstimateLowAndHighCardinality(t *testing.T) {
	rows := make([]sampleRow, 1000)
	for i := range rows {
		rows[i] = sampleRow{
			Host: fmt.Sprintf("host-%d", i%10),
			Seq:  int64(i),
			Temp: float64(i) * 1.5,
		}
	}
	f := openView(t, rows)

	cols, err := Estimate(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, cols, 3)

	host := cols[0]
	assert.Equal(t, int64(1000), host.NonNull)
	assert.LessOrEqual(t, host.Distinct, int64(100))
	assert.GreaterOrEqual(t, host.Distinct, int64(1))
	assert.Less(t, host.Ratio(), 0.2)

	seq := cols[1]
	assert.Equal(t, int64(1000), seq.NonNull)
	assert.GreaterOrEqual(t, seq.Distinct, int64(900))
	assert.LessOrEqual(t, seq.Distinct, int64(1000))
	assert.Greater(t, seq.Ratio(), 0.8)
}

func TestEstimateNeverExceedsNonNull(t *testing.T) {
	rows := make([]sampleRow, 200)
	for i := range rows {
		rows[i] = sampleRow{Host: "same", Seq: 7, Temp: 1.0}
	}
	f := openView(t, rows)

	cols, err := Estimate(context.Background(), f)
	require.NoError(t, err)
	for _, c := range cols {
		assert.LessOrEqual(t, c.Distinct, c.NonNull)
		assert.GreaterOrEqual(t, c.Distinct, int64(1))
	}
}

func TestRatioEmptyColumn(t *testing.T) {
	assert.Zero(t, Column{}.Ratio())
}

func TestScaleClamps(t *testing.T) {
	assert.Equal(t, int64(100), scale(10, 100, 1000))
	// Never below the observed count.
	assert.GreaterOrEqual(t, scale(50, 100, 1000), int64(50))
	// Never above the total.
	assert.Equal(t, int64(1000), scale(100, 100, 1000))
	assert.Equal(t, int64(10), scale(10, 0, 10))
}

func TestScaleDeclaredFromOneGroup(t *testing.T) {
	// 40 distinct over 100 non-null in the representative group scales
	// to the column total, not to a sum across groups.
	assert.Equal(t, int64(400), scaleDeclared(40, 100, 1000))
	// Never above the column total.
	assert.Equal(t, int64(30), scaleDeclared(40, 100, 30))
	// Empty representative group falls back to the declared count.
	assert.Equal(t, int64(40), scaleDeclared(40, 0, 1000))
}

func TestHashIntoSkipsNulls(t *testing.T) {
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.Append(1)
	b.AppendNull()
	b.Append(2)
	b.AppendNull()
	b.Append(1)
	arr := b.NewInt64Array()
	defer arr.Release()

	sk := hyperloglog.New16()
	var nonNull int64
	var seed uint64
	hashInto(sk, &nonNull, &seed, arr, arr.Len())

	assert.Equal(t, int64(3), nonNull)
	assert.Equal(t, uint64(2), sk.Estimate())
}

func TestHashIntoFloatBitPatterns(t *testing.T) {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	for range 10 {
		b.Append(1.5)
		b.Append(2.5)
	}
	arr := b.NewFloat64Array()
	defer arr.Release()

	sk := hyperloglog.New16()
	var nonNull int64
	var seed uint64
	hashInto(sk, &nonNull, &seed, arr, arr.Len())

	assert.Equal(t, int64(20), nonNull)
	assert.Equal(t, uint64(2), sk.Estimate())
}
