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

package lint

import (
	"context"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/cardinalhq/pqlint/internal/cardinality"
	"github.com/cardinalhq/pqlint/internal/fileview"
)

// fillSampledStats runs one bounded sample pass shared across every
// column whose typed min/max or byte-length distribution the footer
// could not supply, and fills only the still-missing fields. Flat
// schemas only; same representative row group and row cap as the
// cardinality sampler. Values the footer declared are never replaced.
func fillSampledStats(ctx context.Context, f *fileview.File, cols []*ColumnContext) error {
	if f == nil || !f.Flat() {
		return nil
	}
	var need []int
	for i, cc := range cols {
		if needsSample(cc) {
			need = append(need, i)
		}
	}
	if len(need) == 0 {
		return nil
	}
	rg := -1
	for i, g := range f.Metadata().RowGroups {
		if g.NumRows > 0 {
			rg = i
			break
		}
	}
	if rg < 0 {
		return nil
	}

	rs, err := f.NewRecordReader(ctx, need, []int{rg}, fileview.DefaultBatchSize)
	if err != nil {
		return err
	}
	defer func() { _ = rs.Close() }()

	accs := make([]*sampleAcc, len(need))
	for i := range accs {
		accs[i] = newSampleAcc()
	}

	var rows int64
	for rows < cardinality.SampleRows && rs.Next() {
		rec := rs.Record()
		n := rec.NumRows()
		if rows+n > cardinality.SampleRows {
			n = cardinality.SampleRows - rows
		}
		for ci := range need {
			accs[ci].observe(rec.Column(ci), int(n))
		}
		rows += n
	}
	if err := rs.Err(); err != nil {
		return err
	}

	for ci, col := range need {
		accs[ci].fill(cols[col])
	}
	return nil
}

func needsSample(cc *ColumnContext) bool {
	switch st := cc.Stats.(type) {
	case nil:
		return cc.Mapped.Kind != KindUnknown
	case StringStats:
		return st.Lengths == nil
	case BinaryStats:
		return st.Lengths == nil
	default:
		return false
	}
}

type sampleAcc struct {
	count                  int64
	intMin, intMax         int64
	floatMin, floatMax     float64
	boolMin, boolMax       bool
	lenMin, lenMax, lenSum int64
}

func newSampleAcc() *sampleAcc {
	return &sampleAcc{
		intMin:   math.MaxInt64,
		intMax:   math.MinInt64,
		floatMin: math.Inf(1),
		floatMax: math.Inf(-1),
		boolMin:  true,
		lenMin:   math.MaxInt64,
	}
}

func (a *sampleAcc) observe(arr arrow.Array, n int) {
	for i := 0; i < n && i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		switch v := arr.(type) {
		case *array.Boolean:
			a.boolMin = a.boolMin && v.Value(i)
			a.boolMax = a.boolMax || v.Value(i)
		case *array.Int8:
			a.observeInt(int64(v.Value(i)))
		case *array.Int16:
			a.observeInt(int64(v.Value(i)))
		case *array.Int32:
			a.observeInt(int64(v.Value(i)))
		case *array.Int64:
			a.observeInt(v.Value(i))
		case *array.Uint8:
			a.observeInt(int64(v.Value(i)))
		case *array.Uint16:
			a.observeInt(int64(v.Value(i)))
		case *array.Uint32:
			a.observeInt(int64(v.Value(i)))
		case *array.Uint64:
			a.observeInt(int64(v.Value(i)))
		case *array.Date32:
			a.observeInt(int64(v.Value(i)))
		case *array.Date64:
			a.observeInt(int64(v.Value(i)))
		case *array.Time32:
			a.observeInt(int64(v.Value(i)))
		case *array.Time64:
			a.observeInt(int64(v.Value(i)))
		case *array.Timestamp:
			a.observeInt(int64(v.Value(i)))
		case *array.Float32:
			a.observeFloat(float64(v.Value(i)))
		case *array.Float64:
			a.observeFloat(v.Value(i))
		case *array.String:
			a.observeLen(int64(len(v.Value(i))))
		case *array.LargeString:
			a.observeLen(int64(len(v.Value(i))))
		case *array.Binary:
			a.observeLen(int64(len(v.Value(i))))
		case *array.LargeBinary:
			a.observeLen(int64(len(v.Value(i))))
		case *array.FixedSizeBinary:
			a.observeLen(int64(len(v.Value(i))))
		default:
			continue
		}
		a.count++
	}
}

func (a *sampleAcc) observeInt(v int64) {
	a.intMin = min(a.intMin, v)
	a.intMax = max(a.intMax, v)
}

func (a *sampleAcc) observeFloat(v float64) {
	a.floatMin = math.Min(a.floatMin, v)
	a.floatMax = math.Max(a.floatMax, v)
}

func (a *sampleAcc) observeLen(n int64) {
	a.lenMin = min(a.lenMin, n)
	a.lenMax = max(a.lenMax, n)
	a.lenSum += n
}

func (a *sampleAcc) lengths() *ByteLengthStats {
	return &ByteLengthStats{
		Min: a.lenMin,
		Max: a.lenMax,
		Avg: float64(a.lenSum) / float64(a.count),
	}
}

// fill writes the sampled summary into the column, leaving any field
// the footer already supplied untouched.
func (a *sampleAcc) fill(cc *ColumnContext) {
	if a.count == 0 {
		return
	}
	switch st := cc.Stats.(type) {
	case nil:
		switch cc.Mapped.Kind {
		case KindBool:
			cc.Stats = BoolStats{Min: a.boolMin, Max: a.boolMax}
		case KindInt:
			cc.Stats = IntStats{Min: a.intMin, Max: a.intMax}
		case KindFloat:
			cc.Stats = FloatStats{Min: a.floatMin, Max: a.floatMax}
		case KindString:
			cc.Stats = StringStats{Lengths: a.lengths()}
		case KindBinary:
			cc.Stats = BinaryStats{Lengths: a.lengths()}
		case KindFixedLenBinary:
			cc.Stats = FixedLenBytesStats{
				MinValueLen: int(a.lenMin),
				MaxValueLen: int(a.lenMax),
			}
		}
	case StringStats:
		st.Lengths = a.lengths()
		cc.Stats = st
	case BinaryStats:
		st.Lengths = a.lengths()
		cc.Stats = st
	}
}
