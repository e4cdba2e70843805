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

// Package cardinality estimates the number of distinct values per leaf
// column without reading the whole file. Estimates come from three
// sources, tried in order: distinct counts declared in chunk
// statistics, dictionary page entry counts, and a bounded row sample
// hashed into a HyperLogLog sketch. Columns none of the tiers can
// cover are treated as fully unique.
package cardinality

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/axiomhq/hyperloglog"
	"github.com/cespare/xxhash/v2"

	"github.com/cardinalhq/pqlint/internal/fileview"
)

// SampleRows bounds how many rows the sampling tier reads.
const SampleRows = 16384

// Column is the cardinality estimate for one leaf column.
type Column struct {
	Distinct int64
	NonNull  int64
	// Sampled marks estimates derived from a row sample rather than
	// declared metadata.
	Sampled bool
}

// Ratio returns distinct values per non-null value, in [0, 1].
func (c Column) Ratio() float64 {
	if c.NonNull == 0 {
		return 0
	}
	return float64(c.Distinct) / float64(c.NonNull)
}

// Estimate computes a cardinality estimate for every leaf column of f.
// The result slice is indexed by leaf column ordinal.
func Estimate(ctx context.Context, f *fileview.File) ([]Column, error) {
	meta := f.Metadata()
	leaves := f.Leaves()
	cols := make([]Column, len(leaves))

	for i := range leaves {
		for rg := range meta.RowGroups {
			cc := f.Chunk(rg, i)
			cols[i].NonNull += fileview.NonNullValues(cc)
		}
	}

	repRG := representativeRowGroup(f)

	var ambiguous []int
	for i := range leaves {
		if cols[i].NonNull == 0 {
			continue
		}
		if repRG >= 0 {
			if d, ok := declaredDistinct(f, repRG, i, cols[i].NonNull); ok {
				cols[i].Distinct = d
				continue
			}
		}
		if repRG >= 0 {
			// A failed tier leaves the column for the next one; it
			// never fails the estimate.
			d, ok, err := dictionaryDistinct(ctx, f, repRG, i, cols[i].NonNull)
			if err != nil {
				slog.Debug("dictionary tier unavailable",
					slog.String("file", f.Name()), slog.Int("column", i), slog.Any("error", err))
			} else if ok {
				cols[i].Distinct = d
				continue
			}
		}
		ambiguous = append(ambiguous, i)
	}

	sampled := false
	if len(ambiguous) > 0 && f.Flat() && repRG >= 0 {
		if err := sampleDistinct(ctx, f, repRG, ambiguous, cols); err != nil {
			slog.Warn("cardinality sampling degraded to fully unique",
				slog.String("file", f.Name()), slog.Any("error", err))
		} else {
			sampled = true
		}
	}
	if !sampled {
		for _, i := range ambiguous {
			cols[i].Distinct = cols[i].NonNull
		}
	}
	return cols, nil
}

// representativeRowGroup picks the row group sampling tiers read from:
// the first one holding any rows.
func representativeRowGroup(f *fileview.File) int {
	for rg, g := range f.Metadata().RowGroups {
		if g.NumRows > 0 {
			return rg
		}
	}
	return -1
}

// declaredDistinct reads the distinct count the writer declared on the
// representative chunk and scales it to the whole column. A zero
// distinct count means the writer did not record it.
func declaredDistinct(f *fileview.File, rg, col int, totalNonNull int64) (int64, bool) {
	cc := f.Chunk(rg, col)
	d := cc.MetaData.Statistics.DistinctCount
	if d <= 0 {
		return 0, false
	}
	return scaleDeclared(d, fileview.NonNullValues(cc), totalNonNull), true
}

// scaleDeclared scales a distinct count declared on one row group up
// to the column total, clamped to [declared, total].
func scaleDeclared(declared, rgNonNull, totalNonNull int64) int64 {
	if rgNonNull == 0 {
		return clamp(declared, 1, totalNonNull)
	}
	return scale(declared, rgNonNull, totalNonNull)
}

// dictionaryDistinct scales the dictionary entry count of the
// representative chunk up to the whole column.
func dictionaryDistinct(ctx context.Context, f *fileview.File, rg, col int, totalNonNull int64) (int64, bool, error) {
	entries, ok, err := f.DictionaryEntries(ctx, rg, col)
	if err != nil || !ok {
		return 0, ok, err
	}
	rgNonNull := fileview.NonNullValues(f.Chunk(rg, col))
	if rgNonNull == 0 {
		return clamp(entries, 1, totalNonNull), true, nil
	}
	scaled := scale(entries, rgNonNull, totalNonNull)
	// The dictionary cannot hold more entries than the chunk holds
	// values, so its size is also a hard floor on the estimate.
	floor := min(entries, totalNonNull)
	if scaled < floor {
		scaled = floor
	}
	return scaled, true, nil
}

func sampleDistinct(ctx context.Context, f *fileview.File, rg int, cols []int, out []Column) error {
	rs, err := f.NewRecordReader(ctx, cols, []int{rg}, fileview.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("open sample reader for %s: %w", f.Name(), err)
	}
	defer func() { _ = rs.Close() }()

	sketches := make([]*hyperloglog.Sketch, len(cols))
	sampleNonNull := make([]int64, len(cols))
	for i := range sketches {
		sketches[i] = hyperloglog.New16()
	}

	var rows int64
	var posSeed uint64
	for rows < SampleRows && rs.Next() {
		rec := rs.Record()
		n := rec.NumRows()
		if rows+n > SampleRows {
			n = SampleRows - rows
		}
		for ci := range cols {
			hashInto(sketches[ci], &sampleNonNull[ci], &posSeed, rec.Column(ci), int(n))
		}
		rows += n
	}
	if err := rs.Err(); err != nil {
		return fmt.Errorf("sample rows from %s: %w", f.Name(), err)
	}

	for ci, col := range cols {
		total := out[col].NonNull
		if sampleNonNull[ci] == 0 {
			out[col].Distinct = total
			out[col].Sampled = true
			continue
		}
		d := int64(sketches[ci].Estimate())
		d = clamp(d, 1, sampleNonNull[ci])
		out[col].Distinct = scale(d, sampleNonNull[ci], total)
		out[col].Sampled = true
	}
	return nil
}

// hashInto feeds the first n values of arr into the sketch, skipping
// nulls. Array types with no canonical byte form are treated as unique
// per position, which biases the estimate toward keeping the column
// out of dictionary encoding.
func hashInto(sk *hyperloglog.Sketch, nonNull *int64, posSeed *uint64, arr arrow.Array, n int) {
	var buf [8]byte
	for i := 0; i < n && i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		*nonNull++
		switch a := arr.(type) {
		case *array.Boolean:
			if a.Value(i) {
				buf[0] = 1
			} else {
				buf[0] = 0
			}
			sk.InsertHash(xxhash.Sum64(buf[:1]))
		case *array.Int8:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Int16:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Int32:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Uint8:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Uint16:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Uint32:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Uint64:
			binary.LittleEndian.PutUint64(buf[:], a.Value(i))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Float32:
			binary.LittleEndian.PutUint64(buf[:], uint64(math.Float32bits(a.Value(i))))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Float64:
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.String:
			sk.InsertHash(xxhash.Sum64String(a.Value(i)))
		case *array.LargeString:
			sk.InsertHash(xxhash.Sum64String(a.Value(i)))
		case *array.Binary:
			sk.InsertHash(xxhash.Sum64(a.Value(i)))
		case *array.LargeBinary:
			sk.InsertHash(xxhash.Sum64(a.Value(i)))
		case *array.FixedSizeBinary:
			sk.InsertHash(xxhash.Sum64(a.Value(i)))
		case *array.Timestamp:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Date32:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Date64:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Time32:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Time64:
			binary.LittleEndian.PutUint64(buf[:], uint64(a.Value(i)))
			sk.InsertHash(xxhash.Sum64(buf[:]))
		case *array.Decimal128:
			b := a.Value(i).BigInt().Bytes()
			sk.InsertHash(xxhash.Sum64(b))
		default:
			*posSeed++
			binary.LittleEndian.PutUint64(buf[:], *posSeed)
			sk.InsertHash(xxhash.Sum64(buf[:]))
		}
	}
}

// scale extrapolates a distinct count observed over part of a column
// to the whole column, clamped to [observed, total].
func scale(observed, part, total int64) int64 {
	if part <= 0 || total <= part {
		return clamp(observed, 1, max(total, 1))
	}
	ratio := float64(observed) / float64(part)
	scaled := int64(math.Round(ratio * float64(total)))
	return clamp(scaled, observed, total)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
