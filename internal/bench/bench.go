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

// Package bench measures how a file's physical layout trades read
// latency against size. The score is deliberately crude: best-of-N
// full-scan milliseconds plus file megabytes, so layout changes that
// shave one without bloating the other win.
package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/cardinalhq/pqlint/internal/fileview"
	"github.com/cardinalhq/pqlint/internal/source"
)

// Measurement is one file's benchmark result.
type Measurement struct {
	File     string
	ScanMs   float64
	SizeMB   float64
	Rows     int64
	BestOfN  int
}

// Cost is the combined score, lower is better.
func (m Measurement) Cost() float64 { return m.ScanMs + m.SizeMB }

func (m Measurement) String() string {
	return fmt.Sprintf("%s: scan %.1f ms, size %.1f MB, cost %.1f (%d rows, best of %d)",
		m.File, m.ScanMs, m.SizeMB, m.Cost(), m.Rows, m.BestOfN)
}

// Measure scans the whole file iterations times through the record
// reader and keeps the fastest pass.
func Measure(ctx context.Context, locator string, batchSize int64, iterations int) (Measurement, error) {
	if iterations < 1 {
		iterations = 1
	}

	h, err := source.Resolve(ctx, locator)
	if err != nil {
		return Measurement{}, err
	}
	defer func() { _ = h.Close() }()

	f, err := fileview.Open(ctx, h)
	if err != nil {
		return Measurement{}, err
	}

	m := Measurement{
		File:    locator,
		SizeMB:  float64(h.Size()) / (1 << 20),
		BestOfN: iterations,
	}

	for i := 0; i < iterations; i++ {
		start := time.Now()
		rows, err := scanOnce(ctx, f, batchSize)
		if err != nil {
			return Measurement{}, fmt.Errorf("scan %s: %w", locator, err)
		}
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		if i == 0 || elapsed < m.ScanMs {
			m.ScanMs = elapsed
		}
		m.Rows = rows
	}
	return m, nil
}

func scanOnce(ctx context.Context, f *fileview.File, batchSize int64) (int64, error) {
	rs, err := f.NewRecordReader(ctx, nil, nil, batchSize)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rs.Close() }()

	var rows int64
	for rs.Next() {
		rows += rs.Record().NumRows()
	}
	return rows, rs.Err()
}

// Comparison pairs two measurements, typically before and after a
// rewrite.
type Comparison struct {
	Before, After Measurement
}

// CostDelta is after minus before; negative means the rewrite won.
func (c Comparison) CostDelta() float64 { return c.After.Cost() - c.Before.Cost() }

func (c Comparison) String() string {
	return fmt.Sprintf("%s\n%s\ncost delta %+.1f", c.Before, c.After, c.CostDelta())
}

// Compare measures both files with the same parameters.
func Compare(ctx context.Context, before, after string, batchSize int64, iterations int) (Comparison, error) {
	b, err := Measure(ctx, before, batchSize, iterations)
	if err != nil {
		return Comparison{}, err
	}
	a, err := Measure(ctx, after, batchSize, iterations)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Before: b, After: a}, nil
}
