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
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// DefaultBatchSize is the record batch size used when reading row data.
const DefaultBatchSize = 8192

// RecordStream streams Arrow record batches out of the file. Close
// releases the reader and the underlying parquet reader.
type RecordStream struct {
	array.RecordReader
	pr *file.Reader
}

func (s *RecordStream) Close() error {
	s.RecordReader.Release()
	return s.pr.Close()
}

// Err reports the stream's terminal error. The underlying reader
// reports io.EOF at normal exhaustion; that is not an error.
func (s *RecordStream) Err() error {
	if err := s.RecordReader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// NewRecordReader opens an Arrow record stream over the file,
// restricted to the given leaf columns and row groups. Nil slices
// select everything.
func (f *File) NewRecordReader(ctx context.Context, cols, rowGroups []int, batchSize int64) (*RecordStream, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	sec := io.NewSectionReader(f.handle, 0, f.handle.Size())
	pr, err := file.NewParquetReader(sec)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader for %s: %w", f.Name(), err)
	}
	fr, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{BatchSize: batchSize}, memory.DefaultAllocator)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("create arrow reader for %s: %w", f.Name(), err)
	}
	rr, err := fr.GetRecordReader(ctx, cols, rowGroups)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("create record reader for %s: %w", f.Name(), err)
	}
	return &RecordStream{RecordReader: rr, pr: pr}, nil
}
