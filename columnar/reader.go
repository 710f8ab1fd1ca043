// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package columnar

import (
	"context"
	"io"
	"os"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/featurebasedb/imdbkpi/errors"
)

// Reader iterates the records of a Parquet file, optionally restricted to
// some of its columns.
type Reader struct {
	f  *os.File
	pf *file.Reader
	rr pqarrow.RecordReader
}

// OpenReader opens path and prepares to read batches of batchSize rows of the
// named columns, in the order given. No columns means every column.
func OpenReader(ctx context.Context, path string, batchSize int, columns ...string) (*Reader, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet file")
	}
	pf, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading parquet metadata of %s", path)
	}
	r := &Reader{f: f, pf: pf}

	var indices []int
	if len(columns) > 0 {
		indices = make([]int, len(columns))
		for i, name := range columns {
			idx := pf.MetaData().Schema.ColumnIndexByName(name)
			if idx < 0 {
				r.Close()
				return nil, errors.Newf(errors.ErrMissingColumn, "%s: no column %q", path, name)
			}
			indices[i] = idx
		}
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: int64(batchSize)}, memory.NewGoAllocator())
	if err != nil {
		r.Close()
		return nil, errors.Wrap(err, "creating arrow reader")
	}
	r.rr, err = fr.GetRecordReader(ctx, indices, nil)
	if err != nil {
		r.Close()
		return nil, errors.Wrap(err, "creating record reader")
	}
	return r, nil
}

// Schema returns the schema of the records produced, after projection.
func (r *Reader) Schema() *arrow.Schema {
	return r.rr.Schema()
}

// NumRows returns the number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.pf.NumRows()
}

// Next returns the next record, or io.EOF when the file is exhausted. The
// record is only valid until the following call.
func (r *Reader) Next() (arrow.Record, error) {
	rec, err := r.rr.Read()
	if rec == nil {
		if err == nil {
			err = io.EOF
		}
		if err != io.EOF {
			err = errors.Wrap(err, "reading record")
		}
		return nil, err
	}
	return rec, nil
}

// Close releases the reader and its file.
func (r *Reader) Close() error {
	if r.rr != nil {
		r.rr.Release()
		r.rr = nil
	}
	if r.pf != nil {
		return r.pf.Close()
	}
	return r.f.Close()
}

// ReadTable loads the whole file at path into memory.
func ReadTable(ctx context.Context, path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet file")
	}
	defer f.Close()
	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading parquet metadata of %s", path)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, errors.Wrap(err, "creating arrow reader")
	}
	table, err := fr.ReadTable(ctx)
	return table, errors.Wrap(err, "reading table")
}

// Rows flattens a table into rows of Go values, as produced by Value.
func Rows(table arrow.Table) [][]interface{} {
	rows := make([][]interface{}, table.NumRows())
	for i := range rows {
		rows[i] = make([]interface{}, table.NumCols())
	}
	for col := 0; col < int(table.NumCols()); col++ {
		row := 0
		for _, chunk := range table.Column(col).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				rows[row][col] = Value(chunk, j)
				row++
			}
		}
	}
	return rows
}

// Value returns the i'th cell of arr as a Go value: string, int8, int64 or
// float64, with nil for null. Other integer and float widths are widened to
// int64 and float64.
func Value(arr arrow.Array, i int) interface{} {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Binary:
		return string(a.Value(i))
	case *array.Int8:
		return a.Value(i)
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	}
	return nil
}
