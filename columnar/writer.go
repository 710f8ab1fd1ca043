// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package columnar reads and writes the Parquet files of the raw and curated
// layers through arrow.
package columnar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/compress"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/featurebasedb/imdbkpi/errors"
)

// DefaultBatchSize is the number of rows buffered before a record is written.
const DefaultBatchSize = 65536

// Writer appends rows to a Parquet file. Rows are written to <path>.tmp and
// the file only appears at path once Close succeeds.
type Writer struct {
	path      string
	tmp       string
	f         *os.File
	fw        *pqarrow.FileWriter
	rb        *array.RecordBuilder
	schema    *arrow.Schema
	batchSize int
	pending   int
	rows      int64
}

// NewWriter creates the parent directory of path and opens a temp file next
// to it. A batchSize of zero or less uses DefaultBatchSize.
func NewWriter(path string, schema *arrow.Schema, batchSize int) (*Writer, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for _, field := range schema.Fields() {
		switch field.Type.ID() {
		case arrow.STRING, arrow.INT8, arrow.INT64, arrow.FLOAT64:
		default:
			return nil, errors.Errorf("column %s: unsupported type %s", field.Name, field.Type)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, errors.Wrap(err, "creating parquet file")
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	// pqarrow closes a sink that is an io.Closer; the file is closed here
	// instead so it can be renamed.
	fw, err := pqarrow.NewFileWriter(schema, struct{ io.Writer }{f}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, errors.Wrap(err, "creating parquet writer")
	}
	return &Writer{
		path:      path,
		tmp:       tmp,
		f:         f,
		fw:        fw,
		rb:        array.NewRecordBuilder(memory.NewGoAllocator(), schema),
		schema:    schema,
		batchSize: batchSize,
	}, nil
}

// Path returns the final location of the file.
func (w *Writer) Path() string { return w.path }

// Rows returns the number of rows appended so far.
func (w *Writer) Rows() int64 { return w.rows }

// Append adds one row. values must match the schema positionally; nil is a
// null. Strings go to string columns, int8/int64/float64 to the matching
// numeric columns.
func (w *Writer) Append(values []interface{}) error {
	if len(values) != len(w.schema.Fields()) {
		return errors.Errorf("row has %d values, schema has %d columns", len(values), len(w.schema.Fields()))
	}
	for i, v := range values {
		if err := appendValue(w.rb.Field(i), v); err != nil {
			return errors.Wrapf(err, "column %s", w.schema.Field(i).Name)
		}
	}
	w.rows++
	w.pending++
	if w.pending >= w.batchSize {
		return w.flush()
	}
	return nil
}

func appendValue(b array.Builder, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch b := b.(type) {
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			b.Append(s)
			return nil
		}
	case *array.Int8Builder:
		if n, ok := v.(int8); ok {
			b.Append(n)
			return nil
		}
	case *array.Int64Builder:
		if n, ok := v.(int64); ok {
			b.Append(n)
			return nil
		}
	case *array.Float64Builder:
		if n, ok := v.(float64); ok {
			b.Append(n)
			return nil
		}
	}
	return fmt.Errorf("cannot append %T", v)
}

func (w *Writer) flush() error {
	if w.pending == 0 {
		return nil
	}
	rec := w.rb.NewRecord()
	defer rec.Release()
	w.pending = 0
	return errors.Wrap(w.fw.Write(rec), "writing record")
}

// Close writes any buffered rows and moves the file into place. On error
// the temp file is removed.
func (w *Writer) Close() error {
	if w.fw == nil {
		return nil
	}
	defer w.rb.Release()
	err := w.flush()
	if cerr := w.fw.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "closing parquet writer")
	}
	w.fw = nil
	if cerr := w.f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "closing parquet file")
	}
	if err == nil {
		err = errors.Wrap(os.Rename(w.tmp, w.path), "renaming parquet file")
	}
	if err != nil {
		os.Remove(w.tmp)
	}
	return err
}

// Abort discards everything written. It is safe to call after Close.
func (w *Writer) Abort() {
	if w.fw == nil {
		return
	}
	w.rb.Release()
	w.fw.Close()
	w.fw = nil
	w.f.Close()
	os.Remove(w.tmp)
}
