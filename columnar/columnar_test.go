// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package columnar_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/featurebasedb/imdbkpi/columnar"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var schema = arrow.NewSchema([]arrow.Field{
	{Name: "tconst", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "isAdult", Type: arrow.PrimitiveTypes.Int8, Nullable: true},
	{Name: "numVotes", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "averageRating", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

func testRows() [][]interface{} {
	return [][]interface{}{
		{"tt01", int8(0), int64(100), 8.5},
		{"tt02", nil, int64(3), nil},
		{nil, int8(1), nil, 1.25},
		{"tt04", int8(0), int64(0), 0.0},
		{"tt05 \"x\"", int8(1), int64(1 << 40), 10.0},
	}
}

func writeRows(t *testing.T, path string, batchSize int, rows [][]interface{}) {
	t.Helper()
	w, err := columnar.NewWriter(path, schema, batchSize)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, w.Append(row))
	}
	require.Equal(t, int64(len(rows)), w.Rows())
	require.NoError(t, w.Close())
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, batch := range []int{1, 2, 1000} {
		path := filepath.Join(t.TempDir(), "sub", "out.parquet")
		writeRows(t, path, batch, testRows())

		_, err := os.Stat(path + ".tmp")
		require.True(t, os.IsNotExist(err), "temp file left behind")

		table, err := columnar.ReadTable(ctx, path)
		require.NoError(t, err)
		for i, f := range schema.Fields() {
			got := table.Schema().Field(i)
			require.Equal(t, f.Name, got.Name)
			require.True(t, arrow.TypeEqual(f.Type, got.Type), "column %s: %s", f.Name, got.Type)
		}
		if diff := cmp.Diff(testRows(), columnar.Rows(table)); diff != "" {
			t.Fatalf("batch %d: rows mismatch (-want +got):\n%s", batch, diff)
		}
		table.Release()
	}
}

func TestReaderProjection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.parquet")
	writeRows(t, path, 2, testRows())

	r, err := columnar.OpenReader(ctx, path, 2, "averageRating", "tconst")
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, int64(5), r.NumRows())
	require.Equal(t, "averageRating", r.Schema().Field(0).Name)
	require.Equal(t, "tconst", r.Schema().Field(1).Name)

	var got [][]interface{}
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for i := 0; i < int(rec.NumRows()); i++ {
			got = append(got, []interface{}{columnar.Value(rec.Column(0), i), columnar.Value(rec.Column(1), i)})
		}
	}
	want := [][]interface{}{{8.5, "tt01"}, {nil, "tt02"}, {1.25, nil}, {0.0, "tt04"}, {10.0, "tt05 \"x\""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReaderMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	writeRows(t, path, 0, testRows())
	_, err := columnar.OpenReader(context.Background(), path, 0, "nope")
	require.True(t, errors.Is(err, errors.ErrMissingColumn), "got %v", err)
}

func TestWriterErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	w, err := columnar.NewWriter(path, schema, 0)
	require.NoError(t, err)
	require.Error(t, w.Append([]interface{}{"tt01"}))
	require.Error(t, w.Append([]interface{}{"tt01", "0", int64(1), 1.0}))
	w.Abort()
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	_, err = columnar.NewWriter(path, arrow.NewSchema([]arrow.Field{{Name: "b", Type: arrow.FixedWidthTypes.Boolean}}, nil), 0)
	require.Error(t, err)
}
