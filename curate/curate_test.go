// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package curate_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/columnar"
	"github.com/featurebasedb/imdbkpi/curate"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/imdbtest"
	"github.com/featurebasedb/imdbkpi/ingest"
	"github.com/featurebasedb/imdbkpi/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCast(t *testing.T) {
	tests := []struct {
		in   interface{}
		kind dataset.Kind
		want interface{}
		ok   bool
	}{
		{nil, dataset.Int64, nil, true},
		{"1999", dataset.Int64, int64(1999), true},
		{"19x0", dataset.Int64, nil, false},
		{"1.5", dataset.Int64, nil, false},
		{" 12", dataset.Int64, nil, false},
		{"1", dataset.Int8, int8(1), true},
		{"300", dataset.Int8, nil, false},
		{int64(300), dataset.Int8, nil, false},
		{"7.3", dataset.Float64, 7.3, true},
		{"8", dataset.Float64, 8.0, true},
		{"n/a", dataset.Float64, nil, false},
		{int64(3), dataset.Float64, 3.0, true},
		{"Drama", dataset.String, "Drama", true},
		{int64(42), dataset.String, "42", true},
	}
	for _, tc := range tests {
		got, ok := curate.Cast(tc.in, tc.kind)
		assert.Equal(t, tc.want, got, "Cast(%#v, %s)", tc.in, tc.kind)
		assert.Equal(t, tc.ok, ok, "Cast(%#v, %s) ok", tc.in, tc.kind)
	}
	got, ok := curate.Cast("NaN", dataset.Float64)
	require.True(t, ok)
	require.True(t, math.IsNaN(got.(float64)))
}

func setup(t *testing.T) (raw, curated string) {
	t.Helper()
	dir := t.TempDir()
	landing := imdbtest.WriteLanding(t, filepath.Join(dir, "landing"))
	raw = filepath.Join(dir, "raw")
	_, err := ingest.NewIngester(landing, raw).Run(context.Background(), dataset.All())
	require.NoError(t, err)
	return raw, filepath.Join(dir, "curated")
}

func TestCurator_Run(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	raw, curated := setup(t)

	log := logger.NewBufferLogger()
	c := curate.NewCurator(raw, curated)
	c.BatchSize = 4
	c.Concurrency = 4
	c.Log = log

	before := testutil.ToFloat64(imdbkpi.CounterValuesNulled.WithLabelValues("name.basics", "birthYear"))
	results, err := c.Run(ctx, dataset.All())
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, ds := range dataset.All() {
		res := results[i]
		require.Equal(t, ds.Name, res.Dataset)
		require.Equal(t, filepath.Join(curated, ds.Curated), res.Path)
		// curation never drops rows
		require.Equal(t, int64(imdbtest.Rows(ds.Name)), res.Rows)

		table, err := columnar.ReadTable(ctx, res.Path)
		require.NoError(t, err)
		for j, col := range ds.Columns {
			f := table.Schema().Field(j)
			require.Equal(t, col.Name, f.Name)
			require.True(t, arrow.TypeEqual(col.Type.ArrowType(), f.Type), "%s.%s is %s", ds.Name, col.Name, f.Type)
		}
		table.Release()
	}

	require.Equal(t, map[string]int64{"birthYear": 1}, results[0].Nulled)
	require.Equal(t, map[string]int64{"startYear": 1}, results[1].Nulled)
	require.Empty(t, results[2].Nulled)
	require.Empty(t, results[3].Nulled)
	after := testutil.ToFloat64(imdbkpi.CounterValuesNulled.WithLabelValues("name.basics", "birthYear"))
	require.Equal(t, 1.0, after-before)
	require.Contains(t, log.String(), "WARN:  name.basics: birthYear: 1 values could not be cast to int64")
}

func TestCurator_Values(t *testing.T) {
	ctx := context.Background()
	raw, curated := setup(t)
	c := curate.NewCurator(raw, curated)

	res, err := c.Dataset(ctx, dataset.TitleBasics)
	require.NoError(t, err)
	table, err := columnar.ReadTable(ctx, res.Path)
	require.NoError(t, err)
	defer table.Release()
	rows := columnar.Rows(table)

	want := []interface{}{"tt06", "movie", "Zeta", "Zeta", int8(1), nil, nil, int64(80), "Drama,Action"}
	if diff := cmp.Diff(want, rows[5]); diff != "" {
		t.Fatalf("tt06 mismatch (-want +got):\n%s", diff)
	}

	res, err = c.Dataset(ctx, dataset.TitleRatings)
	require.NoError(t, err)
	table2, err := columnar.ReadTable(ctx, res.Path)
	require.NoError(t, err)
	defer table2.Release()
	require.Equal(t, []interface{}{"tt01", 8.0, int64(100)}, columnar.Rows(table2)[0])
}

func TestCurator_MissingColumn(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	imdbtest.WriteGzipTSV(t, filepath.Join(dir, "landing", "title.ratings.tsv.gz"),
		"tconst\taverageRating", "tt01\t8.0")
	raw := filepath.Join(dir, "raw")
	_, err := ingest.NewIngester(filepath.Join(dir, "landing"), raw).Dataset(ctx, dataset.TitleRatings)
	require.NoError(t, err)

	_, err = curate.NewCurator(raw, filepath.Join(dir, "curated")).Run(ctx, []dataset.Dataset{dataset.TitleRatings})
	require.True(t, errors.Is(err, errors.ErrMissingColumn), "got %v", err)
	require.Contains(t, err.Error(), "numVotes")
}
