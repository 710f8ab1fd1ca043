// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package kpi_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/featurebasedb/imdbkpi/curate"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/imdbtest"
	"github.com/featurebasedb/imdbkpi/ingest"
	"github.com/featurebasedb/imdbkpi/kpi"
	"github.com/featurebasedb/imdbkpi/warehouse"
	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loaded runs ingest and curate over the fixtures and loads the result.
func loaded(t *testing.T) *warehouse.Warehouse {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	landing := imdbtest.WriteLanding(t, filepath.Join(dir, "landing"))
	raw, curated := filepath.Join(dir, "raw"), filepath.Join(dir, "curated")
	_, err := ingest.NewIngester(landing, raw).Run(ctx, dataset.All())
	require.NoError(t, err)
	_, err = curate.NewCurator(raw, curated).Run(ctx, dataset.All())
	require.NoError(t, err)

	wh, err := warehouse.Open(ctx, warehouse.Memory, nil)
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })
	require.NoError(t, kpi.Load(ctx, wh, curated))
	return wh
}

func strs(t *testing.T, df dataframe.DataFrame, col string) []string {
	t.Helper()
	return df.Col(col).Records()
}

func ints(t *testing.T, df dataframe.DataFrame, col string) []int {
	t.Helper()
	v, err := df.Col(col).Int()
	require.NoError(t, err)
	return v
}

func floats(t *testing.T, df dataframe.DataFrame, col string, want []float64) {
	t.Helper()
	got := df.Col(col).Float()
	require.Len(t, got, len(want), col)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "%s[%d]", col, i)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	wh := loaded(t)

	df, err := wh.Query(ctx, "SELECT tconst, genre FROM title_genres ORDER BY tconst, genre")
	require.NoError(t, err)
	assert.Equal(t, []string{"tt01", "tt01", "tt02", "tt03", "tt04", "tt06", "tt06", "tt07"}, strs(t, df, "tconst"))
	assert.Equal(t, []string{"Comedy", "Drama", "Drama", "Comedy", "Action", "Action", "Drama", "Drama"}, strs(t, df, "genre"))

	n, err := wh.Count(ctx, "title_principals")
	require.NoError(t, err)
	assert.Equal(t, int64(imdbtest.Rows("title.principals")), n)
}

func TestGenreSplitting(t *testing.T) {
	ctx := context.Background()
	wh := loaded(t)
	require.NoError(t, wh.Exec(ctx, `DELETE FROM title_basics`))
	require.NoError(t, wh.Exec(ctx, `INSERT INTO title_basics (tconst, genres) VALUES
		('a', ' Drama , Comedy'), ('b', '\N'), ('c', NULL), ('d', 'Horror,,'), ('e', '')`))
	require.NoError(t, kpi.DeriveGenres(ctx, wh))

	df, err := wh.Query(ctx, "SELECT tconst, genre FROM title_genres ORDER BY tconst, genre")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "d"}, strs(t, df, "tconst"))
	assert.Equal(t, []string{"Comedy", "Drama", "Horror"}, strs(t, df, "genre"))
}

func TestCompute(t *testing.T) {
	ctx := context.Background()
	wh := loaded(t)

	results, err := kpi.Compute(ctx, wh, kpi.DefaultParams())
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, name := range kpi.Names() {
		require.Equal(t, name, results[i].Name)
	}

	pop := results[0].Frame
	assert.Equal(t, []string{"genre", "weighted_popularity", "total_votes", "weighted_avg_rating"}, pop.Names())
	assert.Equal(t, []string{"Comedy", "Drama", "Action"}, strs(t, pop, "genre"))
	assert.Equal(t, []int{200, 420, 60}, ints(t, pop, "total_votes"))
	floats(t, pop, "weighted_popularity", []float64{1500, 2770, 340})
	floats(t, pop, "weighted_avg_rating", []float64{7.5, 2770.0 / 420, 340.0 / 60})

	trend := results[1].Frame
	assert.Equal(t, []string{"start_year", "genre", "avg_rating"}, trend.Names())
	assert.Equal(t, []string{"Action", "Comedy", "Drama"}, strs(t, trend, "genre"))
	assert.Equal(t, []int{2002, 2001, 2001}, ints(t, trend, "start_year"))
	floats(t, trend, "avg_rating", []float64{5, 7, 7})

	actors := results[2].Frame
	assert.Equal(t, []string{"name", "titles", "avg_rating"}, actors.Names())
	assert.Equal(t, []string{"Bea Actress", "Ann Actor"}, strs(t, actors, "name"))
	assert.Equal(t, []int{3, 4}, ints(t, actors, "titles"))
	floats(t, actors, "avg_rating", []float64{23.0 / 3, 7.25})

	directors := results[3].Frame
	assert.Equal(t, []string{"Fay Director", "Eve Director"}, strs(t, directors, "name"))
	assert.Equal(t, []int{3, 3}, ints(t, directors, "titles"))
	floats(t, directors, "avg_rating", []float64{22.0 / 3, 7})

	runtime := results[4].Frame
	assert.Equal(t, []string{"genre", "avg_runtime_minutes"}, runtime.Names())
	assert.Equal(t, []string{"Drama", "Comedy", "Action"}, strs(t, runtime, "genre"))
	floats(t, runtime, "avg_runtime_minutes", []float64{102.5, 95, 80})
}

func TestComputeParams(t *testing.T) {
	ctx := context.Background()
	wh := loaded(t)

	results, err := kpi.Compute(ctx, wh, kpi.Params{SinceYear: 2002, MinTitles: 4, TopN: 1})
	require.NoError(t, err)

	trend := results[1].Frame
	for _, y := range ints(t, trend, "start_year") {
		assert.GreaterOrEqual(t, y, 2002)
	}
	assert.Equal(t, 1, trend.Nrow())

	actors := results[2].Frame
	assert.Equal(t, []string{"Ann Actor"}, strs(t, actors, "name"))
	assert.Equal(t, 0, results[3].Frame.Nrow())
	assert.Equal(t, []string{"name", "titles", "avg_rating"}, results[3].Frame.Names())

	results, err = kpi.Compute(ctx, wh, kpi.Params{SinceYear: 2000, MinTitles: 1, TopN: 3})
	require.NoError(t, err)
	for _, r := range results[2:4] {
		assert.LessOrEqual(t, r.Frame.Nrow(), 3, r.Name)
	}

	_, err = kpi.Compute(ctx, wh, kpi.Params{TopN: 0, MinTitles: 1})
	require.Error(t, err)
}

func TestRankingTies(t *testing.T) {
	ctx := context.Background()
	wh := loaded(t)
	require.NoError(t, wh.Exec(ctx, `DELETE FROM title_principals`))
	require.NoError(t, wh.Exec(ctx, `DELETE FROM name_basics`))
	require.NoError(t, wh.Exec(ctx, `INSERT INTO name_basics VALUES ('a', 'Zed'), ('b', 'Amy'), ('c', 'Bob')`))
	// every title rated 8 or 6: Zed and Amy average 7 over 2 titles, Bob 7 over 4
	require.NoError(t, wh.Exec(ctx, `INSERT INTO title_principals VALUES
		('tt01', 'a', 'actor'), ('tt02', 'a', 'actor'),
		('tt01', 'b', 'actress'), ('tt02', 'b', 'actress'),
		('tt01', 'c', 'actor'), ('tt02', 'c', 'actor'), ('tt01', 'c', 'actor'), ('tt02', 'c', 'actor')`))

	results, err := kpi.Compute(ctx, wh, kpi.Params{SinceYear: 2000, MinTitles: 2, TopN: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Amy", "Zed"}, strs(t, results[2].Frame, "name"))
}
