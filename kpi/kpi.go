// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package kpi computes the descriptive metrics over the curated tables.
// Every KPI is a single SQL statement run against the warehouse.
package kpi

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/warehouse"
	"github.com/go-gota/gota/dataframe"
)

// Params tune the KPIs which filter or rank.
type Params struct {
	// SinceYear is the first start year of the rating trend.
	SinceYear int
	// MinTitles is the number of rated titles a person needs to be ranked.
	MinTitles int
	// TopN bounds the ranked lists.
	TopN int
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{SinceYear: 2000, MinTitles: 3, TopN: 20}
}

// Result is one computed KPI.
type Result struct {
	Name  string
	Frame dataframe.DataFrame
}

// KPI is a named query and the arguments it takes from Params.
type KPI struct {
	Name  string
	Query string
	Args  func(Params) []interface{}
}

func noArgs(Params) []interface{} { return nil }

func rankArgs(p Params) []interface{} { return []interface{}{p.MinTitles, p.TopN} }

// KPIs lists every KPI in the order they are computed and exported.
var KPIs = []KPI{
	{
		Name: "popularity_by_genre",
		Query: `SELECT g.genre AS genre,
       SUM(r.averageRating * r.numVotes) AS weighted_popularity,
       SUM(r.numVotes) AS total_votes,
       SUM(r.averageRating * r.numVotes) / NULLIF(SUM(r.numVotes), 0) AS weighted_avg_rating
FROM title_genres g
JOIN title_ratings r ON r.tconst = g.tconst
GROUP BY g.genre
ORDER BY weighted_avg_rating DESC NULLS LAST, g.genre`,
		Args: noArgs,
	},
	{
		Name: "rating_trend_by_genre",
		Query: `SELECT b.startYear AS start_year, g.genre AS genre, AVG(r.averageRating) AS avg_rating
FROM title_genres g
JOIN title_basics b ON b.tconst = g.tconst
JOIN title_ratings r ON r.tconst = g.tconst
WHERE b.startYear IS NOT NULL AND b.startYear >= ?
GROUP BY b.startYear, g.genre
ORDER BY g.genre, b.startYear`,
		Args: func(p Params) []interface{} { return []interface{}{p.SinceYear} },
	},
	{
		Name: "top_actors",
		Query: `SELECT n.primaryName AS name, COUNT(*) AS titles, AVG(r.averageRating) AS avg_rating
FROM title_principals p
JOIN title_ratings r ON r.tconst = p.tconst
JOIN name_basics n ON n.nconst = p.nconst
WHERE p.category IN ('actor', 'actress')
GROUP BY n.primaryName
HAVING COUNT(*) >= ?
ORDER BY avg_rating DESC NULLS LAST, titles DESC, name
LIMIT ?`,
		Args: rankArgs,
	},
	{
		Name: "top_directors",
		Query: `SELECT n.primaryName AS name, COUNT(*) AS titles, AVG(r.averageRating) AS avg_rating
FROM title_principals p
JOIN title_ratings r ON r.tconst = p.tconst
JOIN name_basics n ON n.nconst = p.nconst
WHERE p.category = 'director'
GROUP BY n.primaryName
HAVING COUNT(*) >= ?
ORDER BY avg_rating DESC NULLS LAST, titles DESC, name
LIMIT ?`,
		Args: rankArgs,
	},
	{
		Name: "avg_runtime_by_genre",
		Query: `SELECT g.genre AS genre, AVG(b.runtimeMinutes) AS avg_runtime_minutes
FROM title_genres g
JOIN title_basics b ON b.tconst = g.tconst
WHERE b.runtimeMinutes IS NOT NULL AND b.runtimeMinutes > 0
GROUP BY g.genre
ORDER BY avg_runtime_minutes DESC, g.genre`,
		Args: noArgs,
	},
}

// Names returns the KPI names in order.
func Names() []string {
	names := make([]string, len(KPIs))
	for i, k := range KPIs {
		names[i] = k.Name
	}
	return names
}

// Compute runs every KPI in order.
func Compute(ctx context.Context, wh *warehouse.Warehouse, p Params) ([]Result, error) {
	if p.MinTitles <= 0 || p.TopN <= 0 {
		return nil, errors.Newf(errors.ErrInvalidConfig, "min titles and top n must be positive, got %d and %d", p.MinTitles, p.TopN)
	}
	results := make([]Result, 0, len(KPIs))
	for _, k := range KPIs {
		start := time.Now()
		df, err := wh.Query(ctx, k.Query, k.Args(p)...)
		if err != nil {
			return nil, errors.Wrapf(err, "computing %s", k.Name)
		}
		imdbkpi.GaugeKPIRows.WithLabelValues(k.Name).Set(float64(df.Nrow()))
		wh.Log.Infof("%s: %d rows in %s", k.Name, df.Nrow(), time.Since(start).Round(time.Millisecond))
		results = append(results, Result{Name: k.Name, Frame: df})
	}
	return results, nil
}

type source struct {
	table   string
	ds      dataset.Dataset
	columns []string
	indexes []string
}

// sources are the curated tables KPIs read, projected to the columns used.
var sources = []source{
	{"title_basics", dataset.TitleBasics, []string{"tconst", "startYear", "runtimeMinutes", "genres"}, []string{"tconst"}},
	{"title_ratings", dataset.TitleRatings, []string{"tconst", "averageRating", "numVotes"}, []string{"tconst"}},
	{"title_principals", dataset.TitlePrincipals, []string{"tconst", "nconst", "category"}, []string{"category, tconst"}},
	{"name_basics", dataset.NameBasics, []string{"nconst", "primaryName"}, []string{"nconst"}},
}

// genresSQL explodes the comma separated genres of title_basics. A null or
// \N genres contributes nothing, parts are trimmed and empty parts dropped.
const genresSQL = `CREATE TABLE title_genres AS
WITH RECURSIVE split(tconst, genre, rest) AS (
	SELECT tconst, '',
		CASE WHEN genres IS NULL OR genres = '\N' THEN '' ELSE genres || ',' END
	FROM title_basics
	UNION ALL
	SELECT tconst,
		trim(substr(rest, 1, instr(rest, ',') - 1)),
		substr(rest, instr(rest, ',') + 1)
	FROM split
	WHERE rest <> ''
)
SELECT tconst, genre FROM split WHERE genre <> '' AND genre <> '\N'`

// Load reads the curated files in dir into wh and derives title_genres.
func Load(ctx context.Context, wh *warehouse.Warehouse, dir string) error {
	for _, src := range sources {
		path := filepath.Join(dir, src.ds.Curated)
		n, err := wh.LoadParquet(ctx, src.table, path, src.columns...)
		if err != nil {
			return errors.Wrapf(err, "loading %s", src.ds.Name)
		}
		for i, cols := range src.indexes {
			stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
				warehouse.QuoteIdent(fmt.Sprintf("%s_idx%d", src.table, i)), warehouse.QuoteIdent(src.table), cols)
			if err := wh.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		wh.Log.Infof("loaded %d rows of %s", n, src.ds.Name)
	}
	return DeriveGenres(ctx, wh)
}

// DeriveGenres rebuilds title_genres from title_basics.
func DeriveGenres(ctx context.Context, wh *warehouse.Warehouse) error {
	if err := wh.Exec(ctx, "DROP TABLE IF EXISTS title_genres"); err != nil {
		return err
	}
	if err := wh.Exec(ctx, genresSQL); err != nil {
		return errors.Wrap(err, "deriving title genres")
	}
	if err := wh.Exec(ctx, "CREATE INDEX title_genres_tconst ON title_genres (tconst)"); err != nil {
		return err
	}
	n, err := wh.Count(ctx, "title_genres")
	if err != nil {
		return err
	}
	wh.Log.Infof("derived %d title genres", n)
	return nil
}
