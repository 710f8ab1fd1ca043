// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package curate turns raw string columns into their analytical types.
//
// Casts are lenient: a value which does not parse as the target type is
// stored as null and counted, it never fails the run.
package curate

import (
	"context"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/columnar"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/logger"
	"golang.org/x/sync/errgroup"
)

// Result describes one written curated file.
type Result struct {
	Dataset string
	Path    string
	Rows    int64
	Elapsed time.Duration
	// Nulled counts, per cast column, the values that did not parse.
	Nulled map[string]int64
}

// Curator runs the raw to curated stage.
type Curator struct {
	RawDir      string
	CuratedDir  string
	BatchSize   int
	Concurrency int

	Log logger.Logger
}

func NewCurator(rawDir, curatedDir string) *Curator {
	return &Curator{
		RawDir:      rawDir,
		CuratedDir:  curatedDir,
		BatchSize:   columnar.DefaultBatchSize,
		Concurrency: 1,
		Log:         logger.NopLogger,
	}
}

// Run curates datasets, Concurrency at a time, stopping at the first error.
// Results are in the order of datasets.
func (c *Curator) Run(ctx context.Context, datasets []dataset.Dataset) ([]Result, error) {
	results := make([]Result, len(datasets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Concurrency, 1))
	for i, ds := range datasets {
		i, ds := i, ds
		g.Go(func() error {
			res, err := c.Dataset(ctx, ds)
			if err != nil {
				return errors.Wrapf(err, "curating %s", ds.Name)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Dataset reads the raw file of ds and writes its curated file. The raw file
// must hold every column ds declares; extra columns are dropped.
func (c *Curator) Dataset(ctx context.Context, ds dataset.Dataset) (Result, error) {
	start := time.Now()
	src := filepath.Join(c.RawDir, ds.Raw)
	dst := filepath.Join(c.CuratedDir, ds.Curated)
	log := c.Log.WithPrefix(ds.Name + ": ")

	names := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		names[i] = col.Name
	}
	r, err := columnar.OpenReader(ctx, src, c.BatchSize, names...)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	w, err := columnar.NewWriter(dst, ds.CuratedSchema(), c.BatchSize)
	if err != nil {
		return Result{}, err
	}
	defer w.Abort()

	nulled := make([]int64, len(ds.Columns))
	row := make([]interface{}, len(ds.Columns))
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return Result{}, err
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			for j, col := range ds.Columns {
				raw := columnar.Value(rec.Column(j), i)
				v, ok := Cast(raw, col.Type)
				if !ok {
					nulled[j]++
				}
				row[j] = v
			}
			if err := w.Append(row); err != nil {
				return Result{}, err
			}
		}
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	res := Result{
		Dataset: ds.Name,
		Path:    dst,
		Rows:    w.Rows(),
		Elapsed: time.Since(start),
		Nulled:  make(map[string]int64),
	}
	for j, col := range ds.Columns {
		if nulled[j] == 0 {
			continue
		}
		res.Nulled[col.Name] = nulled[j]
		imdbkpi.CounterValuesNulled.WithLabelValues(ds.Name, col.Name).Add(float64(nulled[j]))
		log.Warnf("%s: %d values could not be cast to %s and were set to null", col.Name, nulled[j], col.Type)
	}
	imdbkpi.CounterRowsCurated.WithLabelValues(ds.Name).Add(float64(res.Rows))
	log.Infof("wrote %d rows to %s in %s", res.Rows, res.Path, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// Cast converts a raw value to kind k. Null stays null and reports ok; a
// value that cannot be represented becomes null and reports !ok.
func Cast(v interface{}, k dataset.Kind) (interface{}, bool) {
	if v == nil {
		return nil, true
	}
	switch k {
	case dataset.String:
		switch v := v.(type) {
		case string:
			return v, true
		case int8:
			return strconv.FormatInt(int64(v), 10), true
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), true
		}
	case dataset.Int8:
		n, ok := toInt(v, 8)
		if ok {
			return int8(n), true
		}
	case dataset.Int64:
		n, ok := toInt(v, 64)
		if ok {
			return n, true
		}
	case dataset.Float64:
		switch v := v.(type) {
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				return f, true
			}
		case int8:
			return float64(v), true
		case int64:
			return float64(v), true
		case float64:
			return v, true
		}
	}
	return nil, false
}

func toInt(v interface{}, bits int) (int64, bool) {
	switch v := v.(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, bits)
		return n, err == nil
	case int8:
		return int64(v), true
	case int64:
		if bits == 8 && (v < math.MinInt8 || v > math.MaxInt8) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
