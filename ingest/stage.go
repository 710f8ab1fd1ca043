// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ingest

import (
	"context"
	"io"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/columnar"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/logger"
	"github.com/featurebasedb/imdbkpi/objstore"
	"github.com/featurebasedb/imdbkpi/tsv"
	"golang.org/x/sync/errgroup"
)

// Result describes one written raw file.
type Result struct {
	Dataset string
	Path    string
	Rows    int64
	Elapsed time.Duration
}

// Ingester runs the landing to raw stage.
type Ingester struct {
	LandingDir  string
	RawDir      string
	BatchSize   int
	Concurrency int

	Store *objstore.Store
	Log   logger.Logger
}

// NewIngester returns an Ingester reading local landing files.
func NewIngester(landingDir, rawDir string) *Ingester {
	return &Ingester{
		LandingDir:  landingDir,
		RawDir:      rawDir,
		BatchSize:   columnar.DefaultBatchSize,
		Concurrency: 1,
		Store:       objstore.New("", "", nil),
		Log:         logger.NopLogger,
	}
}

// Run ingests datasets, Concurrency at a time. The first failure cancels
// the datasets still running and is returned. Results are in the order of
// datasets.
func (in *Ingester) Run(ctx context.Context, datasets []dataset.Dataset) ([]Result, error) {
	results := make([]Result, len(datasets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(in.Concurrency, 1))
	for i, ds := range datasets {
		i, ds := i, ds
		g.Go(func() error {
			res, err := in.Dataset(ctx, ds)
			if err != nil {
				return errors.Wrapf(err, "ingesting %s", ds.Name)
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

// Dataset converts the landing file of ds into its raw Parquet file.
func (in *Ingester) Dataset(ctx context.Context, ds dataset.Dataset) (Result, error) {
	start := time.Now()
	src := objstore.Join(in.LandingDir, ds.Landing)
	dst := objstore.Join(in.RawDir, ds.Raw)
	log := in.Log.WithPrefix(ds.Name + ": ")

	rc, err := in.Store.Open(ctx, src)
	if err != nil {
		return Result{}, errors.Wrapf(err, "opening landing file %s", src)
	}
	source, err := tsv.NewSource(src, rc, log)
	if err != nil {
		return Result{}, err
	}
	defer source.Close()

	w, err := columnar.NewWriter(dst, RawSchema(source.Header()), in.BatchSize)
	if err != nil {
		return Result{}, err
	}
	defer w.Abort()

	var tracker tsv.ProgressTracker
	records := tracker.Track(source)
	for {
		rec, err := records.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			return Result{}, err
		}
		if err := w.Append(rec.Data()); err != nil {
			return Result{}, errors.Wrapf(err, "line %d", source.Line())
		}
		if n := tracker.Check(); n%uint64(in.batchSize()) == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			log.Debugf("%d rows read", n)
		}
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	res := Result{Dataset: ds.Name, Path: dst, Rows: w.Rows(), Elapsed: time.Since(start)}
	imdbkpi.CounterRowsIngested.WithLabelValues(ds.Name).Add(float64(res.Rows))
	log.Infof("wrote %d rows to %s in %s", res.Rows, res.Path, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (in *Ingester) batchSize() int {
	if in.BatchSize <= 0 {
		return columnar.DefaultBatchSize
	}
	return in.BatchSize
}

// RawSchema types every header column as a nullable string.
func RawSchema(header []string) *arrow.Schema {
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
