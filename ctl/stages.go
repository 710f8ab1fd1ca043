// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/curate"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/ingest"
	"github.com/featurebasedb/imdbkpi/kpi"
	"github.com/featurebasedb/imdbkpi/logger"
	"github.com/featurebasedb/imdbkpi/objstore"
	"github.com/featurebasedb/imdbkpi/report"
	"github.com/featurebasedb/imdbkpi/warehouse"
)

// pipeline holds what every stage of one command invocation shares.
type pipeline struct {
	cfg      *imdbkpi.Config
	log      logger.Logger
	store    *objstore.Store
	datasets []dataset.Dataset
}

// start validates cfg, switches cio to the configured logger and resolves the
// selected datasets. The returned function closes the log file.
func start(cio *imdbkpi.CmdIO, cfg *imdbkpi.Config) (*pipeline, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", UsageError, err)
	}
	datasets, err := dataset.Select(cfg.Datasets)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", UsageError, err)
	}
	closeLog, err := cio.SetupLogger(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "setting up logger")
	}
	log := cio.Logger()
	return &pipeline{
		cfg:      cfg,
		log:      log,
		store:    objstore.New(cfg.S3.Region, cfg.S3.Endpoint, log),
		datasets: datasets,
	}, closeLog, nil
}

// timed runs fn and records its wall time for stage.
func (p *pipeline) timed(stage string, fn func() error) error {
	began := time.Now()
	err := fn()
	elapsed := time.Since(began)
	imdbkpi.GaugeStageDuration.WithLabelValues(stage).Set(elapsed.Seconds())
	if err == nil {
		p.log.Infof("%s: done in %s", stage, elapsed.Round(time.Millisecond))
	}
	return err
}

// finish writes the metrics file, if configured.
func (p *pipeline) finish(err error) error {
	if p.cfg.MetricsFile != "" {
		if merr := imdbkpi.WriteMetrics(p.cfg.MetricsFile); merr != nil {
			p.log.Errorf("writing metrics: %v", merr)
			if err == nil {
				err = merr
			}
		}
	}
	return err
}

func (p *pipeline) ingest(ctx context.Context) error {
	return p.timed("ingest", func() error {
		in := ingest.NewIngester(p.cfg.Landing(), p.cfg.Raw())
		in.BatchSize = p.cfg.BatchSize
		in.Concurrency = p.cfg.Concurrency
		in.Store = p.store
		in.Log = p.log.WithPrefix("ingest: ")
		_, err := in.Run(ctx, p.datasets)
		return err
	})
}

func (p *pipeline) curate(ctx context.Context) error {
	return p.timed("curate", func() error {
		c := curate.NewCurator(p.cfg.Raw(), p.cfg.Curated())
		c.BatchSize = p.cfg.BatchSize
		c.Concurrency = p.cfg.Concurrency
		c.Log = p.log.WithPrefix("curate: ")
		_, err := c.Run(ctx, p.datasets)
		return err
	})
}

// report loads every curated table (KPIs need all four regardless of
// --dataset), computes the KPIs and writes the workbook. When out is not
// nil the KPI tables are also rendered to out.
func (p *pipeline) report(ctx context.Context, out io.Writer) error {
	return p.timed("report", func() error {
		log := p.log.WithPrefix("report: ")
		wh, err := warehouse.Open(ctx, p.cfg.KPI.Warehouse, log)
		if err != nil {
			return err
		}
		defer wh.Close()

		if err := kpi.Load(ctx, wh, p.cfg.Curated()); err != nil {
			return err
		}
		results, err := kpi.Compute(ctx, wh, kpi.Params{
			SinceYear: p.cfg.KPI.SinceYear,
			MinTitles: p.cfg.KPI.MinTitles,
			TopN:      p.cfg.KPI.TopN,
		})
		if err != nil {
			return err
		}
		sheets := make([]report.Sheet, len(results))
		for i, r := range results {
			sheets[i] = report.Sheet{Name: r.Name, Frame: r.Frame}
		}
		if err := report.WriteFile(ctx, p.store, p.cfg.Output, sheets); err != nil {
			return err
		}
		log.Infof("wrote %d sheets to %s", len(sheets), p.cfg.Output)
		if out != nil {
			return report.Print(out, sheets)
		}
		return nil
	})
}
