// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/spf13/pflag"
)

// UsageError marks errors caused by how a command was invoked rather than by
// what it found; the CLI prints usage for them.
var UsageError = stderrors.New("usage error")

// BuildConfigFlags registers every Config option on flags, defaulting to the
// values already in c.
func BuildConfigFlags(flags *pflag.FlagSet, c *imdbkpi.Config) {
	flags.StringVarP(&c.DataDir, "data-dir", "d", c.DataDir, "Root of the data lake.")
	flags.StringVar(&c.LandingDir, "landing-dir", c.LandingDir, "Directory (or s3:// URL) of the downloaded .tsv.gz files. Default <data-dir>/landing/imdb.")
	flags.StringVar(&c.RawDir, "raw-dir", c.RawDir, "Directory of the raw parquet files. Default <data-dir>/raw/imdb.")
	flags.StringVar(&c.CuratedDir, "curated-dir", c.CuratedDir, "Directory of the curated parquet files. Default <data-dir>/curated/imdb.")
	flags.StringVarP(&c.Output, "output", "o", c.Output, "Workbook to write, a path or s3:// URL.")
	flags.StringSliceVar(&c.Datasets, "dataset", c.Datasets, "Dataset to process (repeatable); all when unset. One of "+strings.Join(dataset.Names(), ", ")+".")
	flags.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "Rows per columnar record batch.")
	flags.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "Datasets ingested or curated at once.")
	flags.StringVar(&c.LogPath, "log-path", c.LogPath, "Log path")
	flags.BoolVar(&c.Verbose, "verbose", c.Verbose, "Enable verbose logging")
	flags.StringVar(&c.MetricsFile, "metrics-file", c.MetricsFile, "Write prometheus metrics to this file when done.")

	// KPI
	flags.IntVar(&c.KPI.SinceYear, "kpi.since-year", c.KPI.SinceYear, "First start year of the rating trend.")
	flags.IntVar(&c.KPI.MinTitles, "kpi.min-titles", c.KPI.MinTitles, "Rated titles needed to appear in the top actors and directors.")
	flags.IntVar(&c.KPI.TopN, "kpi.top-n", c.KPI.TopN, "Length of the top actors and directors lists.")
	flags.StringVar(&c.KPI.Warehouse, "kpi.warehouse", c.KPI.Warehouse, "SQLite database the curated tables are loaded into.")

	// Fetch
	flags.StringVar(&c.Fetch.BaseURL, "fetch.base-url", c.Fetch.BaseURL, "Index page listing the dataset files.")
	flags.DurationVar((*time.Duration)(&c.Fetch.Timeout), "fetch.timeout", time.Duration(c.Fetch.Timeout), "Timeout of each download attempt.")
	flags.IntVar(&c.Fetch.Retries, "fetch.retries", c.Fetch.Retries, "Retries of a failed download.")

	// S3
	flags.StringVar(&c.S3.Region, "s3.region", c.S3.Region, "AWS region of s3:// locations.")
	flags.StringVar(&c.S3.Endpoint, "s3.endpoint", c.S3.Endpoint, "S3 compatible endpoint, e.g. a local MinIO.")
}
