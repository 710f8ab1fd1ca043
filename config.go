// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package imdbkpi

import (
	"path/filepath"
	"time"

	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/objstore"
	"github.com/featurebasedb/imdbkpi/toml"
)

// Config represents the configuration shared by every imdbkpi command.
type Config struct {
	// DataDir is the root of the data lake. The landing, raw and curated
	// directories default to <data-dir>/{landing,raw,curated}/imdb.
	DataDir    string `toml:"data-dir"`
	LandingDir string `toml:"landing-dir"`
	RawDir     string `toml:"raw-dir"`
	CuratedDir string `toml:"curated-dir"`

	// Output is the workbook path, local or s3://bucket/key.
	Output string `toml:"output"`

	// Datasets narrows a run to a subset of the reference tables. Empty
	// means all of them.
	Datasets []string `toml:"dataset"`

	// BatchSize is the number of rows per columnar record batch.
	BatchSize int `toml:"batch-size"`

	// Concurrency is the number of datasets processed at once by ingest and
	// curate.
	Concurrency int `toml:"concurrency"`

	// LogPath configures where logs are written; stderr when empty.
	LogPath string `toml:"log-path"`

	// Verbose toggles debug logging.
	Verbose bool `toml:"verbose"`

	// MetricsFile, when set, receives the run's prometheus metrics in text
	// exposition format once a command finishes.
	MetricsFile string `toml:"metrics-file"`

	KPI struct {
		SinceYear int `toml:"since-year"`
		MinTitles int `toml:"min-titles"`
		TopN      int `toml:"top-n"`
		// Warehouse is the SQLite database the curated tables are loaded
		// into; ":memory:" keeps it in process.
		Warehouse string `toml:"warehouse"`
	} `toml:"kpi"`

	Fetch struct {
		BaseURL string        `toml:"base-url"`
		Timeout toml.Duration `toml:"timeout"`
		Retries int           `toml:"retries"`
	} `toml:"fetch"`

	S3 struct {
		Region   string `toml:"region"`
		Endpoint string `toml:"endpoint"`
	} `toml:"s3"`
}

// NewConfig returns an instance of Config with default options.
func NewConfig() *Config {
	c := &Config{
		DataDir:     "datalake",
		Output:      filepath.Join("kpis", "kpis_imdb.xlsx"),
		Datasets:    []string{},
		BatchSize:   64 * 1024,
		Concurrency: 1,
	}
	c.KPI.SinceYear = 2000
	c.KPI.MinTitles = 3
	c.KPI.TopN = 20
	c.KPI.Warehouse = ":memory:"

	c.Fetch.BaseURL = "https://datasets.imdbws.com/"
	c.Fetch.Timeout = toml.Duration(10 * time.Minute)
	c.Fetch.Retries = 4

	c.S3.Region = "us-east-1"
	return c
}

// Landing returns the directory holding the downloaded .tsv.gz files.
func (c *Config) Landing() string {
	return c.layer(c.LandingDir, "landing")
}

// Raw returns the directory holding the ingested columnar files.
func (c *Config) Raw() string {
	return c.layer(c.RawDir, "raw")
}

// Curated returns the directory holding the type-normalized columnar files.
func (c *Config) Curated() string {
	return c.layer(c.CuratedDir, "curated")
}

func (c *Config) layer(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return objstore.Join(c.DataDir, name, "imdb")
}

// Validate checks the options which have no sensible fallback.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.Newf(errors.ErrInvalidConfig, "batch-size must be positive, got %d", c.BatchSize)
	case c.Concurrency <= 0:
		return errors.Newf(errors.ErrInvalidConfig, "concurrency must be positive, got %d", c.Concurrency)
	case c.KPI.TopN <= 0:
		return errors.Newf(errors.ErrInvalidConfig, "kpi.top-n must be positive, got %d", c.KPI.TopN)
	case c.KPI.MinTitles <= 0:
		return errors.Newf(errors.ErrInvalidConfig, "kpi.min-titles must be positive, got %d", c.KPI.MinTitles)
	case c.DataDir == "" && (c.LandingDir == "" || c.RawDir == "" || c.CuratedDir == ""):
		return errors.New(errors.ErrInvalidConfig, "data-dir is required unless every layer directory is set")
	case objstore.IsRemote(c.Raw()) || objstore.IsRemote(c.Curated()):
		// parquet files are written and read back in place
		return errors.New(errors.ErrInvalidConfig, "raw-dir and curated-dir must be local directories")
	}
	return nil
}
