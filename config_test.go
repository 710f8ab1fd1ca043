// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package imdbkpi_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Layers(t *testing.T) {
	c := imdbkpi.NewConfig()
	c.DataDir = "/lake"
	assert.Equal(t, "/lake/landing/imdb", c.Landing())
	assert.Equal(t, "/lake/raw/imdb", c.Raw())
	assert.Equal(t, "/lake/curated/imdb", c.Curated())

	c.RawDir = "/elsewhere/raw"
	assert.Equal(t, "/elsewhere/raw", c.Raw())
	assert.Equal(t, "/lake/curated/imdb", c.Curated())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, imdbkpi.NewConfig().Validate())

	for name, mutate := range map[string]func(c *imdbkpi.Config){
		"batch-size":  func(c *imdbkpi.Config) { c.BatchSize = 0 },
		"concurrency": func(c *imdbkpi.Config) { c.Concurrency = -1 },
		"top-n":       func(c *imdbkpi.Config) { c.KPI.TopN = 0 },
		"min-titles":  func(c *imdbkpi.Config) { c.KPI.MinTitles = 0 },
		"data-dir":    func(c *imdbkpi.Config) { c.DataDir = "" },
		"raw-dir":     func(c *imdbkpi.Config) { c.DataDir = "s3://lake" },
	} {
		t.Run(name, func(t *testing.T) {
			c := imdbkpi.NewConfig()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "got %v", err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestCmdIO_SetupLogger(t *testing.T) {
	var stderr strings.Builder
	cio := imdbkpi.NewCmdIO(nil, nil, &stderr)

	c := imdbkpi.NewConfig()
	c.LogPath = filepath.Join(t.TempDir(), "log", "imdbkpi.log")
	c.Verbose = true
	closeLog, err := cio.SetupLogger(c)
	require.NoError(t, err)
	cio.Logger().Debugf("to the file")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(c.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG: to the file")
	assert.Empty(t, stderr.String())
}

func TestWriteMetrics(t *testing.T) {
	imdbkpi.CounterRowsIngested.WithLabelValues("title.ratings").Add(3)
	path := filepath.Join(t.TempDir(), "metrics", "imdbkpi.prom")
	require.NoError(t, imdbkpi.WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `imdbkpi_rows_ingested_total{dataset="title.ratings"}`)
}

func TestVersionInfo(t *testing.T) {
	assert.True(t, strings.HasPrefix(imdbkpi.VersionInfo(), "imdbkpi "))
}
