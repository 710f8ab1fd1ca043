// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package imdbkpi

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricRowsIngested  = "rows_ingested_total"
	MetricRowsCurated   = "rows_curated_total"
	MetricValuesNulled  = "values_nulled_total"
	MetricKPIRows       = "kpi_rows"
	MetricStageDuration = "stage_duration_seconds"
)

// Registry holds every metric of a run. It is separate from the prometheus
// default registry so the textfile only carries pipeline metrics.
var Registry = prometheus.NewRegistry()

var CounterRowsIngested = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "imdbkpi",
		Name:      MetricRowsIngested,
		Help:      "Rows read from landing files and written to the raw layer.",
	},
	[]string{"dataset"},
)

var CounterRowsCurated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "imdbkpi",
		Name:      MetricRowsCurated,
		Help:      "Rows written to the curated layer.",
	},
	[]string{"dataset"},
)

var CounterValuesNulled = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "imdbkpi",
		Name:      MetricValuesNulled,
		Help:      "Non-null raw values that could not be cast and were stored as null.",
	},
	[]string{"dataset", "column"},
)

var GaugeKPIRows = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "imdbkpi",
		Name:      MetricKPIRows,
		Help:      "Rows in each computed KPI sheet.",
	},
	[]string{"kpi"},
)

var GaugeStageDuration = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "imdbkpi",
		Name:      MetricStageDuration,
		Help:      "Wall time of the last run of each pipeline stage.",
	},
	[]string{"stage"},
)

func init() {
	Registry.MustRegister(CounterRowsIngested)
	Registry.MustRegister(CounterRowsCurated)
	Registry.MustRegister(CounterValuesNulled)
	Registry.MustRegister(GaugeKPIRows)
	Registry.MustRegister(GaugeStageDuration)
}

// WriteMetrics writes Registry to path in the node_exporter textfile format.
func WriteMetrics(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating metrics directory")
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, Registry), "writing metrics")
}
