// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package ingest copies the landing TSV files into the raw columnar layer.
// Values are kept exactly as published: every column is a nullable string.
//
// It is the first of the three stages, which together are:
// 1. ingest: open each <landing>/<name>.tsv.gz, split it on tabs and write <raw>/<name>.parquet
// 2. curate: cast the numeric columns of each raw file into <curated>/<name>_curated.parquet
// 3. report: load the curated files into SQLite, run one query per KPI and write the workbook
//
// Stages only share file paths, so any of them can be rerun on its own.
package ingest
