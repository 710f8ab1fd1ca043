// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"

	"github.com/featurebasedb/imdbkpi/ctl"
	"github.com/spf13/cobra"
)

func newFetchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewFetchCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the IMDB dataset files into the landing directory.",
		Long: `
Reads the dataset index page, then downloads each selected .tsv.gz file
into the landing directory. Files whose size already matches the published
one are skipped unless --force is given.
`,
		Args: cobra.NoArgs,
		RunE: usageErrorWrapper(c),
	}
	flags := cmd.Flags()
	ctl.BuildConfigFlags(flags, c.Config)
	flags.BoolVar(&c.Force, "force", false, "Download files which are already present.")
	return cmd
}

func newIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewIngestCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Convert landing .tsv.gz files into raw parquet files.",
		Long: `
Reads each selected landing file and writes it unchanged to the raw layer
as parquet. Every column is stored as a nullable string and \N becomes null.
`,
		Args: cobra.NoArgs,
		RunE: usageErrorWrapper(c),
	}
	ctl.BuildConfigFlags(cmd.Flags(), c.Config)
	return cmd
}

func newCurateCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewCurateCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Cast raw parquet files into typed curated parquet files.",
		Long: `
Reads each selected raw file, casts the numeric columns and writes the
curated layer. Values which cannot be cast are stored as null and counted.
`,
		Args: cobra.NoArgs,
		RunE: usageErrorWrapper(c),
	}
	ctl.BuildConfigFlags(cmd.Flags(), c.Config)
	return cmd
}

func newReportCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewReportCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the KPIs from the curated layer and write the workbook.",
		Long: `
Loads the four curated tables into SQLite, computes every KPI and writes
one worksheet per KPI to --output. The report always reads every curated
table, whatever --dataset says.
`,
		Args: cobra.NoArgs,
		RunE: usageErrorWrapper(c),
	}
	flags := cmd.Flags()
	ctl.BuildConfigFlags(flags, c.Config)
	flags.BoolVar(&c.Print, "print", false, "Also print the KPI tables to stdout.")
	return cmd
}

func newRunCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewRunCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, curate and report in order.",
		Long: `
Runs the whole pipeline over files already in the landing directory,
stopping at the first stage which fails.
`,
		Args: cobra.NoArgs,
		RunE: usageErrorWrapper(c),
	}
	flags := cmd.Flags()
	ctl.BuildConfigFlags(flags, c.Config)
	flags.BoolVar(&c.Print, "print", false, "Also print the KPI tables to stdout.")
	return cmd
}
