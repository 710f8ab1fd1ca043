// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"io"

	"github.com/featurebasedb/imdbkpi"
)

// ReportCommand computes the KPIs from the curated layer and writes the
// workbook.
type ReportCommand struct {
	*imdbkpi.CmdIO
	Config *imdbkpi.Config

	// Print also renders every KPI as a table on stdout.
	Print bool
}

// NewReportCommand returns a new instance of ReportCommand.
func NewReportCommand(stdin io.Reader, stdout, stderr io.Writer) *ReportCommand {
	return &ReportCommand{
		CmdIO:  imdbkpi.NewCmdIO(stdin, stdout, stderr),
		Config: imdbkpi.NewConfig(),
	}
}

func (cmd *ReportCommand) Run(ctx context.Context) error {
	p, closeLog, err := start(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()
	var out io.Writer
	if cmd.Print {
		out = cmd.Stdout
	}
	return p.finish(p.report(ctx, out))
}
