// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"io"

	"github.com/featurebasedb/imdbkpi"
)

// IngestCommand copies the landing TSV files into the raw layer.
type IngestCommand struct {
	*imdbkpi.CmdIO
	Config *imdbkpi.Config
}

// NewIngestCommand returns a new instance of IngestCommand.
func NewIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *IngestCommand {
	return &IngestCommand{
		CmdIO:  imdbkpi.NewCmdIO(stdin, stdout, stderr),
		Config: imdbkpi.NewConfig(),
	}
}

// Run executes the ingest stage for the selected datasets.
func (cmd *IngestCommand) Run(ctx context.Context) error {
	p, closeLog, err := start(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()
	return p.finish(p.ingest(ctx))
}
