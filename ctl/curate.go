// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"io"

	"github.com/featurebasedb/imdbkpi"
)

// CurateCommand casts the raw files into the curated layer.
type CurateCommand struct {
	*imdbkpi.CmdIO
	Config *imdbkpi.Config
}

// NewCurateCommand returns a new instance of CurateCommand.
func NewCurateCommand(stdin io.Reader, stdout, stderr io.Writer) *CurateCommand {
	return &CurateCommand{
		CmdIO:  imdbkpi.NewCmdIO(stdin, stdout, stderr),
		Config: imdbkpi.NewConfig(),
	}
}

// Run executes the curate stage for the selected datasets.
func (cmd *CurateCommand) Run(ctx context.Context) error {
	p, closeLog, err := start(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()
	return p.finish(p.curate(ctx))
}
