// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"io"

	"github.com/featurebasedb/imdbkpi"
)

// RunCommand runs ingest, curate and report in order, stopping at the first
// stage that fails.
type RunCommand struct {
	*imdbkpi.CmdIO
	Config *imdbkpi.Config

	Print bool
}

// NewRunCommand returns a new instance of RunCommand.
func NewRunCommand(stdin io.Reader, stdout, stderr io.Writer) *RunCommand {
	return &RunCommand{
		CmdIO:  imdbkpi.NewCmdIO(stdin, stdout, stderr),
		Config: imdbkpi.NewConfig(),
	}
}

func (cmd *RunCommand) Run(ctx context.Context) error {
	p, closeLog, err := start(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()
	p.log = p.log.WithPrefix("run: ")

	var out io.Writer
	if cmd.Print {
		out = cmd.Stdout
	}
	err = p.ingest(ctx)
	if err == nil {
		err = p.curate(ctx)
	}
	if err == nil {
		err = p.report(ctx, out)
	}
	return p.finish(err)
}
