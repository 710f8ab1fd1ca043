// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"io"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/fetch"
)

// FetchCommand downloads the published dataset files into the landing
// directory.
type FetchCommand struct {
	*imdbkpi.CmdIO
	Config *imdbkpi.Config

	// Force downloads files whose local size already matches.
	Force bool
}

// NewFetchCommand returns a new instance of FetchCommand.
func NewFetchCommand(stdin io.Reader, stdout, stderr io.Writer) *FetchCommand {
	return &FetchCommand{
		CmdIO:  imdbkpi.NewCmdIO(stdin, stdout, stderr),
		Config: imdbkpi.NewConfig(),
	}
}

func (cmd *FetchCommand) Run(ctx context.Context) error {
	p, closeLog, err := start(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()

	return p.finish(p.timed("fetch", func() error {
		cfg := cmd.Config
		f := fetch.NewFetcher(cfg.Fetch.BaseURL, cfg.Landing(), cfg.Fetch.Retries, cfg.Fetch.Timeout.Std(), p.log.WithPrefix("fetch: "))
		f.Force = cmd.Force
		f.Store = p.store
		_, err := f.Run(ctx, p.datasets)
		return err
	}))
}
