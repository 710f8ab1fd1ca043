// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package imdbkpi

import (
	"io"

	"github.com/featurebasedb/imdbkpi/logger"
)

// CmdIO holds standard unix inputs and outputs.
type CmdIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	logger logger.Logger
	closer io.Closer
}

// NewCmdIO returns a new instance of CmdIO with inputs and outputs set to the
// arguments.
func NewCmdIO(stdin io.Reader, stdout, stderr io.Writer) *CmdIO {
	return &CmdIO{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		logger: logger.NewStandardLogger(stderr),
	}
}

func (c *CmdIO) Logger() logger.Logger {
	return c.logger
}

// SetLogger replaces the command logger.
func (c *CmdIO) SetLogger(l logger.Logger) {
	c.logger = l
}

// SetupLogger switches the logger to the log file and verbosity in cfg. The
// returned function closes the log file, if one was opened.
func (c *CmdIO) SetupLogger(cfg *Config) (func() error, error) {
	var w io.Writer = c.Stderr
	if cfg.LogPath != "" {
		fw, err := logger.NewFileWriter(cfg.LogPath)
		if err != nil {
			return nil, err
		}
		c.closer = fw
		w = fw
	}
	c.logger = logger.New(w, cfg.Verbose)
	return c.close, nil
}

func (c *CmdIO) close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}
