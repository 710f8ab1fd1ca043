// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/columnar"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/objstore"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// sampleRows is the number of rows shown by parquet-info.
const sampleRows = 10

// ParquetInfoCommand represents a command for displaying info about a parquet file
type ParquetInfoCommand struct {
	*imdbkpi.CmdIO

	// Filepath, s3:// or http(s) URL of the parquet file.
	Path string

	S3Region   string
	S3Endpoint string
}

// NewParquetInfoCommand returns a new instance of ParquetInfoCommand.
func NewParquetInfoCommand(stdin io.Reader, stdout, stderr io.Writer) *ParquetInfoCommand {
	return &ParquetInfoCommand{
		CmdIO: imdbkpi.NewCmdIO(stdin, stdout, stderr),
	}
}

// Run displays schema and samples data from a parquet file
func (cmd *ParquetInfoCommand) Run(ctx context.Context) error {
	if cmd.Path == "" {
		return fmt.Errorf("%w: a parquet file is required", UsageError)
	}
	path, cleanup, err := cmd.localCopy(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	r, err := columnar.OpenReader(ctx, path, sampleRows)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(cmd.Stdout, "Name: %v\n", cmd.Path)
	schema := r.Schema()
	st := newTable(cmd.Stdout)
	st.AppendHeader(table.Row{"#", "name", "type", "nullable"})
	for i, field := range schema.Fields() {
		st.AppendRow(table.Row{i, field.Name, field.Type, field.Nullable})
	}
	st.Render()

	fmt.Fprintf(cmd.Stdout, "Number of rows: %v\n", r.NumRows())
	fmt.Fprintln(cmd.Stdout, "Sample:")
	rt := newTable(cmd.Stdout)
	header := make(table.Row, len(schema.Fields()))
	for i, field := range schema.Fields() {
		header[i] = field.Name
	}
	rt.AppendHeader(header)
	rec, err := r.Next()
	if err != nil && err != io.EOF {
		return err
	}
	if rec != nil {
		n := int(rec.NumRows())
		if n > sampleRows {
			n = sampleRows
		}
		for i := 0; i < n; i++ {
			row := make(table.Row, rec.NumCols())
			for j := range row {
				v := columnar.Value(rec.Column(j), i)
				if v == nil {
					v = "NULL"
				}
				row[j] = v
			}
			rt.AppendRow(row)
		}
	}
	rt.Render()
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault
	return t
}

// localCopy returns a local path for cmd.Path, downloading remote files to a
// temp file which cleanup removes.
func (cmd *ParquetInfoCommand) localCopy(ctx context.Context) (string, func(), error) {
	noop := func() {}
	var body io.ReadCloser
	switch {
	case objstore.IsRemote(cmd.Path):
		rc, err := objstore.New(cmd.S3Region, cmd.S3Endpoint, cmd.Logger()).Open(ctx, cmd.Path)
		if err != nil {
			return "", noop, err
		}
		body = rc
	case isHTTP(cmd.Path):
		req, err := retryablehttp.NewRequestWithContext(ctx, "GET", cmd.Path, nil)
		if err != nil {
			return "", noop, errors.Wrap(err, "building request")
		}
		client := retryablehttp.NewClient()
		client.Logger = nil
		resp, err := client.Do(req)
		if err != nil {
			return "", noop, errors.Wrapf(err, "fetching %s", cmd.Path)
		}
		if resp.StatusCode != 200 {
			resp.Body.Close()
			return "", noop, fmt.Errorf("unexpected response %d", resp.StatusCode)
		}
		body = resp.Body
	default:
		return cmd.Path, noop, nil
	}
	defer body.Close()

	// download to temp file first
	f, err := os.CreateTemp("", "parquet-info-*.parquet")
	if err != nil {
		return "", noop, errors.Wrap(err, "creating tempfile")
	}
	cleanup := func() { os.Remove(f.Name()) }
	_, err = io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", noop, errors.Wrapf(err, "downloading %v", cmd.Path)
	}
	return f.Name(), cleanup, nil
}

func isHTTP(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && (strings.EqualFold(u.Scheme, "http") || strings.EqualFold(u.Scheme, "https"))
}
