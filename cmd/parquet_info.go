// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"io"

	"github.com/featurebasedb/imdbkpi/ctl"
	"github.com/spf13/cobra"
)

func newParquetInfoCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := ctl.NewParquetInfoCommand(stdin, stdout, stderr)
	cmd := &cobra.Command{
		Use:   "parquet-info PATH",
		Short: "Show the schema and a sample of a parquet file.",
		Long: `
Prints the schema, row count and first rows of a raw or curated file.
PATH may be a local file, an s3:// URL or an http(s) URL.
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("parquet file path required")
			} else if len(args) > 1 {
				return fmt.Errorf("too many command line arguments")
			}
			c.Path = args[0]
			return nil
		},
		RunE: usageErrorWrapper(c),
	}
	flags := cmd.Flags()
	flags.StringVar(&c.S3Region, "s3.region", "us-east-1", "AWS region of s3:// paths.")
	flags.StringVar(&c.S3Endpoint, "s3.endpoint", "", "S3 compatible endpoint.")
	return cmd
}
