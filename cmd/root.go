// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/featurebasedb/imdbkpi"
	"github.com/featurebasedb/imdbkpi/ctl"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// runner is any ctl command.
type runner interface {
	Run(context.Context) error
}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "imdbkpi",
		Short: "imdbkpi builds KPI reports from the public IMDB datasets.",
		Long: `imdbkpi builds KPI reports from the public IMDB datasets.

It moves the four reference tables through a small data lake:
the downloaded .tsv.gz files are ingested into raw parquet files,
cast into typed curated parquet files, and finally queried into
an Excel workbook with one sheet per KPI.

Every flag may also be given in a TOML config file (--config) or
as an environment variable, e.g. IMDBKPI_KPI_TOP_N=50.

` + imdbkpi.VersionInfo() + "\n",
		Version:       imdbkpi.VersionInfo(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			err := setAllConfig(v, cmd.Flags(), "IMDBKPI")
			if err != nil {
				return err
			}

			// return "dry run" error if "dry-run" flag is set
			ret, err := cmd.Flags().GetBool("dry-run")
			if err != nil {
				return fmt.Errorf("problem getting dry-run flag: %v", err)
			}
			if ret {
				if cmd.Parent() != nil {
					return fmt.Errorf("dry run")
				}
			}

			return nil
		},
	}
	rc.PersistentFlags().Bool("dry-run", false, "stop before executing")
	_ = rc.PersistentFlags().MarkHidden("dry-run")
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newFetchCommand(stdin, stdout, stderr))
	rc.AddCommand(newIngestCommand(stdin, stdout, stderr))
	rc.AddCommand(newCurateCommand(stdin, stdout, stderr))
	rc.AddCommand(newReportCommand(stdin, stdout, stderr))
	rc.AddCommand(newRunCommand(stdin, stdout, stderr))
	rc.AddCommand(newParquetInfoCommand(stdin, stdout, stderr))
	rc.AddCommand(newGenerateConfigCommand(stdin, stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// usageErrorWrapper runs c, printing the command's usage only when the
// failure was caused by how it was invoked.
func usageErrorWrapper(c runner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return considerUsageError(cmd, c.Run(context.Background()))
	}
}

func considerUsageError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, ctl.UsageError) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", cmd.UsageString())
	}
	return err
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a config file (if specified), and applies the configuration
// in that priority order. Since each flag in the set contains a pointer to
// where its value should be stored, setAllConfig can directly modify the value
// of each config variable.
//
// setAllConfig looks for environment variables which are capitalized versions
// of the flag names with dashes and dots replaced by underscores, and prefixed
// with envPrefix plus an underscore.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	// add cmd line flag def to viper
	err := v.BindPFlags(flags)
	if err != nil {
		return err
	}

	// add env to viper
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	c := v.GetString("config")
	var flagErr error
	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	// add config file to viper
	if c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		err := v.ReadInConfig()
		if err != nil {
			return fmt.Errorf("%w: reading configuration file '%s': %v", ctl.UsageError, c, err)
		}

		for _, key := range v.AllKeys() {
			if _, ok := validTags[key]; !ok {
				return fmt.Errorf("%w: invalid option in configuration file: %v", ctl.UsageError, key)
			}
		}
	}

	// set all values from viper
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil {
			return
		}
		if f.Changed {
			// Flags are the highest priority. Setting a stringSlice again
			// would append to the value rather than replace it.
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			// v.GetString returns "" for a real TOML array, so join the
			// elements back into the comma separated form the flag parses.
			vss := v.GetStringSlice(f.Name)
			value = strings.Join(vss, ",")
			if value == "" {
				return
			}
		} else {
			value = v.GetString(f.Name)
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = fmt.Errorf("%w: invalid value %q for %s: %v", ctl.UsageError, value, f.Name, err)
		}
	})
	return flagErr
}
