// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package report

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

const nullValue = "NULL"

// Print renders every sheet as a text table, each preceded by its name.
func Print(w io.Writer, sheets []Sheet) error {
	for _, s := range sheets {
		if _, err := fmt.Fprintf(w, "%s (%d rows)\n", s.Name, s.Frame.Nrow()); err != nil {
			return err
		}
		PrintFrame(w, s.Frame)
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// PrintFrame renders one frame as a text table.
func PrintFrame(w io.Writer, df dataframe.DataFrame) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	names := df.Names()
	header := make(table.Row, len(names))
	for i, n := range names {
		header[i] = n
	}
	t.AppendHeader(header)
	for r := 0; r < df.Nrow(); r++ {
		row := make(table.Row, len(names))
		for i, n := range names {
			v := cellValue(df.Col(n), r)
			// go-pretty doesn't expect nil values.
			if v == nil {
				v = nullValue
			}
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.Render()
}
