// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package report exports KPI frames to a workbook with one worksheet per
// KPI.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/objstore"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// MaxSheetName is the longest sheet name spreadsheet applications accept.
const MaxSheetName = 31

const defaultSheet = "Sheet1"

// Sheet is one worksheet to write.
type Sheet struct {
	Name  string
	Frame dataframe.DataFrame
}

var sheetNameReplacer = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_", "[", "_", "]", "_")

// SheetName makes name usable as a worksheet name: forbidden characters
// become underscores, a leading or trailing apostrophe is dropped and the
// result is cut to MaxSheetName characters. An empty name becomes "Sheet".
func SheetName(name string) string {
	name = sheetNameReplacer.Replace(name)
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > MaxSheetName {
		name = string(r[:MaxSheetName])
	}
	if name == "" {
		return "Sheet"
	}
	return name
}

// SheetNames applies SheetName to every name and makes the results unique,
// ignoring case, by appending _2, _3, ... to later duplicates.
func SheetNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		base := SheetName(name)
		candidate := base
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			r := []rune(base)
			if len(r)+len(suffix) > MaxSheetName {
				r = r[:MaxSheetName-len(suffix)]
			}
			candidate = string(r) + suffix
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

// Write encodes sheets as an xlsx workbook to w, in order. Each sheet has a
// bold header row followed by the frame's rows; NA cells are left empty.
func Write(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	names = SheetNames(names)

	keepDefault := len(sheets) == 0
	for i, s := range sheets {
		if strings.EqualFold(names[i], defaultSheet) {
			keepDefault = true
		}
		if err := writeSheet(f, names[i], s.Frame, header); err != nil {
			return errors.Wrapf(err, "writing sheet %s", names[i])
		}
	}
	if !keepDefault {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return errors.Wrap(err, "removing default sheet")
		}
	}
	if len(sheets) > 0 {
		idx, err := f.GetSheetIndex(names[0])
		if err != nil {
			return errors.Wrap(err, "finding first sheet")
		}
		f.SetActiveSheet(idx)
	}
	return errors.Wrap(f.Write(w), "encoding workbook")
}

func writeSheet(f *excelize.File, name string, df dataframe.DataFrame, headerStyle int) error {
	if df.Err != nil {
		return df.Err
	}
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}

	cols := df.Names()
	row := make([]interface{}, len(cols))
	for i, c := range cols {
		row[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", row); err != nil {
		return err
	}

	ser := make([]series.Series, len(cols))
	for i, c := range cols {
		ser[i] = df.Col(c)
	}
	for r := 0; r < df.Nrow(); r++ {
		row := make([]interface{}, len(cols))
		for i, s := range ser {
			row[i] = cellValue(s, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// cellValue returns the typed value of s at row i, nil for NA.
func cellValue(s series.Series, i int) interface{} {
	e := s.Elem(i)
	if e.IsNA() {
		return nil
	}
	switch s.Type() {
	case series.Int:
		if n, err := e.Int(); err == nil {
			return n
		}
		return nil
	case series.Float:
		return e.Float()
	case series.Bool:
		if b, err := e.Bool(); err == nil {
			return b
		}
		return nil
	}
	return e.String()
}

// WriteFile writes the workbook to path, a local file (created atomically,
// with its directories) or an s3:// URL.
func WriteFile(ctx context.Context, store *objstore.Store, path string, sheets []Sheet) error {
	var buf bytes.Buffer
	if err := Write(&buf, sheets); err != nil {
		return err
	}
	return store.Put(ctx, path, &buf)
}
