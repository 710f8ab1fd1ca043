// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package dataset describes the four IMDB reference tables handled by the
// pipeline: where each one lives in every layer and which of its columns
// are cast during curation.
package dataset

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/featurebasedb/imdbkpi/errors"
)

// Kind is the curated type of a column.
type Kind int

const (
	String Kind = iota
	Int8
	Int64
	Float64
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int8:
		return "int8"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ArrowType returns the arrow data type a column of this kind is stored as.
func (k Kind) ArrowType() arrow.DataType {
	switch k {
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// Column is a column of a reference table with its curated type.
type Column struct {
	Name string
	Type Kind
}

// Dataset is one IMDB reference table.
type Dataset struct {
	// Name is the dataset's published name, e.g. "title.basics".
	Name string
	// Landing, Raw and Curated are file names within each layer directory.
	Landing string
	Raw     string
	Curated string
	// Columns lists the published columns in file order.
	Columns []Column
}

// CuratedSchema returns the arrow schema of the curated file. Every column
// is nullable.
func (d Dataset) CuratedSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(d.Columns))
	for i, c := range d.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type.ArrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Column returns the named column.
func (d Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Casts returns the columns which are not kept as strings.
func (d Dataset) Casts() []Column {
	var out []Column
	for _, c := range d.Columns {
		if c.Type != String {
			out = append(out, c)
		}
	}
	return out
}

func newDataset(name string, cols ...Column) Dataset {
	base := strings.ReplaceAll(name, ".", "_")
	return Dataset{
		Name:    name,
		Landing: name + ".tsv.gz",
		Raw:     base + ".parquet",
		Curated: base + "_curated.parquet",
		Columns: cols,
	}
}

func str(name string) Column { return Column{Name: name, Type: String} }
func i8(name string) Column { return Column{Name: name, Type: Int8} }
func i64(name string) Column { return Column{Name: name, Type: Int64} }
func f64(name string) Column { return Column{Name: name, Type: Float64} }

var (
	NameBasics = newDataset("name.basics",
		str("nconst"), str("primaryName"), i64("birthYear"), i64("deathYear"),
		str("primaryProfession"), str("knownForTitles"))

	TitleBasics = newDataset("title.basics",
		str("tconst"), str("titleType"), str("primaryTitle"), str("originalTitle"),
		i8("isAdult"), i64("startYear"), i64("endYear"), i64("runtimeMinutes"), str("genres"))

	TitlePrincipals = newDataset("title.principals",
		str("tconst"), i64("ordering"), str("nconst"), str("category"), str("job"), str("characters"))

	TitleRatings = newDataset("title.ratings",
		str("tconst"), f64("averageRating"), i64("numVotes"))
)

var all = []Dataset{NameBasics, TitleBasics, TitlePrincipals, TitleRatings}

// All returns every dataset in pipeline order.
func All() []Dataset {
	return append([]Dataset(nil), all...)
}

// Lookup returns the dataset with the given published name.
func Lookup(name string) (Dataset, error) {
	for _, d := range all {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, errors.Newf(errors.ErrUnknownDataset, "unknown dataset %q (expected one of %s)", name, strings.Join(Names(), ", "))
}

// Names returns the published names of every dataset.
func Names() []string {
	names := make([]string, len(all))
	for i, d := range all {
		names[i] = d.Name
	}
	return names
}

// Select returns the named datasets in pipeline order, or every dataset when
// names is empty. Duplicates are ignored.
func Select(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return All(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, err := Lookup(n); err != nil {
			return nil, err
		}
		want[n] = true
	}
	var out []Dataset
	for _, d := range all {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out, nil
}
