// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package imdbtest provides a small, fully known IMDB landing area for
// tests. The fixtures are tiny on purpose: every KPI over them can be worked
// out by hand.
package imdbtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Fixture lines per dataset, header first. Values mirror the published
// files: tab separated, \N for null, quotes kept verbatim.
var Fixtures = map[string][]string{
	"name.basics": {
		"nconst\tprimaryName\tbirthYear\tdeathYear\tprimaryProfession\tknownForTitles",
		"nm1\tAnn Actor\t1970\t\\N\tactor\ttt01,tt02",
		"nm2\tBea Actress\t1980\t\\N\tactress\ttt06",
		"nm3\tCal Actor\t19x0\t\\N\tactor\t\\N",
		"nm4\tDee Actor\t\\N\t\\N\tactor\t\\N",
		"nm5\tEve Director\t1960\t2020\tdirector\ttt01",
		"nm6\tFay Director\t1965\t\\N\tdirector\ttt04",
		"nm7\tGus Director\t\\N\t\\N\tdirector,writer\t\\N",
	},
	"title.basics": {
		"tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres",
		"tt01\tmovie\tAlpha\tAlpha\t0\t1999\t\\N\t100\tDrama,Comedy",
		"tt02\tmovie\tThe \"Quote\tThe \"Quote\t0\t2001\t\\N\t120\tDrama",
		"tt03\tmovie\tGamma\tGamma\t0\t2001\t\\N\t90\tComedy",
		"tt04\tmovie\tDelta\tDelta\t0\t2002\t\\N\t\\N\tAction",
		"tt05\tshort\tEpsilon\tEpsilon\t0\t2002\t\\N\t0\t\\N",
		"tt06\tmovie\tZeta\tZeta\t1\tabc\t\\N\t80\tDrama,Action",
		"tt07\tmovie\tEta\tEta\t0\t2001\t\\N\t110\tDrama",
	},
	"title.principals": {
		"tconst\tordering\tnconst\tcategory\tjob\tcharacters",
		"tt01\t1\tnm1\tactor\t\\N\t[\"Bob\"]",
		"tt02\t1\tnm1\tactor\t\\N\t\\N",
		"tt03\t1\tnm1\tactor\t\\N\t\\N",
		"tt07\t1\tnm1\tactor\t\\N\t\\N",
		"tt01\t2\tnm2\tactress\t\\N\t[\"Alice\"]",
		"tt02\t2\tnm2\tactress\t\\N\t\\N",
		"tt06\t1\tnm2\tactress\t\\N\t\\N",
		"tt01\t3\tnm3\tactor\t\\N\t\\N",
		"tt04\t1\tnm3\tactor\t\\N\t\\N",
		"tt05\t1\tnm4\tactor\t\\N\t\\N",
		"tt03\t2\tnm4\tactor\t\\N\t\\N",
		"tt04\t2\tnm4\tactor\t\\N\t\\N",
		"tt01\t4\tnm5\tdirector\t\\N\t\\N",
		"tt02\t3\tnm5\tdirector\t\\N\t\\N",
		"tt03\t3\tnm5\tdirector\t\\N\t\\N",
		"tt04\t3\tnm6\tdirector\t\\N\t\\N",
		"tt06\t2\tnm6\tdirector\t\\N\t\\N",
		"tt07\t2\tnm6\tdirector\t\\N\t\\N",
		"tt05\t2\tnm7\tdirector\t\\N\t\\N",
		"tt01\t5\tnm7\twriter\tscreenplay\t\\N",
	},
	"title.ratings": {
		"tconst\taverageRating\tnumVotes",
		"tt01\t8.0\t100",
		"tt02\t6.0\t300",
		"tt03\t7.0\t100",
		"tt04\t5.0\t50",
		"tt06\t9.0\t10",
		"tt07\t8.0\t10",
	},
}

// Rows returns the number of data rows in the named fixture.
func Rows(name string) int {
	return len(Fixtures[name]) - 1
}

// WriteGzipTSV writes lines, newline terminated, as a gzip file at path.
func WriteGzipTSV(tb testing.TB, path string, lines ...string) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tb.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		tb.Fatal(err)
	}
	defer f.Close()
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		tb.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatal(err)
	}
	if err := f.Close(); err != nil {
		tb.Fatal(err)
	}
}

// WriteLanding writes every fixture into dir as <name>.tsv.gz and returns
// dir.
func WriteLanding(tb testing.TB, dir string) string {
	tb.Helper()
	for name, lines := range Fixtures {
		WriteGzipTSV(tb, filepath.Join(dir, name+".tsv.gz"), lines...)
	}
	return dir
}
