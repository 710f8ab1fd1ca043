// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package warehouse loads curated Parquet files into an embedded SQLite
// database and returns query results as gota data frames.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/featurebasedb/imdbkpi/columnar"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/logger"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	_ "modernc.org/sqlite"
)

// Memory is the DSN of a private in-process database.
const Memory = ":memory:"

// Warehouse is a SQLite database holding the tables KPIs are computed from.
type Warehouse struct {
	db  *sql.DB
	Log logger.Logger
}

// Open opens (creating if needed) the database at path, or an in-memory one
// for Memory or an empty path.
func Open(ctx context.Context, path string, log logger.Logger) (*Warehouse, error) {
	if path == "" {
		path = Memory
	}
	if log == nil {
		log = logger.NopLogger
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening warehouse")
	}
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connecting to warehouse %s", path)
	}
	w := &Warehouse{db: db, Log: log}
	if err := w.Exec(ctx, "PRAGMA journal_mode = OFF"); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// DB exposes the underlying handle.
func (w *Warehouse) DB() *sql.DB { return w.db }

func (w *Warehouse) Close() error {
	return w.db.Close()
}

// Exec runs a statement that returns no rows.
func (w *Warehouse) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := w.db.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "executing %q", abbrev(query))
}

// Count returns the number of rows in table.
func (w *Warehouse) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n)
	return n, errors.Wrapf(err, "counting %s", table)
}

// Query runs a query and collects its result into a data frame, one series
// per result column. A column holding only integers (and nulls) becomes an
// Int series, one mixing integers and floats a Float series, anything else
// a String series. Nulls are NA.
func (w *Warehouse) Query(ctx context.Context, query string, args ...interface{}) (dataframe.DataFrame, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "querying %q", abbrev(query))
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "reading result columns")
	}
	vals := make([]interface{}, len(cols))
	for i := range vals {
		vals[i] = new(interface{})
	}
	data := make([][]interface{}, len(cols))
	for rows.Next() {
		if err := rows.Scan(vals...); err != nil {
			return dataframe.DataFrame{}, errors.Wrap(err, "scanning row")
		}
		for i := range vals {
			v := *(vals[i].(*interface{}))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			data[i] = append(data[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "querying %q", abbrev(query))
	}

	ser := make([]series.Series, len(cols))
	for i, col := range cols {
		ser[i] = toSeries(col.Name(), col.DatabaseTypeName(), data[i])
	}
	df := dataframe.New(ser...)
	return df, errors.Wrap(df.Err, "building frame")
}

func toSeries(name, declared string, values []interface{}) series.Series {
	typ := seriesType(declared, values)
	elems := make([]interface{}, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case nil:
			elems[i] = nil
		case int64:
			// gota elements take int, not int64
			if typ == series.Float {
				elems[i] = float64(v)
			} else if typ == series.Int {
				elems[i] = int(v)
			} else {
				elems[i] = fmt.Sprint(v)
			}
		case float64:
			if typ == series.String {
				elems[i] = fmt.Sprint(v)
			} else {
				elems[i] = v
			}
		case time.Time:
			elems[i] = v.Format(time.RFC3339)
		default:
			elems[i] = fmt.Sprint(v)
		}
	}
	if len(elems) == 0 {
		return series.New([]string{}, typ, name)
	}
	return series.New(elems, typ, name)
}

func seriesType(declared string, values []interface{}) series.Type {
	var ints, floats, others int
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64:
			ints++
		case float64:
			floats++
		default:
			others++
		}
	}
	switch {
	case others > 0:
		return series.String
	case floats > 0:
		return series.Float
	case ints > 0:
		return series.Int
	}
	// no values to go by
	switch strings.ToUpper(declared) {
	case "INTEGER", "INT", "BIGINT":
		return series.Int
	case "REAL", "FLOAT", "DOUBLE":
		return series.Float
	}
	return series.String
}

// LoadParquet replaces table with the named columns of the Parquet file at
// path (every column when none are named). Column affinities follow the
// arrow types. All rows are inserted in one transaction.
func (w *Warehouse) LoadParquet(ctx context.Context, table, path string, columns ...string) (int64, error) {
	start := time.Now()
	r, err := columnar.OpenReader(ctx, path, columnar.DefaultBatchSize, columns...)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	schema := r.Schema()

	defs := make([]string, len(schema.Fields()))
	marks := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		defs[i] = QuoteIdent(f.Name) + " " + affinity(f.Type)
		marks[i] = "?"
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning load")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return 0, errors.Wrapf(err, "dropping %s", table)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return 0, errors.Wrapf(err, "creating %s", table)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(table), strings.Join(marks, ", ")))
	if err != nil {
		return 0, errors.Wrapf(err, "preparing insert into %s", table)
	}
	defer stmt.Close()

	var n int64
	args := make([]interface{}, len(schema.Fields()))
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, err
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			for j := range args {
				v := columnar.Value(rec.Column(j), i)
				if b, ok := v.(int8); ok {
					v = int64(b)
				}
				args[j] = v
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return 0, errors.Wrapf(err, "inserting into %s", table)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "committing %s", table)
	}
	w.Log.Debugf("loaded %d rows into %s from %s in %s", n, table, path, time.Since(start).Round(time.Millisecond))
	return n, nil
}

func affinity(t arrow.DataType) string {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64, arrow.BOOL:
		return "INTEGER"
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return "REAL"
	}
	return "TEXT"
}

// QuoteIdent quotes a table or column name for SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func abbrev(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 60 {
		return query[:57] + "..."
	}
	return query
}
