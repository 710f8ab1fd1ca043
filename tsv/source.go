// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package tsv reads the tab separated files IMDB publishes.
//
// The files are not CSV: fields are separated by a single TAB, quote
// characters carry no meaning (titles contain unbalanced quotes) and the two
// characters \N mark a null value.
package tsv

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/logger"
	"github.com/klauspost/compress/gzip"
)

// Null is the marker IMDB uses for a missing value.
const Null = `\N`

var gzipMagic = []byte{0x1f, 0x8b}

// Source produces one Record per data line of a TSV stream. The stream may
// be gzip compressed; this is detected from its first bytes.
type Source struct {
	Name string
	Log  logger.Logger

	rc     io.ReadCloser
	gz     *gzip.Reader
	r      *bufio.Reader
	header []string
	line   int
	rec    Record
}

// Record is one data line. The slice returned from Data is reused by the
// next call to Source.Record.
type Record struct {
	data []interface{}
}

// Data returns the line's values in header order: a string, or nil for \N.
func (r Record) Data() []interface{} {
	return r.data
}

// NewSource reads the header line of rc. name is only used in messages. The
// Source takes ownership of rc.
func NewSource(name string, rc io.ReadCloser, log logger.Logger) (*Source, error) {
	if log == nil {
		log = logger.NopLogger
	}
	s := &Source{Name: name, Log: log, rc: rc}

	br := bufio.NewReaderSize(rc, 1<<20)
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		rc.Close()
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if bytes.Equal(magic, gzipMagic) {
		s.gz, err = gzip.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, errors.Wrapf(err, "opening gzip stream %s", name)
		}
		br = bufio.NewReaderSize(s.gz, 1<<20)
	}
	s.r = br

	line, err := s.readLine()
	if err == io.EOF {
		s.Close()
		return nil, errors.Newf(errors.ErrEmptyInput, "%s: no header line", name)
	} else if err != nil {
		s.Close()
		return nil, err
	}
	s.header = strings.Split(line, "\t")
	for i, h := range s.header {
		s.header[i] = strings.TrimSpace(h)
	}
	s.rec.data = make([]interface{}, len(s.header))
	s.Log.Debugf("%s: header %v", name, s.header)
	return s, nil
}

// Header returns the column names from the first line.
func (s *Source) Header() []string {
	return s.header
}

// Line returns the number of the last line read, counting the header as 1.
func (s *Source) Line() int {
	return s.line
}

// Record returns the next data line, or io.EOF after the last one. A line
// whose field count differs from the header's fails with ErrMalformedRow.
func (s *Source) Record() (Record, error) {
	for {
		line, err := s.readLine()
		if err != nil {
			return Record{}, err
		}
		if line == "" {
			// blank lines carry no row
			continue
		}
		n := strings.Count(line, "\t") + 1
		if n != len(s.header) {
			return Record{}, errors.Newf(errors.ErrMalformedRow,
				"%s: line %d has %d fields, header has %d", s.Name, s.line, n, len(s.header))
		}
		for i := range s.rec.data {
			var val string
			if j := strings.IndexByte(line, '\t'); j >= 0 {
				val, line = line[:j], line[j+1:]
			} else {
				val = line
			}
			if val == Null {
				s.rec.data[i] = nil
			} else {
				s.rec.data[i] = val
			}
		}
		return s.rec, nil
	}
}

// readLine returns the next line without its line terminator. A final line
// lacking a newline is still returned; io.EOF follows it.
func (s *Source) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", errors.Wrapf(err, "reading %s", s.Name)
		}
		if line == "" {
			return "", io.EOF
		}
	}
	s.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Close releases the underlying stream.
func (s *Source) Close() error {
	var err error
	if s.gz != nil {
		err = s.gz.Close()
	}
	if cerr := s.rc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
