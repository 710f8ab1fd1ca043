// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileWriter appends log lines to a file which can be reopened after it has
// been rotated away.
type FileWriter struct {
	mu   sync.Mutex // guards f
	f    *os.File
	mode os.FileMode
	name string
}

// NewFileWriter opens name for appending, creating it and its directory
// when needed.
func NewFileWriter(name string) (*FileWriter, error) {
	w := &FileWriter{name: name, mode: 0o600}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating log directory")
	}
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWriter) reopen() error {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	f, err := os.OpenFile(w.name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, w.mode)
	if err != nil {
		return errors.Wrapf(err, "opening log file %s", w.name)
	}
	w.f = f
	return nil
}

// Reopen closes and reopens the file by name.
func (w *FileWriter) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reopen()
}

// Write implements io.Writer.
func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return 0, os.ErrClosed
	}
	return w.f.Write(p)
}

// Close implements io.Closer.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
