// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package tsv

import "sync/atomic"

// ProgressTracker tracks the progress of record sourcing.
type ProgressTracker struct {
	progress uint64
}

// proceed is called after a record is sourced.
func (t *ProgressTracker) proceed() {
	atomic.AddUint64(&t.progress, 1)
}

// Check the number of records that have been sourced so far.
func (t *ProgressTracker) Check() uint64 {
	return atomic.LoadUint64(&t.progress)
}

// RecordSource is anything that hands out Records until io.EOF.
type RecordSource interface {
	Record() (Record, error)
}

type trackedSource struct {
	RecordSource
	t *ProgressTracker
}

func (ts *trackedSource) Record() (Record, error) {
	r, err := ts.RecordSource.Record()
	if err == nil {
		ts.t.proceed()
	}
	return r, err
}

// Track wraps src so every record it returns is counted by t.
func (t *ProgressTracker) Track(src RecordSource) RecordSource {
	return &trackedSource{src, t}
}
