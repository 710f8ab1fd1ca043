// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package fetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const index = `<html><body><ul>
<li><a href="https://example.invalid/other.txt">other</a></li>
<li><a href="title.ratings.tsv.gz">title.ratings.tsv.gz</a></li>
<li><a href="/files/name.basics.tsv.gz">name.basics.tsv.gz</a></li>
</ul></body></html>`

type server struct {
	*httptest.Server
	downloads int32
	failures  int32
}

func newServer(t *testing.T) *server {
	s := &server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, index)
	})
	mux.HandleFunc("/title.ratings.tsv.gz", func(w http.ResponseWriter, r *http.Request) {
		// the first attempt fails to exercise retries
		if atomic.AddInt32(&s.failures, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		atomic.AddInt32(&s.downloads, 1)
		w.Header().Set("Content-Length", "7")
		w.Write([]byte("ratings"))
	})
	mux.HandleFunc("/files/name.basics.tsv.gz", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.downloads, 1)
		w.Header().Set("Content-Length", "5")
		w.Write([]byte("names"))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newFetcher(srv *server, dir string) *fetch.Fetcher {
	f := fetch.NewFetcher(srv.URL+"/", dir, 3, 5*time.Second, nil)
	f.HTTP.RetryWaitMin = time.Millisecond
	f.HTTP.RetryWaitMax = 5 * time.Millisecond
	return f
}

func TestIndex(t *testing.T) {
	srv := newServer(t)
	links, err := newFetcher(srv, t.TempDir()).Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"title.ratings.tsv.gz": srv.URL + "/title.ratings.tsv.gz",
		"name.basics.tsv.gz":   srv.URL + "/files/name.basics.tsv.gz",
	}, links)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	dir := t.TempDir()
	f := newFetcher(srv, dir)
	datasets := []dataset.Dataset{dataset.NameBasics, dataset.TitleRatings}

	results, err := f.Run(ctx, datasets)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(5), results[0].Bytes)
	assert.False(t, results[0].Skipped)
	b, err := os.ReadFile(filepath.Join(dir, "title.ratings.tsv.gz"))
	require.NoError(t, err)
	assert.Equal(t, "ratings", string(b))
	assert.Equal(t, int32(2), atomic.LoadInt32(&srv.downloads))

	// same sizes: nothing is rewritten
	results, err = f.Run(ctx, datasets)
	require.NoError(t, err)
	assert.True(t, results[0].Skipped)
	assert.True(t, results[1].Skipped)

	f.Force = true
	results, err = f.Run(ctx, datasets[:1])
	require.NoError(t, err)
	assert.False(t, results[0].Skipped)
}

func TestRunUnlisted(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	_, err := newFetcher(srv, dir).Run(context.Background(), []dataset.Dataset{dataset.TitleRatings, dataset.TitleBasics})
	require.True(t, errors.Is(err, errors.ErrObjectNotFound), "got %v", err)
	require.Contains(t, err.Error(), "title.basics.tsv.gz")
	require.NoFileExists(t, filepath.Join(dir, "title.ratings.tsv.gz"))
}

func TestRunServerDown(t *testing.T) {
	srv := newServer(t)
	f := newFetcher(srv, t.TempDir())
	srv.Close()
	f.HTTP.RetryMax = 1
	_, err := f.Run(context.Background(), dataset.All())
	require.Error(t, err)
}
