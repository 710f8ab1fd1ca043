// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package fetch downloads the published dataset files into the landing
// directory.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/featurebasedb/imdbkpi/dataset"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/logger"
	"github.com/featurebasedb/imdbkpi/objstore"
	"github.com/hashicorp/go-retryablehttp"
)

// Result describes one landing file.
type Result struct {
	Dataset string
	URL     string
	Path    string
	Bytes   int64
	// Skipped is set when the local file already had the published size.
	Skipped bool
	Elapsed time.Duration
}

// Fetcher downloads dataset files listed on an index page.
type Fetcher struct {
	BaseURL    string
	LandingDir string
	// Force downloads files even when the local copy looks complete.
	Force bool

	HTTP  *retryablehttp.Client
	Store *objstore.Store
	Log   logger.Logger
}

// NewFetcher returns a Fetcher retrying each request up to retries times,
// each attempt bounded by timeout.
func NewFetcher(baseURL, landingDir string, retries int, timeout time.Duration, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NopLogger
	}
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.HTTPClient.Timeout = timeout
	c.Logger = debugLogger{log}
	return &Fetcher{
		BaseURL:    baseURL,
		LandingDir: landingDir,
		HTTP:       c,
		Store:      objstore.New("", "", log),
		Log:        log,
	}
}

// debugLogger sends retryablehttp's request chatter to debug level.
type debugLogger struct {
	logger.Logger
}

func (l debugLogger) Printf(format string, v ...interface{}) {
	l.Debugf(format, v...)
}

// Index returns the .tsv.gz files linked from the index page, keyed by file
// name, with absolute URLs.
func (f *Fetcher) Index(ctx context.Context) (map[string]string, error) {
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base URL %s", f.BaseURL)
	}
	resp, err := f.get(ctx, f.BaseURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "parsing index page")
	}
	links := make(map[string]string)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || !strings.HasSuffix(ref.Path, ".tsv.gz") {
			return
		}
		u := base.ResolveReference(ref)
		links[path.Base(u.Path)] = u.String()
	})
	f.Log.Debugf("index lists %d files", len(links))
	return links, nil
}

func (f *Fetcher) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", u)
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", u)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("fetching %s: unexpected response %d", u, resp.StatusCode)
	}
	return resp, nil
}

// Run downloads the landing file of every dataset, one after another. A
// dataset missing from the index fails the run before anything is
// downloaded.
func (f *Fetcher) Run(ctx context.Context, datasets []dataset.Dataset) ([]Result, error) {
	links, err := f.Index(ctx)
	if err != nil {
		return nil, err
	}
	for _, ds := range datasets {
		if _, ok := links[ds.Landing]; !ok {
			return nil, errors.Newf(errors.ErrObjectNotFound, "%s is not listed at %s", ds.Landing, f.BaseURL)
		}
	}
	results := make([]Result, 0, len(datasets))
	for _, ds := range datasets {
		res, err := f.download(ctx, ds, links[ds.Landing])
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %s", ds.Name)
		}
		results = append(results, res)
	}
	return results, nil
}

func (f *Fetcher) download(ctx context.Context, ds dataset.Dataset, u string) (Result, error) {
	start := time.Now()
	dst := objstore.Join(f.LandingDir, ds.Landing)
	res := Result{Dataset: ds.Name, URL: u, Path: dst}

	resp, err := f.get(ctx, u)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	if !f.Force && resp.ContentLength >= 0 && !objstore.IsRemote(dst) {
		if fi, err := os.Stat(dst); err == nil && fi.Size() == resp.ContentLength {
			f.Log.Infof("%s: %s is up to date (%d bytes)", ds.Name, dst, fi.Size())
			res.Bytes, res.Skipped, res.Elapsed = fi.Size(), true, time.Since(start)
			return res, nil
		}
	}

	body := &countingReader{r: resp.Body}
	if err := f.Store.Put(ctx, dst, body); err != nil {
		return res, err
	}
	res.Bytes, res.Elapsed = body.n, time.Since(start)
	f.Log.Infof("%s: downloaded %d bytes to %s in %s", ds.Name, res.Bytes, dst, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
