// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package objstore opens and stores files that live either on the local
// filesystem or in S3 (names of the form s3://bucket/key).
package objstore

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/featurebasedb/imdbkpi/errors"
	"github.com/featurebasedb/imdbkpi/logger"
)

const scheme = "s3://"

// IsRemote reports whether name is an S3 URL.
func IsRemote(name string) bool {
	return strings.HasPrefix(name, scheme)
}

// Join appends elem to dir, which may be a local directory or an S3 URL.
func Join(dir string, elem ...string) string {
	if IsRemote(dir) {
		return scheme + path.Join(append([]string{strings.TrimPrefix(dir, scheme)}, elem...)...)
	}
	return filepath.Join(append([]string{dir}, elem...)...)
}

// Store resolves names to local files or S3 objects. The S3 client is only
// created the first time an s3:// name is used.
type Store struct {
	Region   string
	Endpoint string
	Log      logger.Logger

	mu     sync.Mutex
	client s3iface.S3API
}

// New returns a Store which builds its S3 client from region and endpoint
// with the default credential chain. Both may be empty.
func New(region, endpoint string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NopLogger
	}
	return &Store{Region: region, Endpoint: endpoint, Log: log}
}

// NewWithClient returns a Store using the given S3 client.
func NewWithClient(c s3iface.S3API) *Store {
	return &Store{Log: logger.NopLogger, client: c}
}

func (s *Store) s3client() (s3iface.S3API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	config := &aws.Config{
		// retry on ephemeral AWS errors
		Retryer: client.DefaultRetryer{NumMaxRetries: 10},
	}
	if s.Region != "" {
		config.Region = aws.String(s.Region)
	}
	if s.Endpoint != "" {
		s.Log.Infof("using S3 endpoint %s", s.Endpoint)
		config.Endpoint = aws.String(s.Endpoint)
		config.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, errors.Wrap(err, "creating S3 session")
	}
	s.client = s3.New(sess)
	return s.client, nil
}

func splitURL(name string) (bucket, key string, err error) {
	u, err := url.Parse(name)
	if err != nil {
		return "", "", errors.Wrapf(err, "parsing S3 URL %v", name)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Errorf("S3 URL %v needs a bucket and a key", name)
	}
	return u.Host, key, nil
}

// Open streams the named file or object. A missing one fails with
// ErrObjectNotFound.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !IsRemote(name) {
		f, err := os.Open(name)
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrObjectNotFound, "file %v does not exist", name)
		} else if err != nil {
			return nil, errors.Wrapf(err, "opening file %v", name)
		}
		return f, nil
	}

	bucket, key, err := splitURL(name)
	if err != nil {
		return nil, err
	}
	c, err := s.s3client()
	if err != nil {
		return nil, err
	}
	result, err := c.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NotFound":
				return nil, errors.Newf(errors.ErrObjectNotFound, "S3 object %v does not exist", name)
			}
		}
		return nil, errors.Wrapf(err, "fetching S3 object %v", name)
	}
	return result.Body, nil
}

// Put stores the contents of r under name. Local files are written to a
// temp file and renamed into place; S3 objects go through the multipart
// uploader.
func (s *Store) Put(ctx context.Context, name string, r io.Reader) error {
	if !IsRemote(name) {
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return errors.Wrap(err, "creating directory")
		}
		tmp := name + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return errors.Wrapf(err, "creating file %v", tmp)
		}
		_, err = io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Rename(tmp, name)
		}
		if err != nil {
			os.Remove(tmp)
			return errors.Wrapf(err, "writing file %v", name)
		}
		return nil
	}

	bucket, key, err := splitURL(name)
	if err != nil {
		return err
	}
	c, err := s.s3client()
	if err != nil {
		return err
	}
	uploader := s3manager.NewUploaderWithClient(c)
	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	return errors.Wrapf(err, "putting S3 object %v", name)
}
