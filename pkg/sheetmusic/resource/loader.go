// Package resource resolves storage URLs into readable resources.
// Supported schemes are s3://bucket/key, http(s):// and file:// (or a bare
// local path).
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// ObjectGetter is the part of the S3 client the loader needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader implements sheetmusic.ResourceLoader
type Loader struct {
	s3         ObjectGetter
	httpClient *http.Client
}

// Option configures a Loader
type Option func(*Loader)

// WithS3Client enables s3:// URLs
func WithS3Client(client ObjectGetter) Option {
	return func(l *Loader) {
		l.s3 = client
	}
}

// WithHTTPClient sets the client used for http(s):// URLs
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.httpClient = client
	}
}

// NewLoader creates a resource loader
func NewLoader(options ...Option) *Loader {
	l := &Loader{httpClient: http.DefaultClient}
	for _, option := range options {
		option(l)
	}
	return l
}

// GetResource resolves rawURL without reading it
func (l *Loader) GetResource(ctx context.Context, rawURL string) (sheetmusic.Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid resource url: %w", err)
	}

	switch u.Scheme {
	case "s3":
		if l.s3 == nil {
			return nil, errors.New("s3 resources are not configured")
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 url needs a bucket and key: %s", rawURL)
		}
		return &s3Resource{client: l.s3, bucket: u.Host, key: key}, nil
	case "http", "https":
		return &httpResource{client: l.httpClient, url: u}, nil
	case "file":
		return &fileResource{path: filepath.FromSlash(u.Path)}, nil
	case "":
		return &fileResource{path: rawURL}, nil
	default:
		return nil, fmt.Errorf("unsupported resource scheme: %s", u.Scheme)
	}
}

type s3Resource struct {
	client ObjectGetter
	bucket string
	key    string
}

func (r *s3Resource) Filename() string {
	return path.Base(r.key)
}

func (r *s3Resource) Open(ctx context.Context) (io.ReadCloser, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var apiErr smithy.APIError
		if errors.As(err, &noSuchKey) || (errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey") {
			return nil, fmt.Errorf("%w: s3://%s/%s", sheetmusic.ErrResourceNotFound, r.bucket, r.key)
		}
		return nil, err
	}
	return result.Body, nil
}

type httpResource struct {
	client *http.Client
	url    *url.URL
}

func (r *httpResource) Filename() string {
	return path.Base(r.url.Path)
}

func (r *httpResource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", sheetmusic.ErrResourceNotFound, r.url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, r.url)
	}
	return resp.Body, nil
}

type fileResource struct {
	path string
}

func (r *fileResource) Filename() string {
	return filepath.Base(r.path)
}

func (r *fileResource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", sheetmusic.ErrResourceNotFound, r.path)
	}
	return file, err
}
