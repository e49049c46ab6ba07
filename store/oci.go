package store

import (
	"context"
	"io"
	"net/http"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
	"github.com/pkg/errors"
)

// OCIOptions describes an OCI Object Storage bucket.
type OCIOptions struct {
	Provider  common.ConfigurationProvider
	Bucket    string
	Namespace string // fetched via the API when empty
	Host      string // optional endpoint override
	Insecure  bool
}

type ociStore struct {
	client    objectstorage.ObjectStorageClient
	http      *http.Client
	namespace string
	bucket    string
}

// interface guard
var _ Store = (*ociStore)(nil)

var noRetry = common.NoRetryPolicy()

// NewOCIFactory resolves the namespace once and returns a Factory producing
// independent clients that share it.
func NewOCIFactory(ctx context.Context, opts OCIOptions) (Factory, error) {
	newStore := func() (*ociStore, error) {
		client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(opts.Provider)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Object Storage client")
		}
		httpClient, err := NewHTTPClient(opts.Insecure)
		if err != nil {
			return nil, err
		}
		client.HTTPClient = httpClient
		if opts.Host != "" {
			client.Host = opts.Host
		}
		return &ociStore{client: client, http: httpClient, namespace: opts.Namespace, bucket: opts.Bucket}, nil
	}

	if opts.Namespace == "" {
		s, err := newStore()
		if err != nil {
			return nil, err
		}
		resp, err := s.client.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
		s.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch namespace")
		}
		opts.Namespace = *resp.Value
	}

	return func(context.Context) (Store, error) { return newStore() }, nil
}

func (s *ociStore) meta() common.RequestMetadata {
	return common.RequestMetadata{RetryPolicy: &noRetry}
}

func (s *ociStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, objectstorage.PutObjectRequest{
		NamespaceName:   common.String(s.namespace),
		BucketName:      common.String(s.bucket),
		ObjectName:      common.String(key),
		ContentLength:   common.Int64(size),
		PutObjectBody:   io.NopCloser(body),
		RequestMetadata: s.meta(),
	})
	return errors.Wrapf(err, "oci put %s/%s", s.bucket, key)
}

func (s *ociStore) Get(ctx context.Context, key string, w io.Writer) (int64, error) {
	return s.get(ctx, key, nil, w)
}

// GetRange treats 416 on a range starting at 0 as an empty object.
func (s *ociStore) GetRange(ctx context.Context, key string, off, length int64, w io.Writer) (int64, error) {
	n, err := s.get(ctx, key, common.String(rangeHeader(off, length)), w)
	if err != nil && off == 0 && ociStatus(err) == http.StatusRequestedRangeNotSatisfiable {
		return 0, nil
	}
	return n, err
}

func (s *ociStore) get(ctx context.Context, key string, rng *string, w io.Writer) (int64, error) {
	resp, err := s.client.GetObject(ctx, objectstorage.GetObjectRequest{
		NamespaceName:   common.String(s.namespace),
		BucketName:      common.String(s.bucket),
		ObjectName:      common.String(key),
		Range:           rng,
		RequestMetadata: s.meta(),
	})
	if err != nil {
		return 0, s.wrap(err, "get", key)
	}
	n, err := io.Copy(w, resp.Content)
	resp.Content.Close()
	if err != nil {
		return n, errors.Wrapf(err, "oci get %s/%s: read body", s.bucket, key)
	}
	return n, nil
}

func (s *ociStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, objectstorage.DeleteObjectRequest{
		NamespaceName:   common.String(s.namespace),
		BucketName:      common.String(s.bucket),
		ObjectName:      common.String(key),
		RequestMetadata: s.meta(),
	})
	if err != nil {
		return s.wrap(err, "delete", key)
	}
	return nil
}

func (s *ociStore) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func (s *ociStore) wrap(err error, op, key string) error {
	if ociStatus(err) == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "oci %s %s/%s", op, s.bucket, key)
	}
	return errors.Wrapf(err, "oci %s %s/%s", op, s.bucket, key)
}

// ociStatus returns the HTTP status of a service error, or 0.
func ociStatus(err error) int {
	var serviceErr common.ServiceError
	if !errors.As(err, &serviceErr) {
		return 0
	}
	return serviceErr.GetHTTPStatusCode()
}

func isOCIThrottled(err error) bool {
	code := ociStatus(err)
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}
