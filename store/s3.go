package store

import (
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

// S3Options describes an S3-compatible endpoint and the bucket to benchmark.
type S3Options struct {
	Endpoint  string // scheme://host[:port]
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Insecure  bool // skip TLS verification
}

type s3Store struct {
	client *s3.Client
	http   *http.Client
	bucket string
}

// interface guard
var _ Store = (*s3Store)(nil)

// NewS3Factory returns a Factory that builds a fresh client and connection pool
// per call. Bodies passed to Put should be seekable when the endpoint is plain HTTP.
func NewS3Factory(opts S3Options) Factory {
	return func(context.Context) (Store, error) {
		httpClient, err := NewHTTPClient(opts.Insecure)
		if err != nil {
			return nil, err
		}
		client := s3.New(s3.Options{
			Region:       opts.Region,
			Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
			BaseEndpoint: aws.String(opts.Endpoint),
			UsePathStyle: true, // custom endpoints don't generally work with the bucket in the host
			HTTPClient:   httpClient,
			// one request per operation: the harness never retries
			RetryMaxAttempts:           1,
			RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
			ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
		})
		return &s3Store{client: client, http: httpClient, bucket: opts.Bucket}, nil
	}
}

func (s *s3Store) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	return errors.Wrapf(err, "s3 put %s/%s", s.bucket, key)
}

func (s *s3Store) Get(ctx context.Context, key string, w io.Writer) (int64, error) {
	return s.get(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}, w)
}

// GetRange treats 416 on a range starting at 0 as an empty object, matching
// what the fs and mem backends return.
func (s *s3Store) GetRange(ctx context.Context, key string, off, length int64, w io.Writer) (int64, error) {
	n, err := s.get(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Range:  aws.String(rangeHeader(off, length)),
	}, w)
	if err != nil && off == 0 && isS3InvalidRange(err) {
		return 0, nil
	}
	return n, err
}

func (s *s3Store) get(ctx context.Context, in *s3.GetObjectInput, w io.Writer) (int64, error) {
	obj, err := s.client.GetObject(ctx, in)
	if err != nil {
		if obj != nil && obj.Body != nil {
			obj.Body.Close()
		}
		return 0, s.wrap(err, "get", *in.Key)
	}
	n, err := io.Copy(w, obj.Body)
	obj.Body.Close()
	if err != nil {
		return n, errors.Wrapf(err, "s3 get %s/%s: read body", s.bucket, *in.Key)
	}
	return n, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.wrap(err, "delete", key)
	}
	return nil
}

func (s *s3Store) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func (s *s3Store) wrap(err error, op, key string) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return errors.Wrapf(ErrNotFound, "s3 %s %s/%s", op, s.bucket, key)
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "s3 %s %s/%s", op, s.bucket, key)
	}
	return errors.Wrapf(err, "s3 %s %s/%s", op, s.bucket, key)
}

func isS3InvalidRange(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusRequestedRangeNotSatisfiable
}

func isS3Throttled(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "TooManyRequests", "Throttling", "ThrottlingException", "RequestLimitExceeded":
			return true
		}
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		code := re.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
	}
	return false
}
