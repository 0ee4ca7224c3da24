package provider

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ensure interface is implemented
var _ Destination = (*S3Destination)(nil)

// S3Options configures an S3Destination.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint, e.g. for localstack or other
	// S3-compatible stores. Empty means the default AWS endpoint.
	Endpoint string
}

// S3Destination writes objects into an S3 bucket using the transfer manager
// uploader, attaching object metadata on each put.
type S3Destination struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Destination creates an S3Destination from the default AWS credential
// chain plus the given options.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 destination requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3DestinationFromClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3DestinationFromClient wraps an existing S3 client. Useful for tests
// and callers that build their own client.
func NewS3DestinationFromClient(client *s3.Client, bucket, prefix string) *S3Destination {
	return &S3Destination{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// buildKey constructs the full S3 key based on the destination's prefix.
func (d *S3Destination) buildKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if d.prefix == "" {
		return key
	}
	return strings.TrimPrefix(path.Join(d.prefix, key), "/")
}

// Put streams the bytes from r into the bucket under key, with the metadata
// map attached to the object.
func (d *S3Destination) Put(ctx context.Context, key string, r io.Reader, meta ObjectMetadata) error {
	fullKey := d.buildKey(key)

	input := &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(fullKey),
		Body:   r,
	}
	if m := meta.Map(); len(m) > 0 {
		input.Metadata = m
	}

	if _, err := d.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 upload of %q failed: %w", fullKey, err)
	}
	return nil
}

// Ping verifies the bucket exists and is reachable with the configured
// credentials.
func (d *S3Destination) Ping(ctx context.Context) error {
	_, err := d.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(d.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q not reachable: %w", d.bucket, err)
	}
	return nil
}
