package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/m-mizutani/goerr/v2"
)

// S3Config holds connection settings for an S3 compatible bucket
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// s3Client implements Storage interface using Amazon S3. Conditional writes use the
// object ETag as the generation token.
type s3Client struct {
	bucket string
	prefix string
	client *s3.Client
}

// NewS3Storage creates a new S3 backed Storage. Static keys are used when both are
// set, otherwise credentials come from the SDK default credential chain.
func NewS3Storage(ctx context.Context, cfg S3Config) (Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, goerr.New("incomplete s3 config: bucket and region are required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, goerr.New("incomplete s3 config: access key id and secret access key must be set together")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load aws config", goerr.V("region", cfg.Region))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Most S3 compatible services only support path style addressing
			o.UsePathStyle = true
		}
	})

	return &s3Client{
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		client: client,
	}, nil
}

func (s *s3Client) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, "", goerr.Wrap(ErrObjectNotFound, "no such object", goerr.V("key", key))
		}
		return nil, "", goerr.Wrap(err, "failed to get object from s3", goerr.V("key", key), goerr.V("bucket", s.bucket))
	}

	return out.Body, aws.ToString(out.ETag), nil
}

func (s *s3Client) Put(ctx context.Context, key string, opts ...PutOption) (io.WriteCloser, error) {
	return &s3Writer{
		ctx:    ctx,
		client: s,
		key:    key,
		opts:   newPutOptions(opts...),
	}, nil
}

type s3Writer struct {
	bytes.Buffer
	ctx    context.Context
	client *s3Client
	key    string
	opts   PutOptions
}

func (w *s3Writer) Close() error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.client.bucket),
		Key:         aws.String(w.client.prefix + w.key),
		Body:        bytes.NewReader(w.Bytes()),
		ContentType: aws.String("application/json"),
	}
	switch {
	case w.opts.MustNotExist:
		input.IfNoneMatch = aws.String("*")
	case w.opts.Generation != "":
		input.IfMatch = aws.String(w.opts.Generation)
	}

	if _, err := w.client.client.PutObject(w.ctx, input); err != nil {
		if isS3PreconditionFailed(err) {
			return goerr.Wrap(ErrPreconditionFailed, "object was modified", goerr.V("key", w.key))
		}
		return goerr.Wrap(err, "failed to put object to s3", goerr.V("key", w.key), goerr.V("bucket", w.client.bucket))
	}
	return nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
