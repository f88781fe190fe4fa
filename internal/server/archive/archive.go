// Package archive keeps a copy of every generated certificate in an S3
// compatible bucket and hands out short-lived download links.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/studiosign/internal/logging"
)

// DefaultExpiry is the lifetime of presigned links.
const DefaultExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return s3.NewPresignClient(c).PresignGetObject(ctx, in, optFns...)
	}
)

// Store archives a rendered document and returns its key and a download URL.
type Store interface {
	Put(ctx context.Context, tenantID, filename, contentType string, data []byte) (key, url string, err error)
}

type Options struct {
	Region   string
	User     string
	Password string
	Endpoint string
	Bucket   string
	Expiry   time.Duration
}

// S3 is the bucket-backed Store.
type S3 struct {
	client *s3.Client
	bucket string
	expiry time.Duration
	log    logging.Logger
}

func NewS3(ctx context.Context, opts Options, log logging.Logger) (*S3, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.User, opts.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &S3{client: client, bucket: opts.Bucket, expiry: expiry, log: log.With("module", "archive")}, nil
}

// Key is the object key of a certificate.
func Key(tenantID, filename string) string {
	return path.Join("tenants", tenantID, "certificates", path.Base(filename))
}

func (s *S3) Put(ctx context.Context, tenantID, filename, contentType string, data []byte) (string, string, error) {
	key := Key(tenantID, filename)

	err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("put object: %w", err)
	}

	req, err := presignGetObject(s.client, ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return key, "", fmt.Errorf("presign get: %w", err)
	}

	s.log.Debug(ctx, "certificate archived", "key", key, "size", len(data))
	return key, req.URL, nil
}
