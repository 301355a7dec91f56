// Package objectstore removes profile images kept in an S3-compatible bucket
// (MinIO in development) once their account is purged.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/communitykeeper/internal/server/config"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx, optFns...)
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ImageStore deletes objects of a single bucket addressed by their public URL.
type ImageStore struct {
	client S3API
	bucket string
}

// NewImageStore builds an S3 client from the server configuration.
func NewImageStore(ctx context.Context, c *sc.Config) (*ImageStore, error) {
	cfg, err := loadAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading s3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return NewImageStoreWithClient(client, c.S3Bucket), nil
}

func NewImageStoreWithClient(client S3API, bucket string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket}
}

// KeyFromURL extracts the object key from a path-style
// (host/bucket/key) or virtual-hosted (bucket.host/key) URL.
// ok is false for URLs that do not point into the bucket.
func (s *ImageStore) KeyFromURL(imageURL string) (key string, ok bool) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Host == "" {
		return "", false
	}

	path := strings.TrimPrefix(u.Path, "/")

	if strings.HasPrefix(u.Hostname(), s.bucket+".") {
		return path, path != ""
	}

	bucket, key, found := strings.Cut(path, "/")
	if !found || bucket != s.bucket || key == "" {
		return "", false
	}
	return key, true
}

// RemoveImage deletes the object behind imageURL. URLs outside the bucket
// are ignored.
func (s *ImageStore) RemoveImage(ctx context.Context, imageURL string) error {
	key, ok := s.KeyFromURL(imageURL)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error deleting object %s: %w", key, err)
	}
	return nil
}
