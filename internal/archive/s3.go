// Package archive bundles a run's report files into tar.gz archives and
// stores them in S3-compatible object storage (AWS S3 or Cloudflare R2).
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/config"
)

// BundleStore is the object storage surface the archive service needs.
type BundleStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, keyPrefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// ObjectStore stores bundles in one S3 bucket under an optional key prefix.
type ObjectStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewObjectStore builds an S3 client from the archive configuration. A custom
// endpoint switches to path-style addressing for R2 and other S3-compatible
// stores.
func NewObjectStore(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*ObjectStore, error) {
	region := cfg.Region
	if region == "" {
		// R2 signs everything against the "auto" region
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ObjectStore{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		log:      log.With().Str("component", "object_store").Logger(),
	}, nil
}

func (o *ObjectStore) key(name string) string {
	if o.prefix == "" {
		return name
	}
	return o.prefix + "/" + name
}

// Upload streams one object into the bucket.
func (o *ObjectStore) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := o.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(o.key(key)),
		Body:        body,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	o.log.Debug().Str("bucket", o.bucket).Str("key", o.key(key)).Msg("Object uploaded")
	return nil
}

// List returns every object whose key starts with the given prefix.
func (o *ObjectStore) List(ctx context.Context, keyPrefix string) ([]types.Object, error) {
	paginator := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(o.key(keyPrefix)),
	})

	var objects []types.Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", keyPrefix, err)
		}
		objects = append(objects, page.Contents...)
	}
	return objects, nil
}

// Delete removes one object from the bucket.
func (o *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
