// pkg/extractor/s3.go
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/config"
	"github.com/David-Botos/sales-ingress/pkg/model"
)

// S3Extractor reads tabular files from object storage
type S3Extractor struct {
	client *s3.Client
	logger *zap.Logger
}

// NewS3Extractor builds a client from cfg. Static keys win over the default
// credential chain; Anonymous disables signing altogether.
func NewS3Extractor(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Extractor, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	switch {
	case cfg.Anonymous:
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case cfg.AccessKeyID != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3ExtractorWithClient(client, logger), nil
}

// NewS3ExtractorWithClient wraps an existing client
func NewS3ExtractorWithClient(client *s3.Client, logger *zap.Logger) *S3Extractor {
	return &S3Extractor{client: client, logger: logger.Named("s3-extractor")}
}

// Extract downloads the object at uri and decodes it. An empty format is
// inferred from the object key.
func (e *S3Extractor) Extract(ctx context.Context, uri string, format Format) (model.Table, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return model.Table{}, newExtractionError(uri, KindNotFound, err)
	}
	if format == "" {
		format = FormatFromKey(key)
	}

	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		kind := classifyAWSError(err)
		e.logger.Error("Failed to fetch object",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return model.Table{}, newExtractionError(uri, kind, err)
	}
	defer out.Body.Close()

	t, err := Decode(out.Body, format)
	if err != nil {
		return model.Table{}, newExtractionError(uri, KindDecode, err)
	}

	e.logger.Info("Extracted object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("format", string(format)),
		zap.Int("rows", t.NumRows()))
	return t, nil
}

// ParseS3URI extracts bucket and key from "s3://bucket/key" or from an https
// object URL in virtual-hosted ("bucket.s3.region.amazonaws.com/key") or
// path style ("s3.region.amazonaws.com/bucket/key").
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case "s3":
		bucket = u.Host
		key = strings.TrimPrefix(u.Path, "/")
	case "http", "https":
		host := u.Hostname()
		path := strings.TrimPrefix(u.Path, "/")
		if i := strings.Index(host, ".s3."); i > 0 {
			bucket, key = host[:i], path
		} else if strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
			bucket, key, _ = strings.Cut(path, "/")
		} else {
			return "", "", fmt.Errorf("%q is not an S3 object url", uri)
		}
	default:
		return "", "", fmt.Errorf("expected s3:// or https:// scheme, got %q in %q", u.Scheme, uri)
	}

	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in S3 uri %q", uri)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in S3 uri %q", uri)
	}
	return bucket, key, nil
}
