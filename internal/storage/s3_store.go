package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Config configures an S3 compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects to a bucket served from PublicBaseURL.
type S3Store struct {
	client        putObjectAPI
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewS3Store builds an S3 client. A custom endpoint switches to path-style
// addressing for S3 compatible providers.
func NewS3Store(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.PublicBaseURL == "" {
		return nil, errors.New("S3 bucket and public base URL are required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 upload store initialized", zap.String("bucket", cfg.Bucket), zap.String("region", cfg.Region))
	return newS3Store(client, cfg.Bucket, cfg.PublicBaseURL, logger), nil
}

func newS3Store(client putObjectAPI, bucket, publicBaseURL string, logger *zap.Logger) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

func (s *S3Store) Name() string { return "s3" }

func (s *S3Store) Save(ctx context.Context, obj Object) (string, error) {
	key, err := cleanKey(obj.Key)
	if err != nil {
		return "", err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   obj.Body,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("uploading '%s' to bucket '%s': %w", key, s.bucket, err)
	}
	s.logger.Debug("Stored upload in S3", zap.String("bucket", s.bucket), zap.String("key", key))
	return s.publicBaseURL + "/" + key, nil
}
