package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/bwise1/gunaso/config"
)

// S3 stores evidence in any S3-compatible bucket.
type S3 struct {
	client  *s3.S3
	bucket  string
	baseURL string
}

func NewS3(cfg *config.Config) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required for the s3 storage driver")
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.S3Region),
	}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.S3AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating s3 session: %w", err)
	}

	baseURL := strings.TrimRight(cfg.S3PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return &S3{client: s3.New(sess), bucket: cfg.S3Bucket, baseURL: baseURL}, nil
}

func (s *S3) Upload(ctx context.Context, obj Object) (StoredFile, error) {
	// PutObject needs a seeker to sign the payload
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return StoredFile{}, fmt.Errorf("reading upload: %w", err)
	}

	key := fmt.Sprintf("%s/%s", strings.Trim(obj.Folder, "/"), obj.Name)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(obj.ContentType),
	})
	if err != nil {
		return StoredFile{}, fmt.Errorf("unable to upload file to S3: %w", err)
	}

	return StoredFile{URL: fmt.Sprintf("%s/%s", s.baseURL, key), Key: key}, nil
}

func (s *S3) Delete(ctx context.Context, key string, _ string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
