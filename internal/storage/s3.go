// Package storage wraps the S3 collaborator: upload bytes, hand back
// time-limited read URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
}

func New(cfg awssdk.Config) *Store {
	client := s3.NewFromConfig(cfg)
	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
	}
}

func UploadBucket() string {
	return strings.TrimSpace(os.Getenv("UPLOAD_BUCKET"))
}

func (s *Store) Put(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(content),
		ContentType: awssdk.String(contentType),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 putobject failed: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 getobject failed: %w", err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("s3 read body: %w", err)
	}
	return buf.Bytes(), nil
}

// PresignGet returns a credential-embedded GET URL valid for ttl.
func (s *Store) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign get failed: %w", err)
	}
	return req.URL, nil
}
