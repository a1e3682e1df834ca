// Package s3 implements the media store on AWS S3 for deployments that do
// not use a transforming media CDN. Objects get extensionless generated
// keys, so the identifier derived back from the object URL is exactly the
// key needed to delete it later.
package s3

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/swasher/productus/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/xid"
)

// Config holds the bucket credentials and the key prefix media objects are
// stored under.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UploadDir       string
}

// Store implements domain.MediaStore on an S3 bucket.
type Store struct {
	config   Config
	s3Client *s3.S3
}

// New creates an S3-backed media store.
func New(config Config) (*Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return &Store{
		config:   config,
		s3Client: s3.New(sess),
	}, nil
}

// Upload stores the file under a generated key and returns its object URL.
func (s *Store) Upload(ctx context.Context, localPath string) (domain.UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := s.config.UploadDir + "/" + xid.New().String()

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to put object: %w", err)
	}

	objectURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, key)

	return domain.UploadResult{SecureURL: objectURL}, nil
}

// Destroy deletes the object whose key equals the public identifier.
func (s *Store) Destroy(ctx context.Context, publicID string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMediaDeleteFailed, publicID, err)
	}

	return nil
}
