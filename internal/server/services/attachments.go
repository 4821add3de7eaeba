package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/foodcrm/internal/common"
	sc "github.com/dmitrijs2005/foodcrm/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const (
	attachmentPrefix = "attachments/"
	presignExpiry    = 15 * time.Minute
)

// AttachmentService hands out presigned S3 URLs for interaction attachments.
// The bytes never pass through the API server.
type AttachmentService struct {
	config *sc.Config
	now    func() time.Time
}

func NewAttachmentService(cfg *sc.Config) *AttachmentService {
	return &AttachmentService{config: cfg, now: time.Now}
}

// storageKey groups objects by uploader and day.
func (s *AttachmentService) storageKey(userID string) string {
	d := s.now().UTC()
	return fmt.Sprintf("%s%s/%04d/%02d/%02d/%s", attachmentPrefix, userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// UploadURL allocates a new key for userID and presigns a PUT for it.
func (s *AttachmentService) UploadURL(ctx context.Context, userID, contentType string) (common.PresignedURL, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return common.PresignedURL{}, fmt.Errorf("presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := s.storageKey(userID)
	in := &s3.PutObjectInput{Bucket: &bucket, Key: &key}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(presignClient, ctx, in, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return common.PresignedURL{}, fmt.Errorf("presign put: %w", err)
	}
	return common.PresignedURL{Key: key, URL: req.URL}, nil
}

// DownloadURL presigns a GET for an attachment key issued by UploadURL.
func (s *AttachmentService) DownloadURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, attachmentPrefix) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: not an attachment key: %q", common.ErrValidation, key)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
