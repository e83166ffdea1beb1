package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/lostfound/community/internal/feed"
	appconfig "github.com/lostfound/community/pkg/config"
)

// MaxImageSize is the largest image accepted for upload
const MaxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// putObjectAPI is the part of the S3 client the uploader needs
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores listing images in S3 and returns their public URLs
type S3Uploader struct {
	client  putObjectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

var _ feed.ImageUploader = (*S3Uploader)(nil)

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(ctx context.Context, cfg *appconfig.StorageConfig) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(awsCfg), cfg), nil
}

func newS3Uploader(client putObjectAPI, cfg *appconfig.StorageConfig) *S3Uploader {
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// UploadImage stores data under a fresh key and returns its public URL.
// An empty contentType is sniffed from the data.
func (u *S3Uploader) UploadImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", feed.NewValidationError("images", feed.ReasonInvalid, "image is empty")
	}
	if len(data) > MaxImageSize {
		return "", feed.NewValidationError("images", feed.ReasonInvalid, "image exceeds 10MB")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", feed.NewValidationError("images", feed.ReasonInvalid, fmt.Sprintf("unsupported image type %s", contentType))
	}

	key := u.objectKey(ext)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return u.PublicURL(key), nil
}

// objectKey lays images out as item-images/{year}/{month}/{uuid}{ext}
func (u *S3Uploader) objectKey(ext string) string {
	now := u.now()
	return fmt.Sprintf("item-images/%d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)
}

// PublicURL returns the URL an object is served from
func (u *S3Uploader) PublicURL(key string) string {
	return u.baseURL + "/" + key
}
