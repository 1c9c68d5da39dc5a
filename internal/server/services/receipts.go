package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/server/config"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/google/uuid"
)

const (
	receiptURLValidity = 15 * time.Minute
	defaultContentType = "application/octet-stream"
)

// Presigner is the part of *s3.PresignClient the receipt service uses.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// RecordGetter looks up one record of a user.
type RecordGetter interface {
	Get(ctx context.Context, userID string, c models.Collection, id string) (*models.Record, error)
}

// NewS3Presigner builds a presign client for the S3-compatible store named
// in cfg, using path-style addressing so MinIO works out of the box.
func NewS3Presigner(ctx context.Context, cfg *config.Config) (*s3.PresignClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return s3.NewPresignClient(client), nil
}

// ReceiptService hands out presigned URLs for expense receipts. Objects live
// under receipts/<user id>/ so a user can only ever reach their own.
type ReceiptService struct {
	presigner Presigner
	records   RecordGetter
	bucket    string
	now       func() time.Time
	newID     func() string
}

func NewReceiptService(p Presigner, records RecordGetter, bucket string) *ReceiptService {
	return &ReceiptService{
		presigner: p,
		records:   records,
		bucket:    bucket,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func userPrefix(userID string) string {
	return "receipts/" + userID + "/"
}

// UploadURL returns a fresh object key and a presigned PUT URL for it. The
// expense must exist and belong to the user.
func (s *ReceiptService) UploadURL(ctx context.Context, userID, expenseID, contentType string) (string, string, error) {
	if _, err := s.records.Get(ctx, userID, models.Expenses, expenseID); err != nil {
		return "", "", err
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	d := s.now().UTC()
	key := fmt.Sprintf("%s%d/%02d/%s", userPrefix(userID), d.Year(), d.Month(), s.newID())

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(receiptURLValidity))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}
	return key, req.URL, nil
}

// DownloadURL presigns a GET for key. Keys outside the user's prefix are
// reported as missing.
func (s *ReceiptService) DownloadURL(ctx context.Context, userID, key string) (string, error) {
	if !strings.HasPrefix(key, userPrefix(userID)) || strings.Contains(key, "..") {
		return "", common.ErrorNotFound
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(receiptURLValidity))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
