package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/pulseboard/publisher/configs"
)

// MediaService stores uploaded media in Cloudflare R2. The public URL it
// returns is what the platform adapters later hand to the external APIs, so
// the bucket must be world readable.
type MediaService struct {
	cfg config.Config
}

func NewMediaService(cfg config.Config) *MediaService {
	return &MediaService{cfg: cfg}
}

func (m *MediaService) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.cfg.R2.AccessKey, m.cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.cfg.R2.AccountID))
	}), nil
}

// Upload writes the object and returns its public URL.
func (m *MediaService) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	client, err := m.client(ctx)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return strings.TrimSuffix(m.cfg.R2.PublicBaseURL, "/") + "/" + key, nil
}
