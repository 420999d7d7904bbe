package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/crosscast/crosscast/configs"
)

// MediaService stores media in R2 and hands back public URLs. Providers
// that ingest by URL (container and resumable uploads) can only work with
// media that is reachable from their side, so anything inline gets promoted
// here before publishing.
type MediaService interface {
	Upload(ctx context.Context, file []byte, contentType string) (string, error)
	PromoteDataURI(ctx context.Context, uri string) (string, error)
}

type mediaService struct {
	cfg config.Config
}

func NewMediaService(cfg config.Config) MediaService {
	return &mediaService{cfg: cfg}
}

func (m *mediaService) r2Client(ctx context.Context) (*s3.Client, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.cfg.R2.AccessKey, m.cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awscfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.cfg.R2.AccountID))
	}), nil
}

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {}, "gif": {},
}

func (m *mediaService) Upload(ctx context.Context, file []byte, contentType string) (string, error) {
	kind, err := filetype.Match(file)
	if err != nil || kind == types.Unknown {
		return "", errors.New("unsupported file type")
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return "", fmt.Errorf("file type %s is not allowed", kind.Extension)
	}
	if contentType == "" {
		contentType = kind.MIME.Value
	}

	key, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	key = fmt.Sprintf("%s.%s", key, kind.Extension)

	client, err := m.r2Client(ctx)
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

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(m.cfg.R2.PublicBase, "/"), key), nil
}

// PromoteDataURI converts a data: URI into a stored object with a public
// URL. Any other URL is returned unchanged.
func (m *mediaService) PromoteDataURI(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return uri, nil
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", errors.New("malformed data URI")
	}

	var file []byte
	var err error
	if strings.HasSuffix(meta, ";base64") {
		file, err = base64.StdEncoding.DecodeString(payload)
	} else {
		err = errors.New("data URI must be base64 encoded")
	}
	if err != nil {
		return "", fmt.Errorf("error decoding inline media: %w", err)
	}

	contentType, _, _ := strings.Cut(meta, ";")
	return m.Upload(ctx, file, contentType)
}
