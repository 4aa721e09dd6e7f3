package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"alfredoptarigan/cv-analysis-tool/internal/config"
)

const DefaultBlobContentType = "application/json"

var (
	ErrMissingSASToken      = errors.New("AZURE_BLOB_SAS_TOKEN environment variable is not set or is empty")
	ErrMissingAccountURL    = errors.New("AZURE_BLOB_STORAGE_URL environment variable is not set or is empty")
	ErrMissingS3Credentials = errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must both be set")
	ErrUnknownBlobProvider  = errors.New("unknown blob provider")
)

// BlobStore reads and writes named objects in one container.
type BlobStore interface {
	Upload(ctx context.Context, blobName string, content []byte, contentType string) error
	Download(ctx context.Context, blobName string) (string, error)
}

// BlobStoreFactory builds a store on demand so that a misconfigured
// store fails at the call site without touching the network.
type BlobStoreFactory func(ctx context.Context) (BlobStore, error)

func NewBlobStoreFactory(cfg config.BlobConfig) BlobStoreFactory {
	return func(ctx context.Context) (BlobStore, error) {
		switch strings.ToLower(cfg.Provider) {
		case "", config.BlobProviderAzure:
			return NewAzureBlobStore(cfg)
		case config.BlobProviderS3:
			return NewS3BlobStore(ctx, cfg)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownBlobProvider, cfg.Provider)
		}
	}
}

type azureBlobStore struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobStore authenticates with the shared-access signature only.
func NewAzureBlobStore(cfg config.BlobConfig) (BlobStore, error) {
	if cfg.SASToken == "" {
		return nil, ErrMissingSASToken
	}
	if cfg.AccountURL == "" {
		return nil, ErrMissingAccountURL
	}

	serviceURL := fmt.Sprintf("%s?%s",
		strings.TrimRight(cfg.AccountURL, "/"),
		strings.TrimPrefix(cfg.SASToken, "?"),
	)

	client, err := azblob.NewClientWithNoCredential(serviceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob service client: %w", err)
	}

	return &azureBlobStore{
		client:    client,
		container: cfg.Container,
	}, nil
}

// Upload implements BlobStore.
func (s *azureBlobStore) Upload(ctx context.Context, blobName string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = DefaultBlobContentType
	}

	_, err := s.client.UploadBuffer(ctx, s.container, blobName, content, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(contentType),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", blobName, err)
	}

	return nil
}

// Download implements BlobStore.
func (s *azureBlobStore) Download(ctx context.Context, blobName string) (string, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, blobName, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download blob %s: %w", blobName, err)
	}
	defer resp.Body.Close()

	return readUTF8(resp.Body, blobName)
}

type s3BlobStore struct {
	client *s3.Client
	bucket string
}

// NewS3BlobStore targets AWS S3 or any S3-compatible endpoint (R2, MinIO)
// when S3_ENDPOINT is set.
func NewS3BlobStore(ctx context.Context, cfg config.BlobConfig) (BlobStore, error) {
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, ErrMissingS3Credentials
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithRegion(cfg.S3Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3BlobStore{
		client: client,
		bucket: cfg.S3Bucket,
	}, nil
}

// Upload implements BlobStore.
func (s *s3BlobStore) Upload(ctx context.Context, blobName string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = DefaultBlobContentType
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(blobName),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", blobName, err)
	}

	return nil
}

// Download implements BlobStore.
func (s *s3BlobStore) Download(ctx context.Context, blobName string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s: %w", blobName, err)
	}
	defer out.Body.Close()

	return readUTF8(out.Body, blobName)
}

func readUTF8(r io.Reader, blobName string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read blob %s: %w", blobName, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("blob %s is not valid UTF-8", blobName)
	}
	return string(data), nil
}
