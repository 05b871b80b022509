package objectclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/mediasearch/internal/config"
	"github.com/markdave123-py/mediasearch/internal/core"
	"github.com/markdave123-py/mediasearch/internal/models"
)

type S3Client struct {
	client *s3.Client
}

var _ core.ObjectClient = (*S3Client)(nil)

// NewS3Client builds a client from static keys when configured, otherwise from the
// default AWS credential chain.
func NewS3Client(ctx context.Context, cfg *cfg.Config) (*S3Client, error) {
	if cfg.AwsRegion == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKey != "" || cfg.AwsSecretKey != "" {
		if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
			return nil, fmt.Errorf("AWS_ACCESS_KEY and AWS_SECRET_KEY must be set together")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3ClientFromSDK(s3.NewFromConfig(awsCfg)), nil
}

func NewS3ClientFromSDK(client *s3.Client) *S3Client {
	return &S3Client{client: client}
}

// GetFile downloads a whole object into memory using concurrent ranged gets.
func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	downloader := manager.NewDownloader(c.client)
	buf := manager.NewWriteAtBuffer(nil)

	_, err := downloader.Download(ctxGet, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s failed: %w", bucket, key, err)
	}
	return buf.Bytes(), nil
}

// ListObjects returns every object under prefix, following continuation tokens.
func (c *S3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]models.ObjectInfo, error) {
	ctxList, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var out []models.ObjectInfo
	for p.HasMorePages() {
		page, err := p.NextPage(ctxList)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s/%s failed: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, models.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

