// Seeds an S3-compatible bucket (MinIO, Localstack) with fixture objects
// for the S3 end-to-end tests.
//
// Usage: go run ./cmd/s3-seed --endpoint http://localhost:9000 --bucket fb-e2e uploads/a.jpg uploads/b.jpg
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func main() {
	endpoint := flag.String("endpoint", os.Getenv("FOLDERBRIDGE_TEST_S3_ENDPOINT"), "S3-compatible endpoint URL")
	bucket := flag.String("bucket", os.Getenv("FOLDERBRIDGE_TEST_S3_BUCKET"), "bucket to create and fill")
	region := flag.String("region", "us-east-1", "signing region")
	accessKey := flag.String("access-key", os.Getenv("FOLDERBRIDGE_TEST_S3_ACCESS_KEY_ID"), "access key ID")
	secretKey := flag.String("secret-key", os.Getenv("FOLDERBRIDGE_TEST_S3_SECRET_ACCESS_KEY"), "secret access key")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *bucket == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: s3-seed --bucket NAME [--endpoint URL] KEY...")
		os.Exit(2)
	}

	ctx := context.Background()

	client, err := newClient(ctx, *endpoint, *region, *accessKey, *secretKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3-seed: %v\n", err)
		os.Exit(1)
	}

	if err := seed(ctx, client, *bucket, flag.Args(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "s3-seed: %v\n", err)
		os.Exit(1)
	}
}

func newClient(ctx context.Context, endpoint, region, accessKey, secretKey string) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}

	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// seed creates bucket if needed and writes one small object per key. Each
// object's body is its own key.
func seed(ctx context.Context, client *s3.Client, bucket string, keys []string, logger *slog.Logger) error {
	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})

	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("creating bucket %s: %w", bucket, err)
	}

	for _, key := range keys {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   strings.NewReader(key),
		})
		if err != nil {
			return fmt.Errorf("putting %s: %w", key, err)
		}

		logger.Info("seeded object", slog.String("bucket", bucket), slog.String("key", key))
	}

	return nil
}
