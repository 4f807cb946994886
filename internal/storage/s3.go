package storage

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// schemeS3 is the URI scheme served by S3Backend.
const schemeS3 = "s3"

// s3Delimiter groups keys into pseudo-directories.
const s3Delimiter = "/"

// S3Options configures the S3 client built by NewS3Backend. Empty fields
// fall back to the AWS default chain (environment, shared config, IMDS).
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint for MinIO, Localstack, etc.
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Backend serves s3://bucket/prefix root URIs. Each grant root maps to a
// key prefix; its children are the objects and common prefixes one
// delimiter level below it.
type S3Backend struct {
	client s3.ListObjectsV2APIClient
	logger *slog.Logger
}

// NewS3Backend loads AWS configuration and returns a backend using a real
// S3 client.
func NewS3Backend(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3Backend, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error

	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}

		o.UsePathStyle = opts.PathStyle
	})

	return NewS3BackendWithClient(client, logger), nil
}

// NewS3BackendWithClient returns a backend using the given list client.
func NewS3BackendWithClient(client s3.ListObjectsV2APIClient, logger *slog.Logger) *S3Backend {
	return &S3Backend{client: client, logger: orDiscard(logger)}
}

// Scheme implements Backend.
func (b *S3Backend) Scheme() string { return schemeS3 }

// Open implements Backend.
func (b *S3Backend) Open(rootURI string) (Directory, error) {
	u, err := url.Parse(rootURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURI, rootURI, err)
	}

	if u.Scheme != schemeS3 || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an s3://bucket URI", ErrInvalidURI, rootURI)
	}

	prefix := strings.Trim(u.Path, s3Delimiter)
	if prefix != "" {
		prefix += s3Delimiter
	}

	return &s3Directory{
		client: b.client,
		bucket: u.Host,
		prefix: prefix,
		logger: b.logger,
	}, nil
}

type s3Directory struct {
	client s3.ListObjectsV2APIClient
	bucket string
	prefix string // empty or ending in "/"
	logger *slog.Logger
}

func (d *s3Directory) URI() string { return s3URI(d.bucket, d.prefix) }

// Children lists one delimiter level under the prefix. Within each page,
// objects and common prefixes are merged in key order so the enumeration
// order matches a flat sorted listing.
func (d *s3Directory) Children(ctx context.Context) ([]Entry, error) {
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(d.prefix),
		Delimiter: aws.String(s3Delimiter),
	})

	var out []Entry

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: listing s3://%s/%s: %w", d.bucket, d.prefix, err)
		}

		pageEntries := make([]*s3Entry, 0, len(page.Contents)+len(page.CommonPrefixes))

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// The prefix's own folder marker is the directory, not a child.
			if key == "" || key == d.prefix {
				continue
			}

			pageEntries = append(pageEntries, &s3Entry{
				bucket:   d.bucket,
				key:      key,
				modified: obj.LastModified,
			})
		}

		for _, cp := range page.CommonPrefixes {
			key := aws.ToString(cp.Prefix)
			if key == "" {
				continue
			}

			pageEntries = append(pageEntries, &s3Entry{bucket: d.bucket, key: key, isPrefix: true})
		}

		slices.SortStableFunc(pageEntries, func(a, b *s3Entry) int {
			return cmp.Compare(a.key, b.key)
		})

		for _, e := range pageEntries {
			out = append(out, e)
		}
	}

	d.logger.Debug("storage: listed s3 prefix",
		slog.String("bucket", d.bucket), slog.String("prefix", d.prefix), slog.Int("children", len(out)))

	return out, nil
}

// s3Entry is an object or a common prefix below an s3Directory. Both
// lookups are served from listing data, so they never perform I/O.
type s3Entry struct {
	bucket   string
	key      string
	modified *time.Time
	isPrefix bool
}

func (e *s3Entry) Locator() string { return s3URI(e.bucket, e.key) }

func (e *s3Entry) DisplayName(_ context.Context) (string, error) {
	name := path.Base(strings.TrimSuffix(e.key, s3Delimiter))
	if name == "." || name == s3Delimiter {
		return "", fmt.Errorf("%w: no name in key %q", ErrUnavailable, e.key)
	}

	return name, nil
}

func (e *s3Entry) LastModified(_ context.Context) (int64, error) {
	if e.isPrefix {
		return 0, fmt.Errorf("%w: %q is a prefix", ErrUnavailable, e.key)
	}

	if e.modified == nil {
		return 0, fmt.Errorf("%w: no modification time for %q", ErrUnavailable, e.key)
	}

	return e.modified.UnixMilli(), nil
}

// s3URI renders a bucket and key as an s3:// URL.
func s3URI(bucket, key string) string {
	u := url.URL{Scheme: schemeS3, Host: bucket, Path: "/" + key}
	return u.String()
}
