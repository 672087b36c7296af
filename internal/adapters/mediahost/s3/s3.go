// Package s3 re-uploads remote files to an S3-compatible bucket (AWS S3,
// Cloudflare R2, MinIO) served through a public base URL.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"lipsync/internal/adapters/mediahost/remote"
	"lipsync/internal/ports"
)

// API is the part of *s3.Client the host uses.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	// Prefix is prepended to every object key.
	Prefix string
}

type Host struct {
	api       API
	fetcher   *remote.Fetcher
	bucket    string
	publicURL string
	prefix    string
}

// New builds a host with static credentials. A custom Endpoint switches the
// client to path-style addressing.
func New(ctx context.Context, opts Options, fetcher *remote.Fetcher) (*Host, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithAPI(client, opts, fetcher), nil
}

func NewWithAPI(api API, opts Options, fetcher *remote.Fetcher) *Host {
	prefix := strings.Trim(opts.Prefix, "/")
	if prefix == "" {
		prefix = "lipsync"
	}
	return &Host{
		api:       api,
		fetcher:   fetcher,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		prefix:    prefix,
	}
}

func (h *Host) Provider() string { return "s3" }

func (h *Host) UploadFromURL(ctx context.Context, sourceURL string) (ports.HostedMedia, error) {
	f, err := h.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return ports.HostedMedia{}, err
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s/%s%s", h.prefix, f.ResourceType(), uuid.NewString(), f.Extension)

	_, err = h.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(f.ContentType),
		ContentLength: aws.Int64(f.Size),
	})
	if err != nil {
		return ports.HostedMedia{}, fmt.Errorf("put s3://%s/%s: %w", h.bucket, key, err)
	}

	return ports.HostedMedia{
		URL:          h.publicURL + "/" + key,
		ResourceType: f.ResourceType(),
		Bytes:        f.Size,
	}, nil
}
