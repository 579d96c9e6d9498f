package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/mseed/blobstore"
	minioblob "github.com/hupe1980/mseed/blobstore/minio"
	s3blob "github.com/hupe1980/mseed/blobstore/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// storeLocation is a parsed --store value:
//
//	/data/archive, file:///data/archive    local directory
//	s3://bucket/prefix                      AWS S3, default credential chain
//	minio://host:9000/bucket/prefix         MinIO, MINIO_ACCESS_KEY / MINIO_SECRET_KEY
type storeLocation struct {
	scheme string
	host   string
	bucket string
	prefix string
	path   string
}

func parseStoreLocation(raw string) (storeLocation, error) {
	if raw == "" {
		return storeLocation{}, fmt.Errorf("--store must be set")
	}
	if !strings.Contains(raw, "://") {
		return storeLocation{scheme: "file", path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storeLocation{}, fmt.Errorf("--store: %w", err)
	}
	p := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case "file":
		return storeLocation{scheme: "file", path: u.Path}, nil
	case "s3":
		if u.Host == "" {
			return storeLocation{}, fmt.Errorf("--store %q: missing bucket", raw)
		}
		return storeLocation{scheme: "s3", bucket: u.Host, prefix: p}, nil
	case "minio":
		bucket, prefix, _ := strings.Cut(p, "/")
		if u.Host == "" || bucket == "" {
			return storeLocation{}, fmt.Errorf("--store %q: want minio://host/bucket[/prefix]", raw)
		}
		return storeLocation{scheme: "minio", host: u.Host, bucket: bucket, prefix: prefix}, nil
	}
	return storeLocation{}, fmt.Errorf("--store %q: unsupported scheme %q", raw, u.Scheme)
}

type storeFlags struct {
	location string
	region   string
	endpoint string
	insecure bool
}

func (f *storeFlags) open(ctx context.Context) (blobstore.BlobStore, error) {
	loc, err := parseStoreLocation(f.location)
	if err != nil {
		return nil, err
	}

	switch loc.scheme {
	case "s3":
		var opts []func(*config.LoadOptions) error
		if f.region != "" {
			opts = append(opts, config.WithRegion(f.region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
			if f.endpoint != "" {
				o.BaseEndpoint = aws.String(f.endpoint)
				o.UsePathStyle = true
			}
		})
		return s3blob.NewStore(client, loc.bucket, loc.prefix), nil
	case "minio":
		client, err := minio.New(loc.host, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: !f.insecure,
			Region: f.region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minioblob.NewStore(client, loc.bucket, loc.prefix), nil
	default:
		return blobstore.NewLocalStore(loc.path), nil
	}
}

func (f *storeFlags) register(flags interface {
	StringVar(p *string, name, value, usage string)
	BoolVar(p *bool, name string, value bool, usage string)
}) {
	flags.StringVar(&f.location, "store", "", "archive location (directory, s3://bucket/prefix, minio://host/bucket/prefix)")
	flags.StringVar(&f.region, "region", "", "object store region")
	flags.StringVar(&f.endpoint, "endpoint", "", "custom S3 endpoint URL")
	flags.BoolVar(&f.insecure, "insecure", false, "use plain HTTP for MinIO")
}
