// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/deltakit/tablelog/pkg/lognaming"
)

// S3Backend lists a log directory kept as objects in an S3-compatible
// bucket, configured through LoadDefaultConfig with static credentials and
// an optional custom endpoint (MinIO and friends).
type S3Backend struct {
	client *s3.Client
	bucket string
}

type s3BackendConfig struct {
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	UsePathStyle bool   `json:"usePathStyle"`
}

func (b *S3Backend) Init(rawConfig json.RawMessage) error {
	var cfg struct {
		Storage s3BackendConfig `json:"storage"`
	}
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return fmt.Errorf("s3backend: unmarshal config: %w", err)
	}
	if cfg.Storage.Bucket == "" {
		// Also accept a bare {"kind":"s3","bucket":"..."} blob without
		// the wrapping "storage" object.
		var flat s3BackendConfig
		if err := json.Unmarshal(rawConfig, &flat); err != nil {
			return fmt.Errorf("s3backend: unmarshal config: %w", err)
		}
		cfg.Storage = flat
	}
	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("s3backend: empty bucket")
	}

	region := cfg.Storage.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("s3backend: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.UsePathStyle
	})

	b.client = client
	b.bucket = cfg.Storage.Bucket
	return nil
}

func (b *S3Backend) Info() string {
	return fmt.Sprintf("s3://%s", b.bucket)
}

func (b *S3Backend) ListFrom(ctx context.Context, logPath string, startVersion int64) ([]FileStatus, error) {
	prefix := logPath
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	startAfter := prefix + lognaming.EncodeVersion(startVersion)

	var out []FileStatus
	var token *string
	for {
		resp, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(prefix),
			StartAfter:        aws.String(startAfter),
			ContinuationToken: token,
		})
		if err != nil {
			var notFound *smithyhttp.ResponseError
			if errors.As(err, &notFound) && notFound.HTTPStatusCode() == 404 {
				return nil, &NotFoundError{Path: prefix}
			}
			return nil, fmt.Errorf("s3backend: list %s: %w", prefix, err)
		}

		for _, obj := range resp.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			if !lognaming.CompareByEncodedVersion(path.Base(key), startVersion) {
				continue
			}
			out = append(out, FileStatus{
				Path:    key,
				ModTime: aws.ToTime(obj.LastModified),
				Length:  aws.ToInt64(obj.Size),
			})
		}

		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}

	sort.Slice(out, func(i, j int) bool { return path.Base(out[i].Path) < path.Base(out[j].Path) })
	return out, nil
}

func (b *S3Backend) ReadFile(ctx context.Context, objectKey string) ([]byte, error) {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var notFound *smithyhttp.ResponseError
		if errors.As(err, &notFound) && notFound.HTTPStatusCode() == 404 {
			return nil, &NotFoundError{Path: objectKey}
		}
		return nil, fmt.Errorf("s3backend: get object %s: %w", objectKey, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("s3backend: read object %s: %w", objectKey, err)
	}
	return buf.Bytes(), nil
}
