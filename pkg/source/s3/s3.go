package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/singleflight"

	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"
)

// ObjectGetter is the subset of *s3.Client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads collections payloads from an S3 bucket (or any
// S3-compatible store such as MinIO).
//
// Objects are addressed as <prefix>/<scope>/<mode>.json, with "default"
// standing in for an empty scope.
type S3Source struct {
	bucket string
	prefix string
	client ObjectGetter
	group  singleflight.Group
}

// NewS3SourceWithClient creates an S3Source using an existing client.
func NewS3SourceWithClient(bucket, prefix string, client ObjectGetter) *S3Source {
	return &S3Source{
		bucket: bucket,
		prefix: prefix,
		client: client,
	}
}

// NewS3SourceParams defines the configuration for NewS3Source.
//
// Endpoint overrides the S3 endpoint for S3-compatible storage. Path-style
// addressing is always enabled so that MinIO style endpoints work.
type NewS3SourceParams struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Source creates an S3Source with static credentials.
func NewS3Source(ctx context.Context, params NewS3SourceParams) (*S3Source, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return NewS3SourceWithClient(params.Bucket, params.Prefix, client), nil
}

// ObjectKey returns the key the payload for req is stored under.
func (s *S3Source) ObjectKey(req source.Request) string {
	return path.Join(s.prefix, source.ScopeOrDefault(req.Scope), string(req.ModeOrBasic())+".json")
}

// Fetch implements source.RecordSource.
func (s *S3Source) Fetch(ctx context.Context, req source.Request) (common.RawCollections, error) {
	if !source.ValidScope(req.Scope) {
		return common.RawCollections{}, fmt.Errorf("invalid scope %q", req.Scope)
	}
	key := s.ObjectKey(req)

	raw, _, err := util.DoShared(ctx, &s.group, key, source.FetchTimeout, func(ctx context.Context) (common.RawCollections, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var noSuchKey *types.NoSuchKey
			if errors.As(err, &noSuchKey) {
				return common.RawCollections{}, fmt.Errorf("%w: s3://%s/%s", source.ErrNotFound, s.bucket, key)
			}
			return common.RawCollections{}, fmt.Errorf("failed to get object from S3: %w", err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to read object contents: %w", err)
		}

		decoded, err := common.DecodeCollections(buf.Bytes(), req.ModeOrBasic())
		if err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to decode s3://%s/%s: %w", s.bucket, key, err)
		}
		if decoded.Repaired {
			logger.Warn("[Source] S3 payload was not valid JSON, repaired", "key", key)
		}
		return decoded.Collections, nil
	})
	if err != nil {
		return common.RawCollections{}, err
	}
	return raw, nil
}
