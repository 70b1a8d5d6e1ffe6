package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StagingConfig configures the remote staging bucket for exported artifacts.
type StagingConfig struct {
	Bucket string
	Prefix string
	// Region to use for requests. If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config profile. If empty, default chain applies.
	Profile string
}

// StagingConfigFromEnv reads the staging settings, returning ok=false when
// no bucket is configured so callers can skip the upload step.
func StagingConfigFromEnv() (StagingConfig, bool) {
	bucket := os.Getenv("EXPORT_S3_BUCKET")
	if bucket == "" {
		return StagingConfig{}, false
	}
	prefix := os.Getenv("EXPORT_S3_PREFIX")
	if prefix == "" {
		prefix = "notebooklm"
	}
	return StagingConfig{
		Bucket:  bucket,
		Prefix:  prefix,
		Region:  os.Getenv("AWS_REGION"),
		Profile: os.Getenv("AWS_PROFILE"),
	}, true
}

// Stager uploads exported artifacts to S3 for sharing.
type Stager struct {
	client *s3.Client
	cfg    StagingConfig
}

// NewStager builds an S3 client from the default AWS configuration chain.
func NewStager(ctx context.Context, cfg StagingConfig) (*Stager, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Stager{client: s3.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// put uploads one file under the configured prefix.
func (s *Stager) put(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Prefix + "/" + key),
		Body:   f,
	}
	if ct := contentTypeFor(path); ct != "" {
		in.ContentType = aws.String(ct)
	}
	_, err = s.client.PutObject(ctx, in)
	return err
}

// Exists reports whether the object is already staged.
func (s *Stager) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Prefix + "/" + key),
	})
	if err == nil {
		return true, nil
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	return false, err
}

// UploadExports walks the notebooks tree and uploads every exported
// document, preserving the directory layout under the prefix. Returns the
// number of files uploaded.
func (s *Stager) UploadExports(ctx context.Context, notebooksDir string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(notebooksDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(notebooksDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if err := s.put(ctx, key, path); err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	log.Printf("staged %d files to s3://%s/%s", uploaded, s.cfg.Bucket, s.cfg.Prefix)
	return uploaded, nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	}
	return ""
}
