// Package publish uploads report artifacts to S3.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/aadr/internal/providers/aws/common"
)

// Content types for the two artifacts.
const (
	ContentTypeJSON = "application/json"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Location is a parsed s3://bucket/prefix URI.
type Location struct {
	Bucket string
	Prefix string
}

// ParseS3URI parses s3://bucket[/prefix]. The prefix never has leading or
// trailing slashes.
func ParseS3URI(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("parse S3 URI %q: scheme must be s3://", uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("parse S3 URI %q: bucket is empty", uri)
	}
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Key returns the object key for a local file name under l.Prefix.
func (l Location) Key(name string) string {
	if l.Prefix == "" {
		return name
	}
	return path.Join(l.Prefix, name)
}

func (l Location) String() string {
	if l.Prefix == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Prefix
}

// Artifact is a local file to upload.
type Artifact struct {
	Path        string
	ContentType string
}

// Publisher uploads artifacts to a single S3 location.
type Publisher struct {
	client common.S3Client
	loc    Location
	logger *slog.Logger
}

// NewPublisher returns a Publisher that writes into loc with client. A nil
// logger discards records.
func NewPublisher(client common.S3Client, loc Location, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{client: client, loc: loc, logger: logger}
}

// Publish uploads each artifact under its base name and returns the full
// s3:// URIs written, in input order. The first failure stops the upload.
func (p *Publisher) Publish(ctx context.Context, artifacts ...Artifact) ([]string, error) {
	uris := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		key := p.loc.Key(filepath.Base(a.Path))
		if err := p.put(ctx, a, key); err != nil {
			return uris, err
		}
		uri := "s3://" + p.loc.Bucket + "/" + key
		p.logger.Info("artifact uploaded", "uri", uri)
		uris = append(uris, uri)
	}
	return uris, nil
}

func (p *Publisher) put(ctx context.Context, a Artifact, key string) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.Path, err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.loc.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(a.ContentType),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("upload %s to s3://%s/%s: %s: %w", a.Path, p.loc.Bucket, key, apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("upload %s to s3://%s/%s: %w", a.Path, p.loc.Bucket, key, err)
	}
	return nil
}
