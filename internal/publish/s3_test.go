package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type putCall struct {
	bucket, key, contentType, body string
}

type fakeS3 struct {
	calls []putCall
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, putCall{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		body:        string(body),
	})
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		in        string
		want      Location
		expectErr bool
	}{
		{"s3://bucket", Location{Bucket: "bucket"}, false},
		{"s3://bucket/", Location{Bucket: "bucket"}, false},
		{"s3://bucket/reports/iam/", Location{Bucket: "bucket", Prefix: "reports/iam"}, false},
		{"https://bucket/x", Location{}, true},
		{"s3:///x", Location{}, true},
		{"", Location{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseS3URI(tt.in)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationKeyAndString(t *testing.T) {
	assert.Equal(t, "r.json", Location{Bucket: "b"}.Key("r.json"))
	assert.Equal(t, "a/b/r.json", Location{Bucket: "b", Prefix: "a/b"}.Key("r.json"))
	assert.Equal(t, "s3://b", Location{Bucket: "b"}.String())
	assert.Equal(t, "s3://b/a", Location{Bucket: "b", Prefix: "a"}.String())
}

func TestPublish_UploadsArtifactsInOrder(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	xlsxPath := filepath.Join(dir, "report.xlsx")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(xlsxPath, []byte("PK"), 0o600))

	fake := &fakeS3{}
	p := NewPublisher(fake, Location{Bucket: "audit", Prefix: "iam"}, nil)

	uris, err := p.Publish(context.Background(),
		Artifact{Path: jsonPath, ContentType: ContentTypeJSON},
		Artifact{Path: xlsxPath, ContentType: ContentTypeXLSX},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"s3://audit/iam/report.json", "s3://audit/iam/report.xlsx"}, uris)
	require.Len(t, fake.calls, 2)
	assert.Equal(t, putCall{bucket: "audit", key: "iam/report.json", contentType: ContentTypeJSON, body: "{}"}, fake.calls[0])
	assert.Equal(t, ContentTypeXLSX, fake.calls[1].contentType)
}

func TestPublish_APIError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	fake := &fakeS3{err: &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "missing"}}
	_, err := NewPublisher(fake, Location{Bucket: "gone"}, nil).Publish(context.Background(),
		Artifact{Path: path, ContentType: ContentTypeJSON})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchBucket")
	assert.Contains(t, err.Error(), "s3://gone/report.json")
}

func TestPublish_MissingFile(t *testing.T) {
	fake := &fakeS3{}
	_, err := NewPublisher(fake, Location{Bucket: "b"}, nil).Publish(context.Background(),
		Artifact{Path: filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
	assert.Empty(t, fake.calls)
}
