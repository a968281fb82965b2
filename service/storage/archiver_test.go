package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	putErr   error
	putKey   string
	putFile  string
	presign  *oss.GetObjectRequest
	expires  time.Duration
	presignT time.Time
}

func (c *fakeClient) PutObjectFromFile(_ context.Context, request *oss.PutObjectRequest, filePath string, _ ...func(*oss.Options)) (*oss.PutObjectResult, error) {
	if c.putErr != nil {
		return nil, c.putErr
	}
	c.putKey = oss.ToString(request.Key)
	c.putFile = filePath
	return &oss.PutObjectResult{}, nil
}

func (c *fakeClient) Presign(_ context.Context, request any, optFns ...func(*oss.PresignOptions)) (*oss.PresignResult, error) {
	c.presign = request.(*oss.GetObjectRequest)
	opts := &oss.PresignOptions{}
	for _, fn := range optFns {
		fn(opts)
	}
	c.expires = opts.Expires
	return &oss.PresignResult{
		URL:        "https://bucket.oss-cn-hangzhou.aliyuncs.com/" + oss.ToString(c.presign.Key) + "?signature=x",
		Expiration: c.presignT,
	}, nil
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "documents/doc-1/report.pdf"},
		{"../../etc/passwd", "documents/doc-1/passwd"},
		{`C:\Users\me\notes.txt`, "documents/doc-1/notes.txt"},
		{"", "documents/doc-1/original"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectName("doc-1", tt.name), tt.name)
	}
}

func TestArchiver_Archive(t *testing.T) {
	client := &fakeClient{}
	a := NewArchiver(client, "docs-bucket", 15*time.Minute)

	object, err := a.Archive(context.Background(), "doc-1", "report.pdf", "/tmp/uploads/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/doc-1/report.pdf", object)
	assert.Equal(t, object, client.putKey)
	assert.Equal(t, "/tmp/uploads/abc.pdf", client.putFile)
}

func TestArchiver_ArchiveError(t *testing.T) {
	client := &fakeClient{putErr: errors.New("access denied")}
	a := NewArchiver(client, "docs-bucket", 15*time.Minute)

	_, err := a.Archive(context.Background(), "doc-1", "report.pdf", "/tmp/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestArchiver_PresignURL(t *testing.T) {
	expiresAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	client := &fakeClient{presignT: expiresAt}
	a := NewArchiver(client, "docs-bucket", 10*time.Minute)

	link, err := a.PresignURL(context.Background(), "documents/doc-1/report.pdf")
	require.NoError(t, err)
	assert.Contains(t, link.URL, "documents/doc-1/report.pdf")
	assert.Equal(t, expiresAt, link.ExpiresAt)
	assert.Equal(t, "docs-bucket", oss.ToString(client.presign.Bucket))
	assert.Equal(t, 10*time.Minute, client.expires)
}
