package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects      map[string]string
	contentTypes map[string]string
	failKey      string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
		f.contentTypes = map[string]string{}
	}
	f.objects[key] = string(body)
	f.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func writeFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "kaito_analysis.json")
	csvPath := filepath.Join(dir, "kaito_market_data.csv")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"ok":true}`), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte("timestamp,price\n"), 0o644))
	return jsonPath, csvPath
}

func TestUploader_Upload(t *testing.T) {
	fake := &fakeS3{}
	u := newUploader(fake, "reports", "tracker")
	u.now = func() time.Time { return time.Date(2025, 4, 9, 23, 0, 0, 0, time.UTC) }
	jsonPath, csvPath := writeFiles(t)

	keys, err := u.Upload(context.Background(), "kaito", "run-1", []string{jsonPath, "", csvPath})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"tracker/kaito/2025/04/09/run-1/kaito_analysis.json",
		"tracker/kaito/2025/04/09/run-1/kaito_market_data.csv",
	}, keys)
	assert.Equal(t, `{"ok":true}`, fake.objects[keys[0]])
	assert.Equal(t, "application/json", fake.contentTypes[keys[0]])
}

func TestUploader_StopsOnFailure(t *testing.T) {
	fake := &fakeS3{failKey: "kaito/2025/04/09/r/kaito_analysis.json"}
	u := newUploader(fake, "reports", "")
	u.now = func() time.Time { return time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC) }
	jsonPath, csvPath := writeFiles(t)

	keys, err := u.Upload(context.Background(), "kaito", "r", []string{jsonPath, csvPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Empty(t, keys)
	assert.Empty(t, fake.objects)
}

func TestUploader_MissingFile(t *testing.T) {
	u := newUploader(&fakeS3{}, "reports", "p")
	_, err := u.Upload(context.Background(), "kaito", "r", []string{filepath.Join(t.TempDir(), "missing.png")})
	assert.ErrorContains(t, err, "archive: open")
}

func TestNew_RequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket")
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	assert.ErrorContains(t, err, "region")

	u, err := New(context.Background(), ClientConfig{
		Bucket: "b", Region: "us-east-1", AccessKey: "k", SecretKey: "s",
		Endpoint: "localhost:9000", ForcePathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, u)
}
