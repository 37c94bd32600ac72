package storage

import (
	"context"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"github.com/pandapunten/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "ftp", config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown object storage backend "ftp"`)
}

func TestNewMinioClient_RequiresSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinioConfig
		want string
	}{
		{"endpoint", config.MinioConfig{}, "minio endpoint is required"},
		{"keys", config.MinioConfig{Endpoint: "localhost:9000"}, "minio access key and secret key are required"},
		{"bucket", config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "minio bucket is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMinioClient(tc.cfg)
			require.EqualError(t, err, tc.want)
		})
	}
}

func TestNewGCSClient_RequiresBucket(t *testing.T) {
	_, err := NewGCSClient(context.Background(), config.GCSConfig{})
	require.EqualError(t, err, "gcs bucket is required")
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), config.S3Config{})
	require.EqualError(t, err, "s3 bucket is required")
}

func TestNewS3Client_StaticCredentials(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.S3Config{
		Bucket:    "pandapunten",
		Region:    "eu-west-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "admin",
		SecretKey: "secretpassword",
	})
	require.NoError(t, err)
	assert.Equal(t, "pandapunten", client.Bucket())
}

func TestTranslateMinioError(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	assert.ErrorIs(t, translateMinioError(missing), ErrObjectNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	assert.Equal(t, denied, translateMinioError(denied))
}

func TestConfigureWriter(t *testing.T) {
	w := &gcs.Writer{ChunkSize: 16 << 20}
	configureWriter(w, 512, " application/json ")
	assert.Zero(t, w.ChunkSize)
	assert.Equal(t, "application/json", w.ContentType)
	assert.Equal(t, "no-cache", w.CacheControl)

	w = &gcs.Writer{ChunkSize: 16 << 20}
	configureWriter(w, singleRequestLimit+1, "")
	assert.Equal(t, 16<<20, w.ChunkSize)
	assert.Empty(t, w.ContentType)

	w = &gcs.Writer{ChunkSize: 16 << 20}
	configureWriter(w, -1, "")
	assert.Equal(t, 16<<20, w.ChunkSize)
}
