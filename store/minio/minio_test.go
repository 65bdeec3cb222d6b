package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "models", "/prod/")
	k, err := s.key("runs/gbm.ens")
	require.NoError(t, err)
	assert.Equal(t, "prod/runs/gbm.ens", k)

	_, err = s.key("../gbm.ens")
	assert.Error(t, err)

	bare := NewStore(nil, "models", "")
	k, err = bare.key("gbm.ens")
	require.NoError(t, err)
	assert.Equal(t, "gbm.ens", k)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

// TestStore_Integration runs against the server named by
// ENSEMBLES_MINIO_ENDPOINT (for example localhost:9000 with minioadmin
// credentials).
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("ENSEMBLES_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("ENSEMBLES_MINIO_ENDPOINT not set")
	}
	bucket := "ensembles-test"
	s, err := Open(endpoint, bucket, "it", Options{AccessKey: "minioadmin", SecretKey: "minioadmin"})
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	if !exists {
		require.NoError(t, s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	require.NoError(t, s.Put(ctx, "model.ens", []byte("payload")))
	data, err := s.Get(ctx, "model.ens")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, keys, "model.ens")

	require.NoError(t, s.Delete(ctx, "model.ens"))
	_, err = s.Get(ctx, "model.ens")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
