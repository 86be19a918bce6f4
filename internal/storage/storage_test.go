package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/straye-as/offers-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDocumentKey(t *testing.T) {
	at := time.Date(2025, 3, 1, 14, 5, 9, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "offers/2025-0001-20250301T130509Z.pdf", DocumentKey("2025-0001", "pdf", at))
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"offers/2025-0001.pdf", "offers/2025-0001.pdf", false},
		{"/offers/a.pdf", "offers/a.pdf", false},
		{"", "", true},
		{"../etc/passwd", "", true},
		{"offers/../../x", "", true},
		{"offers//a.pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "offers/2025-0001-20250301T130509Z.pdf"
	size, err := store.Put(ctx, key, "application/pdf", bytes.NewReader([]byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.pdf", "application/pdf", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
