package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStorage_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save(ctx, PrefixResourceFiles, "Guia.PDF", strings.NewReader("contenido"), 9)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, PrefixResourceFiles+"/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	rc, info, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "contenido", string(data))
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "resources/files/a.pdf", want: "resources/files/a.pdf"},
		{name: "leading slash", key: "/personalized/b.png", want: "personalized/b.png"},
		{name: "parent escape", key: "../etc/passwd", wantErr: true},
		{name: "inner escape", key: "resources/../../x", wantErr: true},
		{name: "empty", key: "", wantErr: true},
		{name: "backslash", key: "a\\b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
