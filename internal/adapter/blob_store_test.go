package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlobKey(t *testing.T) {
	a := NewBlobKey("sofa.jpg")
	b := NewBlobKey("sofa.jpg")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_sofa.jpg"))

	assert.True(t, strings.HasSuffix(NewBlobKey("../../etc/passwd"), "_passwd"))
	assert.True(t, strings.HasSuffix(NewBlobKey(`C:\photos\lamp.png`), "_lamp.png"))
	assert.True(t, strings.HasSuffix(NewBlobKey(""), "_file"))
}

func TestFSBlobStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFSBlobStore(fs, "/blobs")
	require.NoError(t, err)
	ctx := context.Background()

	key := NewBlobKey("lamp.jpg")
	require.NoError(t, store.Upload(ctx, key, strings.NewReader("jpeg-bytes"), 10, "image/jpeg"))

	content, err := afero.ReadFile(fs, "/blobs/"+key)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(content))

	require.NoError(t, store.Delete(ctx, key))
	exists, err := store.Exists(key)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, store.Delete(ctx, key), "deleting twice is fine")
	assert.Error(t, store.Upload(ctx, "../escape", strings.NewReader(""), 0, ""))
}
