package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileSourceRoundTrip(t *testing.T) {
	src := NewLocalFileSource(t.TempDir())

	require.NoError(t, src.Put("abc.png", false, []byte("permanent")))
	require.NoError(t, src.Put("tmp.png", true, []byte("staged")))

	got, err := src.Fetch(context.Background(), Attachment{FileID: "f1", StorageKey: "abc.png"})
	require.NoError(t, err)
	assert.Equal(t, []byte("permanent"), got)

	got, err = src.Fetch(context.Background(), Attachment{FileID: "f2", StorageKey: "tmp.png", Temporary: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("staged"), got)
}

func TestLocalFileSourceSeparatesStaging(t *testing.T) {
	src := NewLocalFileSource(t.TempDir())
	require.NoError(t, src.Put("k", true, []byte("x")))

	// Same key, wrong location.
	_, err := src.Fetch(context.Background(), Attachment{StorageKey: "k", Temporary: false})
	assert.Error(t, err)
}

func TestLocalFileSourceMissingFile(t *testing.T) {
	src := NewLocalFileSource(t.TempDir())
	_, err := src.Fetch(context.Background(), Attachment{FileID: "f1", StorageKey: "nope"})
	assert.Error(t, err)
}

func TestLocalFileSourceCancelledContext(t *testing.T) {
	src := NewLocalFileSource(t.TempDir())
	require.NoError(t, src.Put("k", false, []byte("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, Attachment{StorageKey: "k"})
	assert.Error(t, err)
}

func TestLocalFileSourceBlocksTraversal(t *testing.T) {
	src := NewLocalFileSource(t.TempDir())
	require.NoError(t, src.Put("../escape", false, []byte("x")))

	// The cleaned key resolves inside the files dir either way.
	got, err := src.Fetch(context.Background(), Attachment{StorageKey: "../escape"})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
