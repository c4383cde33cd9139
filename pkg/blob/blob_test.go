package blob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mcpmap/pkg/blob"
	"github.com/agentstation/mcpmap/pkg/errors"
)

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.Put(ctx, "state/run-1.yaml", []byte("one")))
	data, err := store.Get(ctx, "state/run-1.yaml")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)

	// Last write wins.
	require.NoError(t, store.Put(ctx, "state/run-1.yaml", []byte("two")))
	data, err = store.Get(ctx, "state/run-1.yaml")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()

	original := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", original))
	original[0] = 'x'

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	// Mutating the returned slice does not affect the stored blob.
	data[0] = 'y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestFileGetPut(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFile(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.Put(ctx, "state/run-1.yaml", []byte("payload")))
	data, err := store.Get(ctx, "state/run-1.yaml")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Put(ctx, "state/run-1.yaml", []byte("replaced")))
	data, err = store.Get(ctx, "state/run-1.yaml")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), data)
}

func TestFileRejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFile(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/../../b"} {
		assert.Error(t, store.Put(ctx, key, []byte("x")), "key %q", key)
	}
}

func TestNewFileRequiresDir(t *testing.T) {
	_, err := blob.NewFile("")
	assert.Error(t, err)
}
