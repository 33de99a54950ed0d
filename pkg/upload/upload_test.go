package upload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	store, err := NewStorageFS(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	require.NoError(t, WriteFile(store, "sets/train.record", bytes.NewReader([]byte("hello"))))
	content, err := ReadFile(store, "sets/train.record")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), content)

	require.NoError(t, store.DeleteFile("sets/train.record"))
	_, err = ReadFile(store, "sets/train.record")
	require.Error(t, err)
}

func TestStorageFSRejectsPathEscape(t *testing.T) {
	store, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	_, err = store.WriteFile("../escape")
	require.Error(t, err)
	_, err = store.ReadFile("../escape")
	require.Error(t, err)
	require.Error(t, store.DeleteFile("../escape"))
}

func TestNewStorage(t *testing.T) {
	store, err := NewStorage(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)
	require.IsType(t, &StorageFS{}, store)

	_, err = NewStorage(logs.NewTestingLog(t), "gs://")
	require.Error(t, err)
}

func TestPublish(t *testing.T) {
	src := filepath.Join(t.TempDir(), "dataset.record")
	require.NoError(t, os.WriteFile(src, []byte("records"), 0644))

	target := filepath.Join(t.TempDir(), "published")
	require.NoError(t, Publish(logs.NewTestingLog(t), target, src))

	content, err := os.ReadFile(filepath.Join(target, "dataset.record"))
	require.NoError(t, err)
	require.Equal(t, []byte("records"), content)
}
