package templating

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Root(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		store := NewFileStore(FileStoreConfig{BasePath: filepath.Join(t.TempDir(), "missing")}, templating.Hooks{})

		_, err := store.Root()
		require.Error(t, err)
		assert.True(t, templating.IsCode(err, templating.ErrCodeInvalidRootDirectory))
	})

	t.Run("root is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, nil, 0644))
		store := NewFileStore(FileStoreConfig{BasePath: path}, templating.Hooks{})

		_, err := store.Root()
		assert.True(t, templating.IsCode(err, templating.ErrCodeInvalidRootDirectory))
	})

	t.Run("directory hook", func(t *testing.T) {
		override := t.TempDir()
		hooks := templating.Hooks{Directory: func(string) string { return override }}
		store := NewFileStore(FileStoreConfig{BasePath: "/does/not/exist"}, hooks)

		root, err := store.Root()
		require.NoError(t, err)
		expected, err := filepath.EvalSymlinks(override)
		require.NoError(t, err)
		assert.Equal(t, expected, root)
	})
}

func TestFileStore_CreateOpenRemove(t *testing.T) {
	store := NewFileStore(FileStoreConfig{BasePath: t.TempDir()}, templating.Hooks{})
	root, err := store.Root()
	require.NoError(t, err)
	createdAt := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)
	ctx := context.Background()

	sink, err := store.Create(ctx, createdAt, "0123abcd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "2024-02", "0123abcd"), sink.Path())

	_, err = sink.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	t.Run("existing file is not overwritten", func(t *testing.T) {
		_, err := store.Create(ctx, createdAt, "0123abcd")
		require.Error(t, err)
		assert.True(t, templating.IsCode(err, templating.ErrCodeStorageFailed))
	})

	t.Run("open", func(t *testing.T) {
		r, err := store.Open(createdAt, "0123abcd")
		require.NoError(t, err)
		defer r.Close()
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.Remove(createdAt, "0123abcd"))
		assert.NoFileExists(t, sink.Path())
		// Removing again is not an error
		require.NoError(t, store.Remove(createdAt, "0123abcd"))
	})
}

func TestFileStore_InvalidFileNames(t *testing.T) {
	store := NewFileStore(FileStoreConfig{BasePath: t.TempDir()}, templating.Hooks{})
	createdAt := time.Now()

	for _, name := range []string{"", "..", "../x", "a/b", "a\\..\\b"} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(context.Background(), createdAt, name)
			require.Error(t, err)
			assert.True(t, templating.IsCode(err, templating.ErrCodeStorageFailed))
		})
	}
}

func TestFileStore_CreateCancelled(t *testing.T) {
	store := NewFileStore(FileStoreConfig{BasePath: t.TempDir()}, templating.Hooks{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, time.Now(), "abc")
	assert.True(t, templating.IsCode(err, templating.ErrCodeStorageFailed))
}

func TestFileStore_SymlinkedPeriodDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "rendered")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))
	createdAt := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "2024-01")))

	store := NewFileStore(FileStoreConfig{BasePath: root}, templating.Hooks{})
	_, err := store.Create(context.Background(), createdAt, "abc")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(outside, "abc"))
}

func TestSinks(t *testing.T) {
	t.Run("buffer", func(t *testing.T) {
		sink := NewBufferSink()
		_, _ = sink.Write([]byte("abc"))
		require.NoError(t, sink.Close())
		assert.Equal(t, "abc", sink.String())
		require.NoError(t, sink.Abort())
		assert.Empty(t, sink.String())
	})

	t.Run("file abort removes the file", func(t *testing.T) {
		store := NewFileStore(FileStoreConfig{BasePath: t.TempDir()}, templating.Hooks{})
		sink, err := store.Create(context.Background(), time.Now(), "abc")
		require.NoError(t, err)
		_, _ = sink.Write([]byte("partial"))

		require.NoError(t, sink.Abort())
		assert.NoFileExists(t, sink.Path())
		require.NoError(t, sink.Abort())
	})
}
