package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "theme")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "theme", []byte("dark")))
			got, err := store.Get(ctx, "theme")
			require.NoError(t, err)
			assert.Equal(t, []byte("dark"), got)

			require.NoError(t, store.Set(ctx, "theme", []byte("light")))
			got, err = store.Get(ctx, "theme")
			require.NoError(t, err)
			assert.Equal(t, []byte("light"), got)

			require.NoError(t, store.Delete(ctx, "theme"))
			_, err = store.Get(ctx, "theme")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting a missing key is not an error
			assert.NoError(t, store.Delete(ctx, "theme"))
		})
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, store.Set(ctx, "../escape", []byte("x")))
	_, err = store.Get(ctx, "a/b")
	assert.Error(t, err)
}

func TestFileStoreSeesExternalRemoval(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "resume_cv_pro_history", []byte(`[]`)))
	require.NoError(t, os.Remove(store.Path("resume_cv_pro_history")))

	_, err = store.Get(ctx, "resume_cv_pro_history")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "lang", []byte("en")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "lang")
	require.NoError(t, err)
	assert.Equal(t, "en", string(got))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := errors.NewNopLogger()

	store, err := Open(ctx, config.StorageConfig{Driver: "file", Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, config.StorageConfig{Driver: "memory"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(ctx, config.StorageConfig{Driver: "etcd"}, logger)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestWatcherReportsExternalChanges(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	var calls atomic.Int32
	changed := make(chan string, 4)
	w := NewWatcher(store, []string{"resume_cv_pro_history"}, 20*time.Millisecond, func(key string) {
		calls.Add(1)
		changed <- key
	}, errors.NewNopLogger())
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Error(t, w.Start(), "second start must fail")

	// unrelated keys are ignored
	require.NoError(t, os.WriteFile(store.Path("theme"), []byte("dark"), 0o600))
	require.NoError(t, os.WriteFile(store.Path("resume_cv_pro_history"), []byte("garbage"), 0o600))

	select {
	case key := <-changed:
		assert.Equal(t, "resume_cv_pro_history", key)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	require.NoError(t, os.Remove(store.Path("resume_cv_pro_history")))
	select {
	case key := <-changed:
		assert.Equal(t, "resume_cv_pro_history", key)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the removal")
	}

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}
