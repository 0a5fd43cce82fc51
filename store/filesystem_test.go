package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFilesystem(t *testing.T) *Filesystem {
	t.Helper()
	fs, err := NewFilesystem(t.TempDir(), "https://cdn.test")
	require.NoError(t, err)
	return fs
}

func TestFilesystem(t *testing.T) {
	conformance(t, func(t *testing.T) BlobStore { return newTestFilesystem(t) })
}

func TestFilesystem_RequiresRoot(t *testing.T) {
	_, err := NewFilesystem("", "")
	require.Error(t, err)
}

func TestFilesystem_ListMissingAndEmptyDiffer(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()

	_, err := fs.List(ctx, "images/ghost/")
	require.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, os.MkdirAll(filepath.Join(fs.Root, "images", "empty"), 0o755))
	objs, err := fs.List(ctx, "images/empty/")
	require.NoError(t, err)
	require.Empty(t, objs)
}

func TestFilesystem_ListSkipsLockAndTempFiles(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()

	_, err := fs.Write(ctx, "data/pages/b.json", []byte("[]"), Condition{MustNotExist: true})
	require.NoError(t, err)
	dir := filepath.Join(fs.Root, "data", "pages")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-b.json-123"), []byte("partial"), 0o644))

	objs, err := fs.List(ctx, "data/pages/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, "data/pages/b.json", objs[0].Path)
}

func TestFilesystem_PathsStayUnderRoot(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()

	_, err := fs.Write(ctx, "../../escape.json", []byte("{}"), Condition{})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(fs.Root, "escape.json"))
	require.NoError(t, err)

	_, _, err = fs.Read(ctx, "")
	require.Error(t, err)
}

func TestFilesystem_ConcurrentCreateHasOneWinner(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = fs.Write(ctx, "data/pages/b.json", []byte{byte('0' + i)}, Condition{MustNotExist: true})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		require.ErrorIs(t, err, ErrPreconditionFailed)
	}
	require.Equal(t, 1, winners)
}
