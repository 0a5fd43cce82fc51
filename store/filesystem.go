package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// Filesystem stores blobs as files under Root. Writes go through a temp file
// and rename, and conditional writes hold an exclusive flock on a sibling
// ".lock" file so several server processes sharing the directory serialize.
type Filesystem struct {
	Root    string
	baseURL string
}

// NewFilesystem creates root if needed and returns a store rooted there.
func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem store: %w", err)
	}
	return &Filesystem{Root: root, baseURL: baseURL}, nil
}

func (f *Filesystem) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", fmt.Errorf("filesystem store: empty path %q", p)
	}
	return filepath.Join(f.Root, filepath.FromSlash(clean)), nil
}

func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (f *Filesystem) Read(ctx context.Context, p string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	full, err := f.resolve(p)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotExist
	}
	if err != nil {
		return nil, "", err
	}
	return data, contentVersion(data), nil
}

func (f *Filesystem) Write(ctx context.Context, p string, data []byte, cond Condition) (string, error) {
	full, err := f.resolve(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	lock := flock.New(full + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", p, err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: not acquired", p)
	}
	defer lock.Unlock()

	if !cond.Unconditional() {
		current, err := os.ReadFile(full)
		exists := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if cond.MustNotExist && exists {
			return "", ErrPreconditionFailed
		}
		if cond.MatchVersion != "" && (!exists || contentVersion(current) != cond.MatchVersion) {
			return "", ErrPreconditionFailed
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-"+filepath.Base(full)+"-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return contentVersion(data), nil
}

// List reads the directory named by prefix. A missing directory yields
// ErrNotExist so callers can tell it apart from an empty one.
func (f *Filesystem) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirPrefix := strings.TrimSuffix(prefix, "/")
	dir, err := f.resolve(dirPrefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	var out []Object
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".lock") || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		p := dirPrefix + "/" + name
		out = append(out, Object{
			Path:       p,
			URL:        joinURL(f.baseURL, p),
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
