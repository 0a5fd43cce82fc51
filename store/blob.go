package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotExist is returned by Read for a missing path, and by List when the
	// backend can tell that the prefix itself does not exist.
	ErrNotExist = errors.New("blob does not exist")
	// ErrPreconditionFailed is returned by Write when its Condition does not hold.
	ErrPreconditionFailed = errors.New("write precondition failed")
)

// Object describes one listed blob.
type Object struct {
	Path       string    `json:"pathname"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Condition guards a Write. The zero value writes unconditionally.
type Condition struct {
	// MustNotExist fails the write if anything is stored at the path.
	MustNotExist bool
	// MatchVersion fails the write unless the stored version equals it.
	MatchVersion string
}

// Unconditional reports whether c imposes no precondition.
func (c Condition) Unconditional() bool {
	return !c.MustNotExist && c.MatchVersion == ""
}

// IfVersion builds the condition that guards a read-modify-write: the path
// must still be absent when nothing was read, or still hold version otherwise.
func IfVersion(version string) Condition {
	if version == "" {
		return Condition{MustNotExist: true}
	}
	return Condition{MatchVersion: version}
}

// BlobStore is the durable path-addressed storage every backend implements.
// Versions are opaque strings that change on every successful write.
type BlobStore interface {
	Read(ctx context.Context, path string) (data []byte, version string, err error)
	Write(ctx context.Context, path string, data []byte, cond Condition) (version string, err error)
	// List returns the direct children of prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// ReadJSON decodes the blob at path into v. found is false, with a nil error,
// when nothing is stored there.
func ReadJSON(ctx context.Context, s BlobStore, path string, v any) (version string, found bool, err error) {
	data, version, err := s.Read(ctx, path)
	if errors.Is(err, ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return "", false, fmt.Errorf("decode %s: %w", path, err)
	}
	return version, true, nil
}

// SaveJSON encodes v and writes it to path under cond.
func SaveJSON(ctx context.Context, s BlobStore, path string, v any, cond Condition) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	return s.Write(ctx, path, data, cond)
}

// directChild reports whether p sits directly under prefix (no further "/").
func directChild(prefix, p string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	rest := p[len(prefix):]
	return rest != "" && !strings.Contains(rest, "/")
}

// joinURL appends an escaped blob path to base. An empty base yields "".
func joinURL(base, p string) string {
	if base == "" {
		return ""
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
