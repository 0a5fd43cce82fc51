package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

type memoryBlob struct {
	data       []byte
	version    int64
	uploadedAt time.Time
}

// Memory is a process-local BlobStore. It honours write conditions exactly
// like the durable backends, which makes it the backend of choice for tests.
type Memory struct {
	mu      sync.Mutex
	blobs   map[string]memoryBlob
	baseURL string
	next    int64

	// Fail, when set, is consulted before every operation; a non-nil result is
	// returned in place of the operation. op is "read", "write" or "list".
	Fail func(op, path string) error
}

// NewMemory returns an empty store whose listed URLs are rooted at baseURL.
func NewMemory(baseURL string) *Memory {
	return &Memory{blobs: make(map[string]memoryBlob), baseURL: baseURL}
}

func (m *Memory) fail(op, path string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, path)
}

func (m *Memory) Read(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("read", path); err != nil {
		return nil, "", err
	}
	b, ok := m.blobs[path]
	if !ok {
		return nil, "", ErrNotExist
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, strconv.FormatInt(b.version, 10), nil
}

func (m *Memory) Write(ctx context.Context, path string, data []byte, cond Condition) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("write", path); err != nil {
		return "", err
	}
	cur, exists := m.blobs[path]
	if cond.MustNotExist && exists {
		return "", ErrPreconditionFailed
	}
	if cond.MatchVersion != "" && (!exists || strconv.FormatInt(cur.version, 10) != cond.MatchVersion) {
		return "", ErrPreconditionFailed
	}
	m.next++
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[path] = memoryBlob{data: stored, version: m.next, uploadedAt: time.Now().UTC()}
	return strconv.FormatInt(m.next, 10), nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list", prefix); err != nil {
		return nil, err
	}
	var out []Object
	for p, b := range m.blobs {
		if !directChild(prefix, p) {
			continue
		}
		out = append(out, Object{
			Path:       p,
			URL:        joinURL(m.baseURL, p),
			Size:       int64(len(b.data)),
			UploadedAt: b.uploadedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Delete removes path. Missing paths are not an error.
func (m *Memory) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}
