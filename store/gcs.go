package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSOptions configures a Google Cloud Storage store.
type GCSOptions struct {
	Bucket          string
	CredentialsFile string
	// BaseURL roots listed object URLs; defaults to the public storage host.
	BaseURL string
}

// GCS uses object generations as versions and generation preconditions for
// compare-and-swap.
type GCS struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	baseURL string
}

func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	base := opts.BaseURL
	if base == "" {
		base = "https://storage.googleapis.com/" + opts.Bucket
	}
	return &GCS{client: client, bucket: client.Bucket(opts.Bucket), baseURL: base}, nil
}

func (g *GCS) Read(ctx context.Context, p string) ([]byte, string, error) {
	r, err := g.bucket.Object(p).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrNotExist
	}
	if err != nil {
		return nil, "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	return data, strconv.FormatInt(r.Attrs.Generation, 10), nil
}

func (g *GCS) Write(ctx context.Context, p string, data []byte, cond Condition) (string, error) {
	obj := g.bucket.Object(p)
	switch {
	case cond.MustNotExist:
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	case cond.MatchVersion != "":
		gen, err := strconv.ParseInt(cond.MatchVersion, 10, 64)
		if err != nil {
			return "", ErrPreconditionFailed
		}
		obj = obj.If(storage.Conditions{GenerationMatch: gen})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = ContentType(p)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isGCSPreconditionFailed(err) {
			return "", ErrPreconditionFailed
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isGCSPreconditionFailed(err) {
			return "", ErrPreconditionFailed
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var out []Object
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if attrs.Prefix != "" || !directChild(prefix, attrs.Name) {
			continue
		}
		out = append(out, Object{
			Path:       attrs.Name,
			URL:        joinURL(g.baseURL, attrs.Name),
			Size:       attrs.Size,
			UploadedAt: attrs.Updated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func isGCSPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
