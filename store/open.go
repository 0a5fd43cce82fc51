package store

import (
	"context"
	"fmt"

	"github.com/kevinaaaquil/transcribe/config"
)

// Backend bundles the configured blob store with the optional Mongo
// database used for the user directory and release events.
type Backend struct {
	Blobs BlobStore
	// DB is non-nil whenever MONGODB_URI is set, regardless of which blob
	// backend was selected.
	DB     *DB
	closer []func(context.Context) error
}

// Open connects the backend named by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}
	if cfg.MongoURI != "" {
		db, err := NewMongoDB(ctx, cfg.MongoURI, cfg.DBName, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("mongodb: %w", err)
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			_ = db.Disconnect(ctx)
			return nil, fmt.Errorf("mongodb indexes: %w", err)
		}
		b.DB = db
		b.closer = append(b.closer, db.Disconnect)
	}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		b.Blobs = NewMemory(cfg.PublicBaseURL)
	case config.BackendFilesystem:
		fsStore, err := NewFilesystem(cfg.DataDir, cfg.PublicBaseURL)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.Blobs = fsStore
	case config.BackendS3:
		s3Store, err := NewS3(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			PresignExpiry:   cfg.PresignExpiry.Std(),
		})
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("s3: %w", err)
		}
		b.Blobs = s3Store
	case config.BackendGCS:
		gcsStore, err := NewGCS(ctx, GCSOptions{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("gcs: %w", err)
		}
		b.Blobs = gcsStore
		b.closer = append(b.closer, func(context.Context) error { return gcsStore.Close() })
	case config.BackendMongoDB:
		if b.DB == nil {
			return nil, fmt.Errorf("mongodb backend selected but MONGODB_URI is empty")
		}
		b.Blobs = b.DB
	default:
		b.Close(ctx)
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	return b, nil
}

// Close releases every client Open created.
func (b *Backend) Close(ctx context.Context) error {
	var first error
	for i := len(b.closer) - 1; i >= 0; i-- {
		if err := b.closer[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	b.closer = nil
	return first
}
