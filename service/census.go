package service

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"

	"github.com/kevinaaaquil/transcribe/store"
)

// imageExtensions lists the file types counted as page scans.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether p has one of the page image extensions.
func IsImage(p string) bool {
	return imageExtensions[strings.ToLower(path.Ext(p))]
}

// ImageSet is the result of a census: the page images found for a book.
type ImageSet struct {
	Book   string
	Images []store.Object
}

// Count is the number of pages the book has.
func (s ImageSet) Count() int { return len(s.Images) }

// Census counts a book's page images by listing <prefix><book>/ in the blob
// store. It never writes.
type Census struct {
	blobs  store.BlobStore
	prefix string
	log    *slog.Logger
}

func NewCensus(blobs store.BlobStore, prefix string, logger *slog.Logger) *Census {
	if logger == nil {
		logger = slog.Default()
	}
	return &Census{blobs: blobs, prefix: prefix, log: logger}
}

// Dir returns the listing prefix for book.
func (c *Census) Dir(book string) string {
	return c.prefix + book + "/"
}

// Take lists the book's images. A missing image directory and a directory
// without images both yield a NotFoundError; they are only told apart in the
// logs.
func (c *Census) Take(ctx context.Context, book string) (ImageSet, error) {
	dir := c.Dir(book)
	objects, err := c.blobs.List(ctx, dir)
	if errors.Is(err, store.ErrNotExist) {
		c.log.Info("image directory absent", "book", book, "prefix", dir)
		return ImageSet{}, notFoundf("no pages for book %q", book)
	}
	if err != nil {
		return ImageSet{}, &StorageError{Op: "list images", Err: err}
	}

	set := ImageSet{Book: book}
	for _, obj := range objects {
		if IsImage(obj.Path) {
			set.Images = append(set.Images, obj)
		}
	}
	if set.Count() == 0 {
		c.log.Info("no page images found", "book", book, "prefix", dir, "otherFiles", len(objects))
		return ImageSet{}, notFoundf("no pages for book %q", book)
	}
	c.log.Debug("image census", "book", book, "pages", set.Count())
	return set, nil
}
