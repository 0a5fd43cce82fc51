package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/transcribe/service"
	"github.com/kevinaaaquil/transcribe/store"
)

// BlobsHandler streams page images for backends that have no public URLs of
// their own. Only image files under ImagePrefix are served.
type BlobsHandler struct {
	Blobs       store.BlobStore
	ImagePrefix string
}

// Get serves GET /blobs/*.
func (h *BlobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := chi.URLParam(r, "*")
	if !strings.HasPrefix(p, h.ImagePrefix) || strings.Contains(p, "..") || !service.IsImage(p) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	data, _, err := h.Blobs.Read(r.Context(), p)
	if errors.Is(err, store.ErrNotExist) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to load image"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", store.ContentType(p))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}
