package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/transcribe/middleware"
	"github.com/kevinaaaquil/transcribe/models"
)

// Ledger is the page ledger as the HTTP layer needs it; *service.Manager
// implements it.
type Ledger interface {
	GetOrReconcileLedger(ctx context.Context, book string) (models.LedgerView, error)
	ClaimPage(ctx context.Context, book string, page int, userID, userName string) (models.PageRecord, error)
	CompletePage(ctx context.Context, book string, page int, userID string) (models.PageRecord, error)
	ReleasePage(ctx context.Context, book string, page int, userID string) (models.PageRecord, error)
}

// NameDirectory resolves display names; nil means names come from the token.
type NameDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type PagesHandler struct {
	Ledger    Ledger
	Directory NameDirectory
}

// List returns the reconciled ledger. GET /api/books/{book}/pages
func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.IdentityFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	book, ok := bookParam(w, r)
	if !ok {
		return
	}
	view, err := h.Ledger.GetOrReconcileLedger(r.Context(), book)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Claim assigns a page to the caller. POST /api/books/{book}/pages/{page}/claim
func (h *PagesHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, book, page, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := h.Ledger.ClaimPage(r.Context(), book, page, id.UserID, h.displayName(r.Context(), id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Complete marks the caller's page done. POST /api/books/{book}/pages/{page}/complete
func (h *PagesHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, book, page, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := h.Ledger.CompletePage(r.Context(), book, page, id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Release gives the caller's page back. POST /api/books/{book}/pages/{page}/release
func (h *PagesHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, book, page, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := h.Ledger.ReleasePage(r.Context(), book, page, id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *PagesHandler) target(w http.ResponseWriter, r *http.Request) (middleware.Identity, string, int, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return id, "", 0, false
	}
	book, ok := bookParam(w, r)
	if !ok {
		return id, "", 0, false
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		http.Error(w, `{"error":"invalid page number"}`, http.StatusBadRequest)
		return id, "", 0, false
	}
	return id, book, page, true
}

func bookParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	book, err := url.PathUnescape(chi.URLParam(r, "book"))
	if err != nil || book == "" {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return "", false
	}
	return book, true
}

// displayName prefers the directory, then the token's name and email, and
// finally the bare user id.
func (h *PagesHandler) displayName(ctx context.Context, id middleware.Identity) string {
	if h.Directory != nil {
		name, err := h.Directory.DisplayName(ctx, id.UserID)
		if err != nil {
			slog.WarnContext(ctx, "user directory lookup failed", "userId", id.UserID, "error", err)
		}
		if name != "" {
			return name
		}
	}
	switch {
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	}
	return id.UserID
}
