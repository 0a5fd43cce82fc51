package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kevinaaaquil/transcribe/handlers"
	"github.com/kevinaaaquil/transcribe/middleware"
	"github.com/kevinaaaquil/transcribe/models"
	"github.com/kevinaaaquil/transcribe/service"
	"github.com/kevinaaaquil/transcribe/store"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type server struct {
	t     *testing.T
	blobs *store.Memory
	srv   *httptest.Server
}

func newServer(t *testing.T, dir handlers.NameDirectory) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := store.NewMemory("http://localhost:8080/blobs")
	census := service.NewCensus(blobs, "images/", logger)
	manager := service.NewManager(blobs, census, service.Options{Logger: logger})

	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret: secret,
		Pages:     &handlers.PagesHandler{Ledger: manager, Directory: dir},
		Blobs:     &handlers.BlobsHandler{Blobs: blobs, ImagePrefix: "images/"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &server{t: t, blobs: blobs, srv: srv}
}

func (s *server) addImages(book string, names ...string) {
	s.t.Helper()
	for _, n := range names {
		_, err := s.blobs.Write(context.Background(), "images/"+book+"/"+n, []byte("jpegdata"), store.Condition{})
		require.NoError(s.t, err)
	}
}

func token(t *testing.T, userID, name string) string {
	t.Helper()
	tok, err := middleware.SignToken(secret, &middleware.Claims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return tok
}

func (s *server) do(method, path, tok string) (*http.Response, []byte) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, nil)
	require.NoError(s.t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	resp, body := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestPages_RequiresToken(t *testing.T) {
	s := newServer(t, nil)
	s.addImages("b", "1.jpg")

	resp, _ := s.do(http.MethodGet, "/api/books/b/pages", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/api/books/b/pages/1/claim", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPages_ListUnknownBook(t *testing.T) {
	s := newServer(t, nil)
	resp, body := s.do(http.MethodGet, "/api/books/ghost/pages", token(t, "a", "Alice"))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, string(body), "no pages")
}

func TestPages_ClaimFlow(t *testing.T) {
	s := newServer(t, nil)
	s.addImages("b", "page-1.jpg", "page-2.jpg")
	alice, bob := token(t, "a", "Alice"), token(t, "b", "Bob")

	resp, body := s.do(http.MethodGet, "/api/books/b/pages", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view models.LedgerView
	require.NoError(t, json.Unmarshal(body, &view))
	require.Equal(t, "b", view.Book)
	require.Equal(t, 2, view.TotalPages)
	require.Equal(t, "http://localhost:8080/blobs/images/b/page-1.jpg", *view.Pages[0].Thumbnail)

	resp, body = s.do(http.MethodPost, "/api/books/b/pages/1/claim", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec models.PageRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	require.Equal(t, models.StatusInProgress, rec.Status)
	require.Equal(t, "Alice", rec.Claimant())

	resp, body = s.do(http.MethodPost, "/api/books/b/pages/1/claim", bob)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.JSONEq(t, `{"error":"page already claimed by Alice","claimedBy":"Alice"}`, string(body))

	resp, _ = s.do(http.MethodPost, "/api/books/b/pages/1/complete", bob)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/api/books/b/pages/1/release", bob)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(http.MethodPost, "/api/books/b/pages/1/complete", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &rec))
	require.Equal(t, models.StatusCompleted, rec.Status)

	resp, body = s.do(http.MethodGet, "/api/books/b/pages", bob)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	require.Equal(t, 1, view.CompletedPages)

	resp, body = s.do(http.MethodPost, "/api/books/b/pages/1/release", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &rec))
	require.Equal(t, models.StatusAvailable, rec.Status)
	require.Nil(t, rec.ClaimedBy)
}

func TestPages_BadPageAndMissingPage(t *testing.T) {
	s := newServer(t, nil)
	s.addImages("b", "1.jpg")
	alice := token(t, "a", "Alice")

	resp, _ := s.do(http.MethodPost, "/api/books/b/pages/one/claim", alice)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/api/books/b/pages/7/claim", alice)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/books/..%2Fetc/pages", alice)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPages_StorageFailureIs500(t *testing.T) {
	s := newServer(t, nil)
	s.blobs.Fail = func(string, string) error { return errors.New("bucket gone") }

	resp, body := s.do(http.MethodGet, "/api/books/b/pages", token(t, "a", "Alice"))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.NotContains(t, string(body), "bucket gone")
}

type directory map[string]string

func (d directory) DisplayName(_ context.Context, id string) (string, error) {
	return d[id], nil
}

func TestPages_ClaimUsesDirectoryName(t *testing.T) {
	s := newServer(t, directory{"a": "Alice Liddell"})
	s.addImages("b", "1.jpg", "2.jpg")

	_, body := s.do(http.MethodPost, "/api/books/b/pages/1/claim", token(t, "a", "alice"))
	var rec models.PageRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	require.Equal(t, "Alice Liddell", rec.Claimant())

	_, body = s.do(http.MethodPost, "/api/books/b/pages/2/claim", token(t, "z", ""))
	require.NoError(t, json.Unmarshal(body, &rec))
	require.Equal(t, "z", rec.Claimant(), "falls back to the user id")
}

func TestBlobs(t *testing.T) {
	s := newServer(t, nil)
	s.addImages("b", "page-1.png")
	_, err := s.blobs.Write(context.Background(), "data/pages/b.json", []byte("[]"), store.Condition{})
	require.NoError(t, err)

	resp, body := s.do(http.MethodGet, "/blobs/images/b/page-1.png", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, "jpegdata", string(body))

	resp, _ = s.do(http.MethodGet, "/blobs/images/b/page-2.png", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/blobs/data/pages/b.json", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "ledgers are not served")
}
