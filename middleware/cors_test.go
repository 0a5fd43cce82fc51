package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevinaaaquil/transcribe/middleware"
	"github.com/stretchr/testify/require"
)

var teapot = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func serve(h http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCORS_AllowAll(t *testing.T) {
	h := middleware.CORS()(teapot)
	rr := serve(h, http.MethodGet, "https://anywhere.test")
	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = serve(middleware.CORS("*")(teapot), http.MethodGet, "https://x.test")
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ListedOrigins(t *testing.T) {
	h := middleware.CORS("https://app.test")(teapot)

	rr := serve(h, http.MethodGet, "https://app.test")
	require.Equal(t, "https://app.test", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rr.Header().Get("Vary"))

	rr = serve(h, http.MethodGet, "https://evil.test")
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	rr := serve(middleware.CORS()(teapot), http.MethodOptions, "https://app.test")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}
