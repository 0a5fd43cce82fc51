package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kevinaaaquil/transcribe/middleware"
	"github.com/stretchr/testify/require"
)

func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(id.UserID + "|" + id.Name + "|" + id.Email))
	})
}

func TestAuth(t *testing.T) {
	const secret = "s3cr3t"
	handler := middleware.Auth(secret)(identityEcho(t))
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	valid, err := middleware.SignToken(secret, &middleware.Claims{
		UserID: "u1", Name: "Ishmael", Email: "i@pequod.test",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
	})
	require.NoError(t, err)
	expired, err := middleware.SignToken(secret, &middleware.Claims{
		UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past},
	})
	require.NoError(t, err)
	wrongKey, err := middleware.SignToken("other", &middleware.Claims{UserID: "u1"})
	require.NoError(t, err)
	noUser, err := middleware.SignToken(secret, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
	})
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &middleware.Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "u1|Ishmael|i@pequod.test"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, ""},
		{"no user id", "Bearer " + noUser, http.StatusUnauthorized, ""},
		{"alg none", "Bearer " + none, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				require.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}

func TestIdentityFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := middleware.IdentityFromContext(req.Context())
	require.False(t, ok)
}
