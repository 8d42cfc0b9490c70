package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func serve(t *testing.T, method, path, token string) (*httptest.ResponseRecorder, Role) {
	t.Helper()
	var seen Role
	mw := NewMiddleware(testSecret, NewDefaultPolicy([]string{"/healthz"}), nil)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp, seen
}

func TestReadsArePublic(t *testing.T) {
	resp, role := serve(t, http.MethodGet, "/getenergy", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, Role(""), role)
}

func TestUploadWithoutToken(t *testing.T) {
	resp, _ := serve(t, http.MethodPost, "/api/upload/daily", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestViewerForbiddenUpload(t *testing.T) {
	token, err := IssueJWT(testSecret, "user-1", RoleViewer, time.Hour)
	require.NoError(t, err)
	resp, _ := serve(t, http.MethodPost, "/upload-piechart-csv", token)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdminUpload(t *testing.T) {
	token, err := IssueJWT(testSecret, "user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	resp, role := serve(t, http.MethodPost, "/api/upload/hourly", token)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, RoleAdmin, role)
}

func TestParseJWTRejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseJWT(signed, testSecret)
	require.Error(t, err)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "operator"})
	signed, err = badRole.SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseJWT(signed, testSecret)
	require.Error(t, err)

	token, err := IssueJWT(testSecret, "user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(token, []byte("other"))
	require.Error(t, err)
}
