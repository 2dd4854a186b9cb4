package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"manutencao-predial/portal-backend/internal/config"
	"manutencao-predial/portal-backend/internal/cronograma"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, perMinute int) *gin.Engine {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Security.JWTSecret = "router-secret"
	cfg.Security.AdminPasswordHash = string(hash)
	cfg.Reports.AssetsDir = t.TempDir()
	cfg.Reports.RateLimitPerMinute = perMinute
	cfg.CORS.AllowedOrigins = []string{"https://painel.example.com"}

	api, err := Setup(Dependencies{Config: cfg, Logger: zap.NewNop(), Schedule: cronograma.NewMemoryStore()})
	require.NoError(t, err)
	return api.Router()
}

func serve(router http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()
	w := serve(router, http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin","password":"s3nha"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Token
}

func TestHealthIsPublic(t *testing.T) {
	router := newTestRouter(t, 0)
	w := serve(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestEveryBusinessRouteRequiresBearer(t *testing.T) {
	router := newTestRouter(t, 0)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/reports/skins"},
		{http.MethodPost, "/api/v1/reports/standard"},
		{http.MethodPost, "/api/v1/reports/merge"},
		{http.MethodGet, "/api/v1/reports/archive/presign"},
		{http.MethodGet, "/api/v1/cronograma"},
		{http.MethodPost, "/api/v1/cronograma/pdf"},
		{http.MethodGet, "/api/v1/cronograma/export.csv"},
	} {
		w := serve(router, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestAuthenticatedFlow(t *testing.T) {
	router := newTestRouter(t, 0)
	token := loginToken(t, router)

	w := serve(router, http.MethodGet, "/api/v1/reports/skins", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"standard"`)

	w = serve(router, http.MethodPost, "/api/v1/cronograma", token, `{"activity":"Vistoria"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(router, http.MethodPost, "/api/v1/cronograma/pdf", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	// archiving is off without an S3 client
	w = serve(router, http.MethodGet, "/api/v1/reports/archive/presign?key=relatorios/2026/03/a.pdf", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderEndpointsAreRateLimited(t *testing.T) {
	router := newTestRouter(t, 1)
	token := loginToken(t, router)
	w := serve(router, http.MethodPost, "/api/v1/cronograma", token, `{"activity":"Vistoria"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/cronograma/pdf", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/cronograma/pdf", token, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// plain CRUD is not throttled
	w = serve(router, http.MethodGet, "/api/v1/cronograma", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSExposesReportHeaders(t *testing.T) {
	router := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports/standard", nil)
	req.Header.Set("Origin", "https://painel.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://painel.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodGet, "/health", "", "")
	assert.Empty(t, w.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://painel.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Report-Pages")
}
