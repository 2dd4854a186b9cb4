package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/reports/assets"
	"manutencao-predial/portal-backend/internal/reports/composer"
	"manutencao-predial/portal-backend/internal/reports/export"
	"manutencao-predial/portal-backend/internal/reports/merge"
	"manutencao-predial/portal-backend/pkg/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type part struct {
	name, filename string
	data           []byte
}

func field(name, value string) part { return part{name: name, data: []byte(value)} }

func file(name, filename string, data []byte) part {
	return part{name: name, filename: filename, data: data}
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, w.WriteField(p.name, string(p.data)))
			continue
		}
		fw, err := w.CreateFormFile(p.name, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jpegFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: uint8(2 * x), G: uint8(2 * y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type testServer struct {
	router *gin.Engine
	s3     *MockS3Client
}

func newTestServer(t *testing.T, archived bool, maxUpload int64) *testServer {
	t.Helper()
	skins, err := composer.NewSkinRegistry(composer.BuiltinSkins())
	require.NoError(t, err)

	logger := zap.NewNop()
	c := composer.NewComposer(skins, assets.NewLoader(t.TempDir(), logger), security.NewPasswordSource(),
		composer.Options{CompanyName: "Manutenção Predial"}, logger)

	ts := &testServer{s3: new(MockS3Client)}
	var archive *Archive
	if archived {
		archive = NewArchive(ts.s3, "bucket", "relatorios", logger)
	}

	h := NewHandler(NewService(c, merge.NewMerger(logger), archive, logger), logger, maxUpload, false)
	ts.router = gin.New()
	h.RegisterRoutes(ts.router.Group("/api/v1"))
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func standardParts(t *testing.T) []part {
	photo := jpegFixture(t)
	return []part{
		field("services", `[{"id":"s1","name":"Limpeza"},{"id":"s1","name":"Limpeza"},{"id":"s2","name":"Pintura"}]`),
		field("config", `{"processImages": false}`),
		field("reportName", "Limpeza de fachada"),
		field("company", "Condomínio Jardim"),
		field("date", "2026-03-10"),
		file("image_0", "foto2.jpg", photo),
		field("image_0_serviceId", "s1"),
		field("image_0_comment", "Antes da lavagem"),
		file("image_1", "foto1.jpg", photo),
		field("image_1_serviceId", "s1"),
	}
}

func TestGenerate_Standard(t *testing.T) {
	ts := newTestServer(t, false, 0)

	w := ts.do(multipartRequest(t, "/api/v1/reports/standard", standardParts(t)...))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="limpeza-de-fachada-`))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Equal(t, "1", w.Header().Get("X-Report-Warnings"), "duplicate service is reported")
	assert.Empty(t, w.Header().Get("X-Archive-Key"))
}

func TestGenerate_ProcessFields(t *testing.T) {
	ts := newTestServer(t, false, 0)
	photo := jpegFixture(t)

	w := ts.do(multipartRequest(t, "/api/v1/reports/process",
		field("workName", "Reforma do hall"),
		field("workDate", "2026-03-10"),
		file("processImage_0", "a.jpg", photo),
		field("processImagePhase_0", "ANTES"),
		field("processImageServiceName_0", "Demolição"),
		file("processImage_1", "b.jpg", photo),
		field("processImagePhase_1", "depois"),
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.Contains(w.Header().Get("Content-Disposition"), "reforma-do-hall-"))
}

func TestGenerate_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, false, 0)

	tests := []struct {
		name   string
		target string
		parts  []part
		field  string
	}{
		{
			name:   "unknown skin",
			target: "/api/v1/reports/gold",
			parts:  standardParts(t),
			field:  "skin",
		},
		{
			name:   "no images",
			target: "/api/v1/reports/standard",
			parts:  []part{field("services", `[{"id":"s1","name":"Limpeza"}]`)},
			field:  "images",
		},
		{
			name:   "broken services json",
			target: "/api/v1/reports/standard",
			parts:  []part{field("services", `[{`)},
			field:  "services",
		},
		{
			name:   "broken config json",
			target: "/api/v1/reports/standard",
			parts:  []part{field("config", `{"companyHeader": "sim"`)},
			field:  "config",
		},
		{
			name:   "announced flowchart missing",
			target: "/api/v1/reports/mark1",
			parts:  append(standardParts(t), field("flowchartsCount", "1")),
			field:  "flowchart_0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(multipartRequest(t, tt.target, tt.parts...))
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "validation", body["code"])
			assert.Equal(t, tt.field, body["field"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGenerate_UploadTooLarge(t *testing.T) {
	ts := newTestServer(t, false, 1024)

	w := ts.do(multipartRequest(t, "/api/v1/reports/standard", standardParts(t)...))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "form", decodeError(t, w)["field"])
}

func TestGenerate_Archived(t *testing.T) {
	ts := newTestServer(t, true, 0)
	ts.s3.On("Upload", mock.Anything, "bucket", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "relatorios/") && strings.HasSuffix(key, ".pdf")
	}), "application/pdf", mock.Anything).Return(nil).Once()

	w := ts.do(multipartRequest(t, "/api/v1/reports/standard", standardParts(t)...))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Archive-Key"), "relatorios/"))
	ts.s3.AssertExpectations(t)
}

func TestGenerate_ArchiveFailureDoesNotFailRequest(t *testing.T) {
	ts := newTestServer(t, true, 0)
	ts.s3.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("timeout"))

	w := ts.do(multipartRequest(t, "/api/v1/reports/standard", standardParts(t)...))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Archive-Key"))
}

func TestMergeEndpoint(t *testing.T) {
	ts := newTestServer(t, false, 0)
	a, err := export.TitlePageDocument("A")
	require.NoError(t, err)
	b, err := export.TitlePageDocument("B")
	require.NoError(t, err)

	w := ts.do(multipartRequest(t, "/api/v1/reports/merge",
		file("pdf-0", "a.pdf", a),
		file("pdf-1", "b.pdf", b),
		field("separationTitle-1", "Section B"),
		file("pdf-2", "c.pdf", []byte("broken")),
		field("introductionTitle", "Documentos"),
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "4", w.Header().Get("X-Report-Pages"))
	assert.Equal(t, "1", w.Header().Get("X-Skipped-Inputs"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestMergeEndpoint_Errors(t *testing.T) {
	ts := newTestServer(t, false, 0)

	w := ts.do(multipartRequest(t, "/api/v1/reports/merge", field("introductionTitle", "x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(multipartRequest(t, "/api/v1/reports/merge", file("pdf-0", "a.pdf", []byte("junk"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "pdf-0", decodeError(t, w)["field"])
}

func TestListSkins(t *testing.T) {
	ts := newTestServer(t, false, 0)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/skins", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Skins []SkinInfo `json:"skins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Skins, 5)
	assert.Equal(t, "mark1", body.Skins[0].ID)
}

func TestArchiveEndpoints(t *testing.T) {
	disabled := newTestServer(t, false, 0)
	w := disabled.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/archive/presign?key=relatorios/2026/03/a.pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts := newTestServer(t, true, 0)
	ts.s3.On("GetPresignedURL", mock.Anything, "bucket", "relatorios/2026/03/a.pdf", presignTTL).
		Return("https://signed.example.com/a", nil)
	ts.s3.On("Delete", mock.Anything, "bucket", "relatorios/2026/03/a.pdf").Return(nil)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/archive/presign?key=relatorios/2026/03/a.pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var res PresignResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "https://signed.example.com/a", res.URL)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/archive/presign?key=../etc/passwd", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodDelete, "/api/v1/reports/archive/file?key=relatorios/2026/03/a.pdf", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
