package samples

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copper-backend/internal/analyzer"
	"copper-backend/internal/shared/server/middleware"
	localstore "copper-backend/internal/shared/storage/object/local"
)

// newHandlerRouter authenticates every request as the account in the
// X-Test-User header.
func newHandlerRouter(t *testing.T, f fixture, maxBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			require.NoError(t, err)
			c.Set("userId", id)
		}
		c.Next()
	})
	protected := r.Group("/", middleware.RequireLogin())
	NewHandler(f.svc, maxBytes).RegisterRoutes(protected, nil)
	return r
}

func uploadRequest(t *testing.T, user int64, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-User", strconv.FormatInt(user, 10))
	return req
}

func get(r http.Handler, path string, user int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user > 0 {
		req.Header.Set("X-Test-User", strconv.FormatInt(user, 10))
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAnalyzeRedirectsToResult(t *testing.T) {
	f := newFixture(t, 1, 2)
	r := newHandlerRouter(t, f, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, 1, "sample.jpeg", pngBytes(t, 16, 9), map[string]string{
		"ph":       "7.4",
		"location": "Tap 2",
	}))
	require.Equal(t, http.StatusSeeOther, resp.Code, resp.Body.String())
	assert.Equal(t, "/result/1", resp.Header().Get("Location"))

	result := get(r, "/result/1", 1)
	require.Equal(t, http.StatusOK, result.Code)
	var body struct {
		Analysis map[string]any `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(result.Body.Bytes(), &body))
	assert.Equal(t, "Tap 2", body.Analysis["location"])
	assert.Equal(t, 7.4, body.Analysis["ph"])
	assert.Contains(t, body.Analysis, "turbidity")
	assert.Nil(t, body.Analysis["turbidity"])
	data, ok := body.Analysis["analysis_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "16x9", data["image_dimensions"])

	img := get(r, "/result/1/image", 1)
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/jpeg", img.Header().Get("Content-Type"))
}

func TestResultDeniesOtherOwner(t *testing.T) {
	f := newFixture(t, 1, 2)
	r := newHandlerRouter(t, f, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, 1, "sample.png", pngBytes(t, 4, 4), nil))
	require.Equal(t, http.StatusSeeOther, resp.Code)

	denied := get(r, "/result/1", 2)
	assert.Equal(t, http.StatusFound, denied.Code)
	assert.Equal(t, "/dashboard", denied.Header().Get("Location"))
	assert.NotContains(t, denied.Body.String(), "copper_concentration")

	image := get(r, "/result/1/image", 2)
	assert.Equal(t, http.StatusFound, image.Code)

	missing := get(r, "/result/77", 1)
	assert.Equal(t, http.StatusFound, missing.Code)
	assert.Equal(t, "/dashboard", missing.Header().Get("Location"))
}

func TestAnalyzeRequiresLogin(t *testing.T) {
	f := newFixture(t, 1)
	r := newHandlerRouter(t, f, 0)

	req := uploadRequest(t, 1, "sample.png", pngBytes(t, 4, 4), nil)
	req.Header.Del("X-Test-User")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "/login?next=%2Fanalyze", resp.Header().Get("Location"))
	assert.Equal(t, 0, countFiles(t, f.dir))
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	f := newFixture(t, 1)
	r := newHandlerRouter(t, f, 1024)

	cases := []struct {
		name     string
		fileName string
		content  []byte
		fields   map[string]string
		want     int
	}{
		{name: "bad extension", fileName: "notes.txt", content: []byte("hello"), want: http.StatusBadRequest},
		{name: "no file", want: http.StatusBadRequest},
		{name: "not an image", fileName: "fake.png", content: []byte("plain text"), want: http.StatusUnprocessableEntity},
		{name: "too large", fileName: "big.png", content: bytes.Repeat([]byte{0}, 4096), want: http.StatusRequestEntityTooLarge},
		{name: "bad ph", fileName: "s.png", content: pngBytes(t, 2, 2), fields: map[string]string{"ph": "15"}, want: http.StatusBadRequest},
		{name: "ph not a number", fileName: "s.png", content: pngBytes(t, 2, 2), fields: map[string]string{"ph": "neutral"}, want: http.StatusBadRequest},
		{name: "infinite hardness", fileName: "s.png", content: pngBytes(t, 2, 2), fields: map[string]string{"hardness": "+Inf"}, want: http.StatusBadRequest},
		{name: "nan solids", fileName: "s.png", content: pngBytes(t, 2, 2), fields: map[string]string{"solids": "NaN"}, want: http.StatusBadRequest},
		{name: "negative infinity ph", fileName: "s.png", content: pngBytes(t, 2, 2), fields: map[string]string{"ph": "-Inf"}, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, uploadRequest(t, 1, tc.fileName, tc.content, tc.fields))
			assert.Equal(t, tc.want, resp.Code, resp.Body.String())
		})
	}

	recs, err := f.svc.Dashboard(t.Context(), 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, countFiles(t, f.dir))
}

func TestAnalysisErrorSurfacesUnderlyingMessage(t *testing.T) {
	f := newFixture(t, 1)
	r := newHandlerRouter(t, f, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, 1, "fake.png", []byte("plain text"), nil))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Flashes []struct {
			Category string `json:"category"`
		} `json:"flashes"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "analysis_failed", body.Error.Code)
	assert.Contains(t, body.Error.Message, "failed to analyze image")
	require.Len(t, body.Flashes, 1)
	assert.Equal(t, "danger", body.Flashes[0].Category)
}

func TestDashboardListsOwnRecordsNewestFirst(t *testing.T) {
	f := newFixture(t, 1, 2)
	r := newHandlerRouter(t, f, 0)

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, uploadRequest(t, 1, "s.png", pngBytes(t, 4, 4), nil))
		require.Equal(t, http.StatusSeeOther, resp.Code)
	}
	other := httptest.NewRecorder()
	r.ServeHTTP(other, uploadRequest(t, 2, "o.png", pngBytes(t, 4, 4), nil))
	require.Equal(t, http.StatusSeeOther, other.Code)

	resp := get(r, "/dashboard", 1)
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Analyses []struct {
			ID        int64  `json:"id"`
			Date      string `json:"date"`
			RiskColor string `json:"risk_color"`
		} `json:"analyses"`
		Count   int `json:"count"`
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Analyses, 3)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, 3, body.Summary.Total)
	assert.Equal(t, []int64{3, 2, 1}, []int64{body.Analyses[0].ID, body.Analyses[1].ID, body.Analyses[2].ID})
	assert.Len(t, body.Analyses[0].Date, len("2006-01-02 15:04:05"))
	assert.NotEmpty(t, body.Analyses[0].RiskColor)

	empty := get(r, "/dashboard", 3)
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), `"analyses":[]`)
}

func TestNonFiniteQualityKeepsDashboardReadable(t *testing.T) {
	f := newFixture(t, 1)
	r := newHandlerRouter(t, f, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, 1, "s.png", pngBytes(t, 2, 2), map[string]string{"hardness": "+Inf"}))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"hardness":"Not a valid number."`)

	dash := get(r, "/dashboard", 1)
	require.Equal(t, http.StatusOK, dash.Code)
	require.True(t, json.Valid(dash.Body.Bytes()), dash.Body.String())
	assert.Contains(t, dash.Body.String(), `"analyses":[]`)
}

func TestAnalyzeAcceptsLongFileName(t *testing.T) {
	f := newFixture(t, 1)
	r := newHandlerRouter(t, f, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, 1, strings.Repeat("a", 250)+".png", pngBytes(t, 3, 3), nil))
	require.Equal(t, http.StatusSeeOther, resp.Code, resp.Body.String())

	rec, err := f.repo.GetByID(t.Context(), 1)
	require.NoError(t, err)
	assert.Less(t, len(rec.ImagePath), 255)
	assert.True(t, strings.HasSuffix(rec.ImagePath, ".png"), rec.ImagePath)

	img := get(r, "/result/1/image", 1)
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
}

func TestImageMissingFromStoreIsNotFound(t *testing.T) {
	f := newFixture(t, 1)
	r := newHandlerRouter(t, f, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, 1, "s.png", pngBytes(t, 3, 3), nil))
	require.Equal(t, http.StatusSeeOther, resp.Code)

	rec, err := f.repo.GetByID(t.Context(), 1)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.dir, filepath.FromSlash(rec.ImagePath))))

	img := get(r, "/result/1/image", 1)
	assert.Equal(t, http.StatusNotFound, img.Code)
	assert.Contains(t, img.Body.String(), "image not available")
}

func TestRepositoryFailureIsServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	store := localstore.New(dir)
	svc := NewService(failingRepo{}, store, analyzer.NewSimulated(store, nil))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", int64(1))
		c.Next()
	})
	NewHandler(svc, 0).RegisterRoutes(r.Group("/"), nil)

	for _, path := range []string{"/result/1", "/result/1/image"} {
		resp := get(r, path, 1)
		assert.Equal(t, http.StatusInternalServerError, resp.Code, path)
		assert.Contains(t, resp.Body.String(), "internal_error", path)
	}
}
