package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsJSON500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("classifier exploded")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"internal"`) {
		t.Fatalf("expected internal error code, got %s", resp.Body.String())
	}
	if !strings.Contains(buf.String(), "http.panic") || !strings.Contains(buf.String(), "classifier exploded") {
		t.Fatalf("expected panic log line, got %s", buf.String())
	}
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	got := resp.Header().Get("X-Request-Id")
	if got == "" || len(got) > 128 {
		t.Fatalf("expected generated request id, got %q", got)
	}
	if resp.Body.String() != got {
		t.Fatalf("context id %q does not match header %q", resp.Body.String(), got)
	}
}
