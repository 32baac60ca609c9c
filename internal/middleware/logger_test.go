package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, path, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_EchoesCallerID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		assert.Equal(t, "req-abc", c.GetString("request_id"))
		c.Status(http.StatusOK)
	})

	w := serve(r, "/x", "req-abc")
	assert.Equal(t, "req-abc", w.Header().Get("X-Request-ID"))
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "/x", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLogger_SkipsHealthProbes(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/models", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/healthz", "")
	assert.Empty(t, buf.String())

	serve(r, "/v1/models", "req-1")
	assert.Contains(t, buf.String(), "http: [req-1] GET /v1/models 200")
}
