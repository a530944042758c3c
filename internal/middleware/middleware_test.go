package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoWorkspace(c *gin.Context) {
	c.String(http.StatusOK, WorkspaceID(c)+"|"+UserID(c))
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(Auth("s3cret"))
	r.GET("/", echoWorkspace)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := SignToken("s3cret", "ws-7", "user-1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ws-7|user-1", w.Body.String())

	forged, err := SignToken("other", "ws-7", "user-1")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	noWorkspace, err := SignToken("s3cret", "", "user-1")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+noWorkspace)
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(Auth(""))
	r.GET("/", echoWorkspace)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, DefaultWorkspace+"|", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(WorkspaceHeader, "ws-3")
	w = serve(r, req)
	assert.Equal(t, "ws-3|", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.Use(Auth(""), RateLimit(limiter))
	r.GET("/", echoWorkspace)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(WorkspaceHeader, "ws-2")
	assert.Equal(t, http.StatusOK, serve(r, req).Code, "limits are per workspace")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/bad", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Request handled", entries[0].Message)
	assert.Equal(t, "/ok?x=1", entries[0].ContextMap()["path"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}
