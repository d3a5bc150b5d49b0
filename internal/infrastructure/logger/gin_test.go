package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(GinMiddleware(logger))
	return router, logs
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs successful request at info", func(t *testing.T) {
		router, logs := newObservedRouter(t)
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping?v=1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		entries := logs.FilterMessage("HTTP Request").All()
		assert.Len(t, entries, 1)
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
	})

	t.Run("logs server error at error level", func(t *testing.T) {
		router, logs := newObservedRouter(t)
		router.GET("/boom", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		entries := logs.FilterMessage("HTTP Request").All()
		assert.Len(t, entries, 1)
		assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	})

	t.Run("exposes request-scoped logger to handlers", func(t *testing.T) {
		router, _ := newObservedRouter(t)
		var handlerLogger *zap.Logger
		router.GET("/scoped", func(c *gin.Context) {
			handlerLogger = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scoped", nil))

		assert.NotNil(t, handlerLogger)
	})
}

func TestRecovery(t *testing.T) {
	router, logs := newObservedRouter(t)
	router.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, logs.FilterMessage("Panic recovered").All(), 1)
}
