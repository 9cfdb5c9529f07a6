package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// asSubject injects claims so each test gets its own limiter key; the
// limiter store is package-global and would otherwise bleed between tests.
func asSubject(sub string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"sub": sub})
		c.Next()
	}
}

func TestRateLimitMiddlewareAllowsUnderLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asSubject("under-limit"), RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddlewareBlocksWhenExceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asSubject("exceeded"), RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	// bucket drained, immediate second request is rejected
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.Equal(t, "1", w2.Header().Get("Retry-After"))

	// a replenished token lets the next one through
	time.Sleep(2100 * time.Millisecond)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestLimiterKeyPrefersSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var key string
	r.Use(asSubject("user-123"), func(c *gin.Context) {
		key = limiterKey(c)
		c.Next()
	})
	r.GET("/k", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/k", nil))
	require.Equal(t, "sub:user-123", key)
}

func TestLimiterKeyFallsBackToIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var key string
	r.Use(func(c *gin.Context) {
		key = limiterKey(c)
		c.Next()
	})
	r.GET("/k", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/k", nil))
	require.True(t, len(key) > 3 && key[:3] == "ip:", "key = %q", key)
}
