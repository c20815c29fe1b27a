package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight: %d %v", w.Code, w.Header())
	}

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign preflight: %d", w.Code)
	}
}

func TestManagerStopsAtAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	reached := false
	m.Add(func(c *gin.Context) { c.AbortWithStatus(http.StatusTeapot) })
	r := gin.New()
	r.Use(m.Use(), Recovery())
	r.GET("/x", func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTeapot || reached {
		t.Fatalf("code=%d reached=%v", w.Code, reached)
	}
}

func TestRouterAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	rt := NewRouter(r, deny)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	rt.GET("/open", ok, RouteOpt{})
	rt.GET("/closed", ok, RouteOpt{IsAuth: true})

	for path, want := range map[string]int{"/open": http.StatusOK, "/closed": http.StatusUnauthorized} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s: %d", path, w.Code)
		}
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), RequestLog())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", w.Code)
	}
}
