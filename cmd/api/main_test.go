package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBasicAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(basicAuthMiddleware("user", "pass"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		path       string
		user, pass string
		want       int
	}{
		{"/health", "", "", http.StatusOK},
		{"/api/items", "", "", http.StatusUnauthorized},
		{"/api/items", "user", "wrong", http.StatusUnauthorized},
		{"/api/items", "user", "pass", http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, c.path, nil)
		if c.user != "" {
			req.SetBasicAuth(c.user, c.pass)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != c.want {
			t.Fatalf("%s as %q: status = %d, want %d", c.path, c.user, w.Code, c.want)
		}
	}
}
