package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMaskTokenParam(t *testing.T) {
	cases := []struct {
		in       string
		contains string
		excludes string
	}{
		{"token=eyJhbGciOi.secret.sig", "token=%5BREDACTED%5D", "secret"},
		{"page=2&token=abc", "page=2", "abc"},
		{"page=2", "page=2", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		out := maskTokenParam(c.in)
		if c.contains != "" && !strings.Contains(out, c.contains) {
			t.Fatalf("maskTokenParam(%q) = %q, expected to contain %q", c.in, out, c.contains)
		}
		if c.excludes != "" && strings.Contains(out, c.excludes) {
			t.Fatalf("maskTokenParam(%q) = %q leaked %q", c.in, out, c.excludes)
		}
	}
}

func TestRedactingLogger_PassesRequestThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-API-Key"}}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping?token=supersecret&user=a@b.com", nil)
	req.Header.Set("Authorization", "Bearer supersecret")
	req.Header.Set("X-API-Key", "supersecret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("middleware altered the response: %d %s", w.Code, w.Body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}
