package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemTestRouter(lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/orders",
		IdempotencyValidator(IdempotencyOptions{MaxLen: 32}, lookup),
		func(c *gin.Context) {
			key, has := GetIdempotencyKey(c)
			c.JSON(http.StatusOK, gin.H{
				"key":    key,
				"has":    has,
				"replay": IsReplay(c),
				"bypass": IsRateBypass(c),
			})
		})
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeaderIsNoOp(t *testing.T) {
	w := postWithKey(idemTestRouter(nil), "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"has":false`) {
		t.Fatalf("unexpected: %d %s", w.Code, w.Body)
	}
}

func TestIdempotencyValidator_StashesValidKey(t *testing.T) {
	w := postWithKey(idemTestRouter(nil), "order-retry_1.a:b~c")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"key":"order-retry_1.a:b~c"`) {
		t.Fatalf("unexpected: %d %s", w.Code, w.Body)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	r := idemTestRouter(nil)
	for _, key := range []string{
		"has spaces",
		"emoji-🔁",
		strings.Repeat("x", 33), // over MaxLen
	} {
		if w := postWithKey(r, key); w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: expected 400, got %d", key, w.Code)
		}
	}
}

func TestIdempotencyValidator_MarksReplay(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		return true, nil
	}
	w := postWithKey(idemTestRouter(lookup), "seen-before")
	body := w.Body.String()
	if !strings.Contains(body, `"replay":true`) || !strings.Contains(body, `"bypass":true`) {
		t.Fatalf("expected replay+bypass marked: %s", body)
	}
}
