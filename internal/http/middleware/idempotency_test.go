package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHelpers_GetIdempotencyKey_IsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string key must read as absent")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
}

func TestIdempotencyValidator_NoHeaderOrSafeMethod_Skips(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	called := false
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	handler := func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should not be stashed")
		}
		c.Status(http.StatusNoContent)
	}
	r.POST("/submissions/company", handler)
	r.GET("/submissions/company", handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submissions/company", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/submissions/company", nil)
	req.Header.Set(HeaderIdempotencyKey, "k1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for GET, got %d", w.Code)
	}
	if called {
		t.Fatalf("lookup must not run without a header or on safe methods")
	}
}

func TestIdempotencyValidator_InvalidKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5}, "abcdef"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc123"},
		{"default pattern", IdempotencyOptions{}, "has space"},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(IdempotencyValidator(tc.opts, nil))
		r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(HeaderIdempotencyKey, tc.key)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid json: %v", tc.name, err)
		}
		if body["code"] != "bad_idempotency_key" {
			t.Fatalf("%s: unexpected body: %v", tc.name, body)
		}
	}
}

func TestIdempotencyValidator_LookupScopeMissAndHit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, hit := range []bool{false, true} {
		r := gin.New()
		var gotScope, gotKey string
		lookup := func(_ context.Context, scope, key string, now time.Time) (bool, error) {
			if now.IsZero() {
				t.Fatalf("lookup time not populated")
			}
			gotScope, gotKey = scope, key
			return hit, nil
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
		r.POST("/api/v1/submissions/individual", func(c *gin.Context) {
			if IsReplay(c) != hit || IsRateBypass(c) != hit {
				t.Fatalf("hit=%v: replay=%v bypass=%v", hit, IsReplay(c), IsRateBypass(c))
			}
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/individual", nil)
		req.Header.Set(HeaderIdempotencyKey, "key-1")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("hit=%v: expected 200, got %d", hit, w.Code)
		}
		if gotScope != "individual" || gotKey != "key-1" {
			t.Fatalf("lookup args: scope=%q key=%q", gotScope, gotKey)
		}
	}
}

func TestIdempotencyValidator_CustomScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotScope string
	r.Use(IdempotencyValidator(IdempotencyOptions{
		Scope: func(*gin.Context) string { return "fixed" },
	}, func(_ context.Context, scope, _ string, _ time.Time) (bool, error) {
		gotScope = scope
		return false, context.Canceled
	}))
	r.POST("/a", func(c *gin.Context) {
		if IsReplay(c) {
			t.Fatalf("lookup error must read as miss")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/a", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || gotScope != "fixed" {
		t.Fatalf("code=%d scope=%q", w.Code, gotScope)
	}
}
