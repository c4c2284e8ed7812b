package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusOK},
		{"missing", "s3cret", "", http.StatusForbidden},
		{"wrong", "s3cret", "nope", http.StatusForbidden},
		{"prefix", "s3cret", "s3c", http.StatusForbidden},
		{"match", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(APIKey(tc.key))
		r.GET("/config", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/config", nil)
		if tc.header != "" {
			req.Header.Set(HeaderAPIKey, tc.header)
		}
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: got %d; want %d", tc.name, w.Code, tc.want)
		}
	}
}
