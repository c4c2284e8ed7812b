package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// capture logs from LoggerFrom(c)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// simulate RequestID + request-scoped logger
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	})

	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}

	// ensure something was logged at error level
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_404_NotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	})
	r.GET("/nf", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nf", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.RequestID != "rid-404" || resp.Code != ErrCodeNotFound {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx should not be logged, got: %s", buf.String())
	}
}

func Test_failService_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	orch := &services.OrchestrationError{
		Kind:     domain.KindCompany,
		Attempts: 3,
		Err:      fmt.Errorf("%w: element not found", services.ErrDriverFailure),
	}

	cases := []struct {
		name     string
		err      error
		status   int
		code     string
		contains string
	}{
		{"invalid", fmt.Errorf("%w: missing trade_name", services.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest, "trade_name"},
		{"reused", services.ErrKeyReused, http.StatusConflict, ErrCodeConflict, "reused"},
		{"orchestration", fmt.Errorf("wrapped: %w", orch), http.StatusInternalServerError, ErrCodeSubmissionFailed, "after 3 attempts"},
		{"allocation", fmt.Errorf("%w: db locked", services.ErrAllocationFailed), http.StatusInternalServerError, ErrCodeAllocationFailed, "db locked"},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, "boom"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { failService(c, tc.err, ErrCodeInternal) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json: %v", err)
			}
			if resp.Code != tc.code {
				t.Fatalf("code=%q want %q", resp.Code, tc.code)
			}
			if !strings.Contains(resp.Message, tc.contains) {
				t.Fatalf("message %q does not contain %q", resp.Message, tc.contains)
			}
		})
	}
}
