package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("production", &buf)
	l.Debug("hidden")
	l.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug logged in production")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info not logged")
	}

	buf.Reset()
	NewWithWriter("local", &buf).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug not logged in local")
	}
}

func TestFromFallsBackToDefault(t *testing.T) {
	if From(context.Background()) == nil {
		t.Fatal("From returned nil")
	}

	var buf bytes.Buffer
	l := NewWithWriter("local", &buf)
	ctx := With(context.Background(), l)
	From(ctx).Info("through context")
	if !strings.Contains(buf.String(), "through context") {
		t.Error("context logger not used")
	}
}

func TestMiddlewareAttachesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := NewWithWriter("local", &buf)

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/ping", func(c *gin.Context) {
		From(c.Request.Context()).Info("inside handler")
		FromGin(c).Info("via gin context")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") == "" {
		t.Error("request id header not set")
	}

	dec := json.NewDecoder(strings.NewReader(buf.String()))
	seen := 0
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("bad log line: %v", err)
		}
		if rid, _ := line["request_id"].(string); rid == "" {
			t.Errorf("log line missing request_id: %v", line)
		}
		seen++
	}
	// Two handler lines plus the request summary.
	if seen != 3 {
		t.Errorf("log lines = %d, want 3", seen)
	}
}
