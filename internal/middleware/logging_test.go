package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/lists/9" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/health", "/api/lists", "/api/lists/9"} {
		req := httptest.NewRequest("GET", path, nil)
		req.RemoteAddr = "10.0.0.7:5555"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	out := buf.String()
	if strings.Contains(out, "path=/health") {
		t.Errorf("health check should log at debug: %q", out)
	}
	if !strings.Contains(out, "level=INFO msg=request method=GET path=/api/lists status=200 bytes=2") {
		t.Errorf("missing info line: %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status=404") {
		t.Errorf("missing warn line for 404: %q", out)
	}
	if !strings.Contains(out, "remote=10.0.0.7") {
		t.Errorf("missing remote ip: %q", out)
	}
}
