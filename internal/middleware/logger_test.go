package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogger_RecordsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Product not found"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/products/abc", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}

	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
	if entry["bytes"] != float64(len("Product not found")) {
		t.Errorf("bytes = %v, want %d", entry["bytes"], len("Product not found"))
	}
	if entry["path"] != "/products/abc" {
		t.Errorf("path = %v, want /products/abc", entry["path"])
	}
}
