package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Lixing-Zhang/farmstand/internal/repository"
	"github.com/Lixing-Zhang/farmstand/internal/service"
	"github.com/Lixing-Zhang/farmstand/pkg/logger"
)

type testApp struct {
	store  *repository.MemoryStore
	router http.Handler
}

// newTestApp wires the full router over a seeded in-memory store.
func newTestApp(t *testing.T, withFarms bool) *testApp {
	t.Helper()

	store := repository.NewMemoryStore()
	if _, err := repository.Seed(context.Background(), store.Products()); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	log := logger.New("error")
	v := service.NewValidator()

	cfg := RouterConfig{
		Logger:   log,
		Health:   NewHealthHandler(log, map[string]Pinger{"store": store}),
		Products: NewProductHandler(service.NewProductService(store, v, log), log),
	}
	if withFarms {
		cfg.Farms = NewFarmHandler(service.NewFarmService(store, v, log), log)
	}

	return &testApp{store: store, router: NewRouter(cfg)}
}

func (a *testApp) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(target string) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, target, nil, "")
}

func (a *testApp) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
