package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warehouse/internal/inventory"
	"warehouse/internal/logging"
	"warehouse/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, *inventory.Warehouse) {
	t.Helper()
	w, err := inventory.New(inventory.DefaultConfig())
	if err != nil {
		t.Fatalf("inventory.New() error = %v", err)
	}
	w.AddProduct(3, "bolt", 7, 0, 2)
	w.AddProduct(13, "nut", 4, 0, 1)
	return New("127.0.0.1:0", w, metrics.NewRegistry("warehouse", w)), w
}

func do(t *testing.T, s *Server, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) Response {
	t.Helper()
	var resp Response
	if data != nil {
		resp.Data = data
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return resp
}

func TestServer_Routes(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "health", path: "/health", wantStatus: http.StatusOK},
		{name: "stats", path: "/api/v1/stats", wantStatus: http.StatusOK},
		{name: "sectors", path: "/api/v1/sectors", wantStatus: http.StatusOK},
		{name: "sector", path: "/api/v1/sectors/3", wantStatus: http.StatusOK},
		{name: "sector out of range", path: "/api/v1/sectors/10", wantStatus: http.StatusNotFound},
		{name: "sector not numeric", path: "/api/v1/sectors/x", wantStatus: http.StatusNotFound},
		{name: "product", path: "/api/v1/products/13", wantStatus: http.StatusOK},
		{name: "missing product", path: "/api/v1/products/23", wantStatus: http.StatusNotFound},
		{name: "dump", path: "/api/v1/dump", wantStatus: http.StatusOK},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.path, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
			if rec.Header().Get(logging.CorrelationIDHeader) == "" {
				t.Errorf("GET %s missing correlation ID header", tt.path)
			}
		})
	}
}

func TestServer_Product(t *testing.T) {
	s, _ := newTestServer(t)

	var body ProductResponse
	resp := decode(t, do(t, s, "/api/v1/products/13", nil), &body)
	if !resp.Success {
		t.Fatalf("response not successful: %+v", resp)
	}
	if body.Product.Name != "nut" || body.Location.Sector != 3 || body.Location.Slot != 1 {
		t.Errorf("product response = %+v, want nut at sector 3 slot 1", body)
	}
}

func TestServer_Sector(t *testing.T) {
	s, _ := newTestServer(t)

	var snap inventory.SectorSnapshot
	decode(t, do(t, s, "/api/v1/sectors/3", nil), &snap)
	if snap.Size != 2 || snap.Capacity != 5 || snap.Products[0].ID != 13 {
		t.Errorf("sector snapshot = %+v, want 2/5 with 13 at the root", snap)
	}
}

func TestServer_Dump(t *testing.T) {
	s, w := newTestServer(t)

	rec := do(t, s, "/api/v1/dump", nil)
	if got := strings.TrimSpace(rec.Body.String()); got != w.Dump() {
		t.Errorf("dump body = %q, want %q", got, w.Dump())
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("dump response has no ETag")
	}

	rec = do(t, s, "/api/v1/dump", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional dump status = %d, want %d", rec.Code, http.StatusNotModified)
	}

	w.RestockProduct(3, 1)
	rec = do(t, s, "/api/v1/dump", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusOK {
		t.Errorf("dump after change status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, "/metrics", nil)
	if !strings.Contains(rec.Body.String(), `warehouse_sector_occupancy{sector="3"} 2`) {
		t.Errorf("metrics output missing sector 3 occupancy:\n%s", rec.Body.String())
	}
}

func TestServer_NoMetricsWithoutRegistry(t *testing.T) {
	w, _ := inventory.New(inventory.DefaultConfig())
	s := New("127.0.0.1:0", w, nil)
	if rec := do(t, s, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
