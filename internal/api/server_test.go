package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/pas-client-core/internal/clientconfig"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/config"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/logging"
	"github.com/nerrad567/pas-client-core/internal/inventory"
	"github.com/nerrad567/pas-client-core/internal/topology"
)

type rowSource struct {
	mu  sync.Mutex
	err error
}

func (s *rowSource) PanelRows(_ context.Context, position int) ([]topology.PanelRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	switch position {
	case 1121:
		return []topology.PanelRow{{Serial: 11, IPAddress: "172.17.1.21"}}, nil
	case 1122:
		return []topology.PanelRow{{Serial: 12, IPAddress: "172.17.1.22"}}, nil
	}
	return nil, nil
}

func (s *rowSource) ActuatorRows(_ context.Context, panel int) ([]topology.ActuatorRow, error) {
	if panel == 1121 {
		return []topology.ActuatorRow{{Serial: 2001, Position: 1, Port: 1}}, nil
	}
	return nil, nil
}

func (s *rowSource) SensorRows(_ context.Context, panel int) ([]topology.SensorRow, error) {
	if panel == 1121 {
		return []topology.SensorRow{{Serial: 301, WPosition: 1, Port: 3, LPanel: 1122}}, nil
	}
	return nil, nil
}

const testSettings = `UaClientConfig:
  ApplicationName: PASClient
  NSArray:
    size: 2
    NameSpaceUri00: http://opcfoundation.org/UA/
    NameSpaceUri01: urn:cta:p2pas:panel
  NodesToRead:
    size: 1
    Variable00: ns=1;s=Panel.State
  NodesToWrite:
    size: 1
    Variable00: ns=1;s=Panel.Target
    DataType00: 11
    Value00: "1.5"
`

// testServer creates a Server over a client configuration. When load is
// true the topology of panels 1121 and 1122 is loaded and published.
func testServer(t *testing.T, load bool) (*Server, *rowSource) {
	t.Helper()

	src := &rowSource{}
	client := clientconfig.New(topology.NewLoader(src, topology.DefaultPanelAddressing()), "")

	path := filepath.Join(t.TempDir(), "pasclient.yaml")
	if err := os.WriteFile(path, []byte(testSettings), 0600); err != nil {
		t.Fatalf("writing settings: %v", err)
	}
	if err := client.LoadConnectionConfiguration(path); err != nil {
		t.Fatalf("LoadConnectionConfiguration() error = %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:   log,
		Topology: client,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	client.OnTopologyLoaded(func(result *topology.LoadResult) {
		snap, _ := inventory.Take(result)
		srv.Publish(snap)
	})
	if load {
		if err := client.LoadDeviceConfiguration(context.Background(), []string{"1121", "1122"}); err != nil {
			t.Fatalf("LoadDeviceConfiguration() error = %v", err)
		}
	}
	return srv, src
}

func do(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.Default()
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without topology error = nil")
	}
	if _, err := New(Deps{Topology: clientconfig.New(nil, "")}); err == nil {
		t.Error("New() without logger error = nil")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, true)

	w := do(t, srv, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decode(t, w)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
	if resp["load_id"] == "" {
		t.Error("health load_id is empty after load")
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := testServer(t, false)

	w := do(t, srv, http.MethodGet, "/api/v1/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	srv, _ := testServer(t, true)

	if w := do(t, srv, http.MethodGet, "/api/v1/nonexistent"); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := do(t, srv, http.MethodDelete, "/api/v1/health"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE health status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestTopologyBeforeLoad(t *testing.T) {
	srv, _ := testServer(t, false)

	for _, path := range []string{"/api/v1/topology", "/api/v1/topology/panel", "/api/v1/topology/panel/11"} {
		if w := do(t, srv, http.MethodGet, path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusServiceUnavailable)
		}
	}
}

func TestTopologySummary(t *testing.T) {
	srv, _ := testServer(t, true)

	w := do(t, srv, http.MethodGet, "/api/v1/topology")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decode(t, w)
	counts, ok := resp["counts"].(map[string]any)
	if !ok {
		t.Fatalf("counts = %T", resp["counts"])
	}
	want := map[string]float64{"Panel": 2, "ACT": 1, "MPES": 1, "Edge": 1, "Mirror": 1}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("counts[%s] = %v, want %v", name, counts[name], n)
		}
	}
	if resp["servers"] != float64(2) {
		t.Errorf("servers = %v, want 2", resp["servers"])
	}
}

func TestListDevices(t *testing.T) {
	srv, _ := testServer(t, true)

	w := do(t, srv, http.MethodGet, "/api/v1/topology/actuator")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["type"] != "ACT" || resp["count"] != float64(1) {
		t.Errorf("list = %v", resp)
	}

	if w := do(t, srv, http.MethodGet, "/api/v1/topology/telescope"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetDevice(t *testing.T) {
	srv, _ := testServer(t, true)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/topology/MPES/301", http.StatusOK},
		{"/api/v1/topology/edge/1121-1122", http.StatusOK},
		{"/api/v1/topology/edge/1121+1122", http.StatusOK},
		{"/api/v1/topology/mirror/1", http.StatusOK},
		{"/api/v1/topology/panel/99", http.StatusNotFound},
		{"/api/v1/topology/panel/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := do(t, srv, http.MethodGet, tt.path); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetParents(t *testing.T) {
	srv, _ := testServer(t, true)

	w := do(t, srv, http.MethodGet, "/api/v1/topology/sensor/301/parents")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Type    string             `json:"type"`
		Parents []inventory.Parent `json:"parents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Type != "MPES" {
		t.Errorf("type = %q, want MPES", resp.Type)
	}
	if len(resp.Parents) != 3 {
		t.Fatalf("parents = %+v, want 3", resp.Parents)
	}
	if resp.Parents[0].Type != "Panel" || resp.Parents[0].Identity.Position != 1121 {
		t.Errorf("first parent = %+v, want Panel 1121", resp.Parents[0])
	}
	if resp.Parents[1].Type != "Edge" || resp.Parents[2].Type != "Mirror" {
		t.Errorf("parents = %+v, want Panel, Edge, Mirror", resp.Parents)
	}
}

func TestGetPosition(t *testing.T) {
	srv, _ := testServer(t, true)

	w := do(t, srv, http.MethodGet, "/api/v1/topology/panel/12/position")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["position"] != float64(1122) {
		t.Errorf("position = %v, want 1122", resp["position"])
	}

	if w := do(t, srv, http.MethodGet, "/api/v1/topology/panel/77/position"); w.Code != http.StatusNotFound {
		t.Errorf("missing serial status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestLookupSerial(t *testing.T) {
	srv, _ := testServer(t, true)

	w := do(t, srv, http.MethodGet, "/api/v1/topology/ACT/lookup?panel=opc.tcp://172.17.1.21:4840&port=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["serial"] != float64(2001) {
		t.Errorf("serial = %v, want 2001", resp["serial"])
	}

	tests := []struct {
		query string
		want  int
	}{
		{"port=1", http.StatusBadRequest},
		{"panel=opc.tcp://172.17.1.21:4840&port=x", http.StatusBadRequest},
		{"panel=opc.tcp://172.17.1.21:4840&port=9", http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := do(t, srv, http.MethodGet, "/api/v1/topology/ACT/lookup?"+tt.query); w.Code != tt.want {
			t.Errorf("lookup?%s status = %d, want %d", tt.query, w.Code, tt.want)
		}
	}
}

func TestReload(t *testing.T) {
	srv, src := testServer(t, true)
	first := srv.topology.LoadID()

	w := do(t, srv, http.MethodPost, "/api/v1/topology/reload")
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body %s", w.Code, w.Body.String())
	}
	second := decode(t, w)["load_id"]
	if second == first {
		t.Error("reload did not produce a new load id")
	}

	src.mu.Lock()
	src.err = errors.New("server has gone away")
	src.mu.Unlock()

	w = do(t, srv, http.MethodPost, "/api/v1/topology/reload")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed reload status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if got := srv.topology.LoadID(); got != second {
		t.Errorf("LoadID() = %q after failed reload, want %q kept", got, second)
	}
}

func TestConnection(t *testing.T) {
	srv, _ := testServer(t, false)

	w := do(t, srv, http.MethodGet, "/api/v1/connection")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		ApplicationName string      `json:"application_name"`
		Namespaces      []string    `json:"namespaces"`
		NodesToRead     []string    `json:"nodes_to_read"`
		NodesToWrite    []writeNode `json:"nodes_to_write"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ApplicationName != "PASClient" || len(resp.Namespaces) != 2 {
		t.Errorf("connection = %+v", resp)
	}
	if len(resp.NodesToRead) != 1 || resp.NodesToRead[0] != "ns=1;s=Panel.State" {
		t.Errorf("nodes_to_read = %v", resp.NodesToRead)
	}
	if len(resp.NodesToWrite) != 1 || resp.NodesToWrite[0].Value != 1.5 {
		t.Errorf("nodes_to_write = %+v", resp.NodesToWrite)
	}
}

func TestStartClose(t *testing.T) {
	srv, _ := testServer(t, true)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start error = nil")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live health status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
