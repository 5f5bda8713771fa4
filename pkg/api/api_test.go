package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lemonberrylabs/nonbool/pkg/store"
)

const testModelSource = `
variables:
  - name: A
    values: [0, 1, 2]
  - name: N
    infinite: true
constants:
  K: 3
`

func setupTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s := store.New()
	srv, err := New(s, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, s
}

func doJSON(t *testing.T, srv *Server, method, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("invalid JSON response %q: %v", raw, err)
	}
	return resp.StatusCode, result
}

func createTestModel(t *testing.T, srv *Server, id string) {
	t.Helper()
	code, body := doJSON(t, srv, http.MethodPost, "/v1/models?modelId="+id, map[string]interface{}{
		"source":      testModelSource,
		"description": "test model",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
}

func errorField(t *testing.T, body map[string]interface{}, key string) interface{} {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	return e[key]
}

func TestCreateModel(t *testing.T) {
	srv, _ := setupTestServer(t)
	createTestModel(t, srv, "cfg")

	code, body := doJSON(t, srv, http.MethodGet, "/v1/models/cfg", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["name"] != "models/cfg" || body["description"] != "test model" {
		t.Errorf("unexpected model %v", body)
	}
	vars, _ := body["variables"].([]interface{})
	if len(vars) != 2 || vars[0] != "A" || vars[1] != "N" {
		t.Errorf("unexpected variables %v", body["variables"])
	}
}

func TestCreateModelErrors(t *testing.T) {
	srv, _ := setupTestServer(t)
	createTestModel(t, srv, "cfg")

	tests := []struct {
		name   string
		url    string
		body   interface{}
		code   int
		status string
	}{
		{"missing id", "/v1/models", map[string]string{"source": testModelSource}, 400, "INVALID_ARGUMENT"},
		{"invalid id", "/v1/models?modelId=Bad!", map[string]string{"source": testModelSource}, 400, "INVALID_ARGUMENT"},
		{"invalid model", "/v1/models?modelId=x", map[string]string{"source": "variables: 3"}, 400, "INVALID_ARGUMENT"},
		{"duplicate", "/v1/models?modelId=cfg", map[string]string{"source": testModelSource}, 409, "ALREADY_EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, srv, http.MethodPost, tt.url, tt.body)
			if code != tt.code {
				t.Fatalf("expected %d, got %d: %v", tt.code, code, body)
			}
			if got := errorField(t, body, "status"); got != tt.status {
				t.Errorf("expected status %s, got %v", tt.status, got)
			}
		})
	}
}

func TestListUpdateDeleteModel(t *testing.T) {
	srv, _ := setupTestServer(t)
	createTestModel(t, srv, "b")
	createTestModel(t, srv, "a")

	code, body := doJSON(t, srv, http.MethodGet, "/v1/models", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	models, _ := body["models"].([]interface{})
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %v", body)
	}
	if first, _ := models[0].(map[string]interface{}); first["name"] != "models/a" {
		t.Errorf("expected sorted list, got %v", models)
	}

	code, body = doJSON(t, srv, http.MethodPatch, "/v1/models/a", map[string]string{
		"source": "variables:\n  - name: Z\n    values: [1]\n",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if vars, _ := body["variables"].([]interface{}); len(vars) != 1 || vars[0] != "Z" {
		t.Errorf("expected updated variables, got %v", body["variables"])
	}

	code, _ = doJSON(t, srv, http.MethodDelete, "/v1/models/a", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	code, body = doJSON(t, srv, http.MethodGet, "/v1/models/a", nil)
	if code != http.StatusNotFound || errorField(t, body, "status") != "NOT_FOUND" {
		t.Errorf("expected 404, got %d: %v", code, body)
	}
	code, _ = doJSON(t, srv, http.MethodPatch, "/v1/models/a", map[string]string{"description": "x"})
	if code != http.StatusNotFound {
		t.Errorf("expected 404 on update of deleted model, got %d", code)
	}
}

func TestEvaluate(t *testing.T) {
	srv, s := setupTestServer(t)
	createTestModel(t, srv, "cfg")

	tests := []struct {
		expression string
		mode       string
		result     string
		formula    string
	}{
		{"(A & 2) > 0", "", "defined(A_eq_2)", "A_eq_2"},
		{"(A & 2) > 0", "plain", "A_eq_2", "A_eq_2"},
		{"K == 3", "cpp", "1", "1"},
		{"N > 5", "cpp", "defined(N)", "N"},
	}

	for _, tt := range tests {
		t.Run(tt.expression+"/"+tt.mode, func(t *testing.T) {
			code, body := doJSON(t, srv, http.MethodPost, "/v1/models/cfg:evaluate", map[string]string{
				"expression": tt.expression,
				"mode":       tt.mode,
			})
			if code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %v", code, body)
			}
			if body["result"] != tt.result {
				t.Errorf("result: got %v, want %q", body["result"], tt.result)
			}
			if body["formula"] != tt.formula {
				t.Errorf("formula: got %v, want %q", body["formula"], tt.formula)
			}
		})
	}

	m, _ := s.GetModel("models/cfg")
	if m.Counters.Conversions != int64(len(tests)) || m.Counters.Failures != 0 {
		t.Errorf("unexpected counters %+v", m.Counters)
	}
}

func TestEvaluateErrors(t *testing.T) {
	srv, _ := setupTestServer(t)
	createTestModel(t, srv, "cfg")

	code, body := doJSON(t, srv, http.MethodPost, "/v1/models/cfg:evaluate", map[string]string{"expression": "A =="})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", code, body)
	}
	tags, _ := errorField(t, body, "tags").([]interface{})
	if len(tags) != 2 || tags[0] != "ParseError" || tags[1] != "MissingOperand" {
		t.Errorf("unexpected tags %v", tags)
	}
	if got := errorField(t, body, "marker"); got != "  ^" {
		t.Errorf("unexpected marker %q", got)
	}

	code, body = doJSON(t, srv, http.MethodPost, "/v1/models/cfg:evaluate", map[string]string{"expression": "A", "mode": "xml"})
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad mode, got %d: %v", code, body)
	}

	code, _ = doJSON(t, srv, http.MethodPost, "/v1/models/none:evaluate", map[string]string{"expression": "A"})
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestReplaceLines(t *testing.T) {
	srv, s := setupTestServer(t)
	createTestModel(t, srv, "cfg")

	code, body := doJSON(t, srv, http.MethodPost, "/v1/models/cfg:replace", map[string]interface{}{
		"lines": []string{"#if A == 1", "#ifdef A", "#elif A && K"},
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	results, _ := body["results"].([]interface{})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %v", body)
	}

	first, _ := results[0].(map[string]interface{})
	if first["output"] != "#if defined(A_eq_1)" {
		t.Errorf("unexpected first result %v", first)
	}
	second, _ := results[1].(map[string]interface{})
	errBody, _ := second["error"].(map[string]interface{})
	if tags, _ := errBody["tags"].([]interface{}); len(tags) != 1 || tags[0] != "DirectiveError" {
		t.Errorf("unexpected second result %v", second)
	}
	third, _ := results[2].(map[string]interface{})
	if third["output"] != "#elif !defined(A_eq_0) && 1" {
		t.Errorf("unexpected third result %v", third)
	}
	if body["replaced"] != float64(2) || body["failed"] != float64(1) {
		t.Errorf("unexpected totals %v", body)
	}

	m, _ := s.GetModel("models/cfg")
	if m.Counters.Conversions != 3 || m.Counters.Failures != 1 {
		t.Errorf("unexpected counters %+v", m.Counters)
	}
}

func TestLoadDir(t *testing.T) {
	srv, s := setupTestServer(t)
	dir := t.TempDir()
	files := map[string]string{
		"Board.yaml":  testModelSource,
		"other.json":  `{"variables": [{"name": "B", "values": [1]}]}`,
		"broken.yml":  "variables: 3",
		"bad id.yaml": testModelSource,
		"notes.txt":   "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := srv.LoadDir(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list := s.ListModels()
	if len(list) != 2 || list[0].Name != "models/board" || list[1].Name != "models/other" {
		t.Errorf("unexpected models %+v", list)
	}

	if err := srv.LoadDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatchDir(t *testing.T) {
	srv, s := setupTestServer(t)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.WatchDir(ctx, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "live.yaml")
	if err := os.WriteFile(path, []byte(testModelSource), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "model to load", func() bool {
		_, err := s.GetModel("models/live")
		return err == nil
	})

	update := "variables:\n  - name: Q\n    values: [1]\n"
	if err := os.WriteFile(path, []byte(update), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "model to reload", func() bool {
		m, err := s.GetModel("models/live")
		if err != nil {
			return false
		}
		_, ok := m.Variables.Lookup("Q")
		return ok
	})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "model to unload", func() bool {
		_, err := s.GetModel("models/live")
		return err != nil
	})

	if err := srv.WatchDir(ctx, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
