package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/policysimplify/internal/config"
	"github.com/hyperjump/policysimplify/internal/embedding"
	"github.com/hyperjump/policysimplify/internal/export"
	"github.com/hyperjump/policysimplify/internal/extract"
	"github.com/hyperjump/policysimplify/internal/indexer"
	"github.com/hyperjump/policysimplify/internal/keyword"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/internal/snapshot"
	"github.com/hyperjump/policysimplify/internal/storage"
	"github.com/hyperjump/policysimplify/internal/vector"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

type stubAnalyst struct {
	risk string
	err  error
}

func (a *stubAnalyst) Summarize(context.Context, string) (string, error) {
	return "- Departments file an annual return.", a.err
}

func (a *stubAnalyst) Checklist(context.Context, string, string) (string, error) {
	return "- File the return — Owner: Finance — Due: 30 June", a.err
}

func (a *stubAnalyst) AssessRisk(context.Context, string, string) (string, error) {
	return a.risk + "\nFines apply.", a.err
}

func (a *stubAnalyst) Answer(_ context.Context, snippets []string, _ string) (string, error) {
	return "Finance files the return.", a.err
}

// flakyEmbedder fails every call while down is set.
type flakyEmbedder struct {
	*embedding.MockEmbedder
	mu   sync.Mutex
	down bool
}

func (e *flakyEmbedder) setDown(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.down = v
}

func (e *flakyEmbedder) isDown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.down
}

func (e *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.isDown() {
		return nil, embedding.ErrGateway
	}
	return e.MockEmbedder.Embed(ctx, text)
}

func (e *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.isDown() {
		return nil, embedding.ErrGateway
	}
	return e.MockEmbedder.EmbedBatch(ctx, texts)
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	store    *storage.SQLiteStorage
	analyst  *stubAnalyst
	embedder *flakyEmbedder
	cfg      *config.Config
	dir      string
}

func newTestEnv(t *testing.T, watch WatchService) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "policy.db")
	cfg.Storage.VectorDir = filepath.Join(dir, "vectors")
	cfg.Storage.CardIndexPath = filepath.Join(dir, "cards")

	emb := &flakyEmbedder{MockEmbedder: embedding.NewMockEmbedder(8)}
	snaps, err := snapshot.NewStore(cfg.Storage.VectorDir, string(vector.IndexTypeMemory), emb)
	if err != nil {
		t.Fatal(err)
	}
	index, err := snaps.NewIndex()
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cards, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cards.Close() })

	analyst := &stubAnalyst{risk: "High"}
	idx := indexer.NewIndexer(index, snaps, store, cards, analyst, extract.NewExtractor(), cfg)
	srv := NewServer(idx, store, cfg, zap.NewNop(), watch, "")
	return &testEnv{srv: srv, handler: srv.Handler(), store: store, analyst: analyst, embedder: emb, cfg: cfg, dir: dir}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

const policyText = `Annual Reporting Policy

All departments must file an annual compliance return with the Finance team.

Late filing attracts fines of up to 5000 dollars per breach.`

func (e *testEnv) ingest(t *testing.T, name, text string) *models.Card {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/ingest", map[string]string{
		"source_name": name,
		"content_b64": base64.StdEncoding.EncodeToString([]byte(text)),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest %s: got %d, body: %s", name, w.Code, w.Body.String())
	}
	var out ingestResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out.Card
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out.Error
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		key    string
		path   string
		want   int
	}{
		{"no secret configured", "", "", "/api/v1/events", http.StatusOK},
		{"missing key", "s3cret", "", "/api/v1/events", http.StatusUnauthorized},
		{"wrong key", "s3cret", "guess", "/api/v1/events", http.StatusUnauthorized},
		{"correct key", "s3cret", "s3cret", "/api/v1/events", http.StatusOK},
		{"health is open", "s3cret", "", "/health", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.cfg.Server.APISecret = tt.secret
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				r.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			env.handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleIngest(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/ingest", map[string]string{
		"source_name": "reporting.txt",
		"content_b64": base64.StdEncoding.EncodeToString([]byte(policyText)),
		"tenant":      "council",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out ingestResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.OK || out.Policy != "reporting.txt" || out.Risk != models.RiskHigh {
		t.Errorf("response: %+v", out)
	}
	if out.Card == nil || out.Card.Tenant != "council" {
		t.Fatalf("card: %+v", out.Card)
	}
	stored, err := env.store.GetCard(context.Background(), out.Card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.SourceType != "Uploaded" {
		t.Errorf("source type: got %q", stored.SourceType)
	}
}

func TestHandleIngest_PastedText(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/ingest", map[string]string{
		"source_name": "Pasted policy",
		"text":        policyText,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out ingestResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Card.SourceType != "Text" {
		t.Errorf("source type: got %q", out.Card.SourceType)
	}
}

func TestHandleIngest_Errors(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		name      string
		body      interface{}
		embedDown bool
		llmErr    error
		want      int
		wantMsg   string
	}{
		{"invalid json", "not an object", false, nil, http.StatusBadRequest, "invalid request body"},
		{"no content", map[string]string{"source_name": "a.txt"}, false, nil, http.StatusBadRequest, ""},
		{"bad base64", map[string]string{"source_name": "a.txt", "content_b64": "%%%"}, false, nil,
			http.StatusBadRequest, "content_b64 is not valid base64"},
		{"blank document", map[string]string{"source_name": "a.txt", "content_b64": b64("  \n ")}, false, nil,
			http.StatusBadRequest, indexer.ErrNoText.Error()},
		{"unsupported format", map[string]string{"source_name": "a.csv", "content_b64": b64("a,b")}, false, nil,
			http.StatusUnsupportedMediaType, extract.ErrUnsupportedFormat.Error()},
		{"embedding outage", map[string]string{"source_name": "a.txt", "content_b64": b64(policyText)}, true, nil,
			http.StatusBadGateway, "document failed to index"},
		{"analysis failure", map[string]string{"source_name": "a.txt", "content_b64": b64(policyText)}, false,
			errors.New("model overloaded"), http.StatusBadGateway, "policy analysis failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.embedder.setDown(tt.embedDown)
			env.analyst.err = tt.llmErr
			w := env.do(t, http.MethodPost, "/api/v1/ingest", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status: got %d, want %d, body: %s", w.Code, tt.want, w.Body.String())
			}
			if msg := decodeError(t, w); tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("error: got %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestHandleQA(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/qa", map[string]interface{}{"question": "Who files?"})
	if w.Code != http.StatusOK {
		t.Fatalf("empty index status: got %d", w.Code)
	}
	var empty indexer.Answer
	if err := json.NewDecoder(w.Body).Decode(&empty); err != nil {
		t.Fatal(err)
	}
	if empty.Answer != indexer.NoContextAnswer || len(empty.Sources) != 0 {
		t.Errorf("empty index answer: %+v", empty)
	}

	env.ingest(t, "reporting.txt", policyText)
	w = env.do(t, http.MethodPost, "/api/v1/qa", map[string]interface{}{"question": "Who files the return?", "k": 50})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out indexer.Answer
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Answer != "Finance files the return." {
		t.Errorf("answer: got %q", out.Answer)
	}
	if len(out.Sources) == 0 || len(out.Sources) > 8 {
		t.Fatalf("sources: got %d", len(out.Sources))
	}
	if out.Sources[0].Source != "reporting.txt" {
		t.Errorf("source: got %q", out.Sources[0].Source)
	}
}

func TestHandleQA_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "reporting.txt", policyText)

	w := env.do(t, http.MethodPost, "/api/v1/qa", map[string]interface{}{"question": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank question: got %d, want 400", w.Code)
	}

	env.embedder.setDown(true)
	w = env.do(t, http.MethodPost, "/api/v1/qa", map[string]interface{}{"question": "Who files?"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("search outage: got %d, want 503", w.Code)
	}
	if msg := decodeError(t, w); msg != "search temporarily unavailable" {
		t.Errorf("error: got %q", msg)
	}
}

func TestHandleListCards(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "high.txt", policyText)
	env.analyst.risk = "Low"
	env.ingest(t, "low.txt", policyText+"\n\nAppendix.")

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"high.txt", "low.txt"}},
		{"?risk=low", []string{"low.txt"}},
		{"?risk=High,Low", []string{"high.txt", "low.txt"}},
		{"?risk=medium", []string{}},
		{"?limit=1", []string{"high.txt"}},
		{"?tenant=other", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/cards"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d", w.Code)
			}
			var out struct {
				Cards []*models.Card `json:"cards"`
			}
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			got := make([]string, len(out.Cards))
			for i, c := range out.Cards {
				got[i] = c.Policy
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("cards: got %v, want %v", got, tt.want)
			}
		})
	}

	if w := env.do(t, http.MethodGet, "/api/v1/cards?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", w.Code)
	}
}

func TestHandleGetCard(t *testing.T) {
	env := newTestEnv(t, nil)
	card := env.ingest(t, "reporting.txt", policyText)

	if w := env.do(t, http.MethodGet, "/api/v1/cards/"+card.ID, nil); w.Code != http.StatusOK {
		t.Errorf("existing card: got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/cards/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing card: got %d, want 404", w.Code)
	}
}

func TestHandleSearchCards(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "reporting.txt", policyText)

	w := env.do(t, http.MethodGet, "/api/v1/cards/search?q=reporting", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Cards []*models.Card `json:"cards"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Cards) != 1 || out.Cards[0].Policy != "reporting.txt" {
		t.Errorf("cards: %+v", out.Cards)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/cards/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: got %d, want 400", w.Code)
	}
}

func TestHandleExport(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "reporting.txt", policyText)

	tests := []struct {
		format      string
		contentType string
	}{
		{"", "text/csv"},
		{"csv", "text/csv"},
		{"json", "application/json"},
		{"xlsx", export.FormatXLSX.ContentType()},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/cards/export?format="+tt.format, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("content type: got %q, want %q", ct, tt.contentType)
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "policy_items.") {
				t.Errorf("content disposition: got %q", cd)
			}
			if w.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}

	w := env.do(t, http.MethodGet, "/api/v1/cards/export?format=csv", nil)
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0][0] != "Policy" || records[1][0] != "reporting.txt" {
		t.Errorf("csv records: %v", records)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/cards/export?format=pdf", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format: got %d, want 400", w.Code)
	}
}

func TestHandlePurgeAndDeleteTenant(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "reporting.txt", policyText)

	w := env.do(t, http.MethodPost, "/api/v1/purge", map[string]interface{}{"tenant": "default", "days": 30})
	if w.Code != http.StatusOK {
		t.Fatalf("purge status: got %d", w.Code)
	}
	var purged struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&purged); err != nil {
		t.Fatal(err)
	}
	if purged.Deleted != 0 {
		t.Errorf("purge deleted fresh cards: %d", purged.Deleted)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/tenants/default", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete tenant status: got %d", w.Code)
	}
	n, err := env.store.CountCards(context.Background(), "default")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("cards left: %d", n)
	}
}

func TestHandleEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "reporting.txt", policyText)

	w := env.do(t, http.MethodGet, "/api/v1/events?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Events []*models.Event `json:"events"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 1 || out.Events[0].Kind != "ingest" {
		t.Errorf("events: %+v", out.Events)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest(t, "reporting.txt", policyText)

	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Documents      int    `json:"documents"`
		Dimensions     int    `json:"dimensions"`
		Backend        string `json:"backend"`
		Cards          int64  `json:"cards"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Documents < 1 || out.Dimensions != 8 || out.Cards != 1 {
		t.Errorf("status: %+v", out)
	}
	if out.Backend != string(vector.IndexTypeMemory) {
		t.Errorf("backend: got %q", out.Backend)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Errorf("disk_usage_bytes: %v", out.DiskUsageBytes)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	mock := &mockWatchService{dirs: []string{"/tmp/inbox"}}
	env := newTestEnv(t, mock)

	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/inbox" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectories_NotEnabled(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := env.do(t, method, "/api/v1/watch/directories", nil)
		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s: got %d, want 501", method, w.Code)
		}
	}
}

func TestHandleWatchDirectoriesAdd(t *testing.T) {
	mock := &mockWatchService{}
	env := newTestEnv(t, mock)
	inbox := filepath.Join(env.dir, "inbox")
	if err := os.Mkdir(inbox, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(env.dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"directory", inbox, http.StatusCreated},
		{"missing", filepath.Join(env.dir, "nonexistent"), http.StatusNotFound},
		{"file", file, http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": tt.path})
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d, body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
	if got := mock.Directories(); len(got) != 1 || got[0] != inbox {
		t.Errorf("directories: got %v", got)
	}
}

func TestHandleWatchDirectoriesAdd_PersistsConfig(t *testing.T) {
	mock := &mockWatchService{}
	env := newTestEnv(t, mock)
	cfgPath := filepath.Join(env.dir, "config.yaml")
	env.srv.configPath = cfgPath

	w := env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": env.dir})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d", w.Code)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), env.dir) {
		t.Errorf("saved config does not list %s:\n%s", env.dir, data)
	}
}

func TestHandleWatchDirectoriesRemove(t *testing.T) {
	env := newTestEnv(t, nil)
	mock := &mockWatchService{dirs: []string{env.dir}}
	env.srv.watch = mock

	w := env.do(t, http.MethodDelete, "/api/v1/watch/directories?path="+env.dir, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}

	mock.dirs = []string{env.dir}
	w = env.do(t, http.MethodDelete, "/api/v1/watch/directories", map[string]string{"path": env.dir})
	if w.Code != http.StatusOK || len(mock.Directories()) != 0 {
		t.Errorf("body path: got %d, dirs %v", w.Code, mock.Directories())
	}
}
