package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/policysimplify/internal/config"
	"github.com/hyperjump/policysimplify/internal/export"
	"github.com/hyperjump/policysimplify/internal/extract"
	"github.com/hyperjump/policysimplify/internal/indexer"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultCardLimit  = 100
	defaultEventLimit = 10
	maxEventLimit     = 500
)

type ingestRequest struct {
	SourceName string `json:"source_name"`
	ContentB64 string `json:"content_b64"`
	Text       string `json:"text,omitempty"`
	Tenant     string `json:"tenant,omitempty"`
}

type ingestResponse struct {
	OK     bool         `json:"ok"`
	Policy string       `json:"policy"`
	Risk   string       `json:"risk"`
	Card   *models.Card `json:"card"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest request", zap.String("source_name", req.SourceName), zap.String("tenant", req.Tenant))

	var (
		card *models.Card
		err  error
	)
	switch {
	case req.ContentB64 != "":
		data, decErr := base64.StdEncoding.DecodeString(req.ContentB64)
		if decErr != nil {
			s.respondError(w, http.StatusBadRequest, "content_b64 is not valid base64")
			return
		}
		card, err = s.indexer.IngestDocument(r.Context(), req.Tenant, req.SourceName, data)
	case req.Text != "":
		card, err = s.indexer.IngestText(r.Context(), req.Tenant, req.SourceName, req.Text)
	default:
		s.respondError(w, http.StatusBadRequest, "content_b64 or text is required")
		return
	}
	if err != nil {
		s.respondIngestError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ingestResponse{OK: true, Policy: card.Policy, Risk: card.Risk, Card: card})
}

func (s *Server) respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, indexer.ErrNoText):
		s.respondError(w, http.StatusBadRequest, indexer.ErrNoText.Error())
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, extract.ErrUnsupportedFormat.Error())
	case errors.Is(err, indexer.ErrExtract):
		s.respondError(w, http.StatusUnprocessableEntity, indexer.ErrExtract.Error())
	case errors.Is(err, indexer.ErrIndexing):
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, indexer.ErrIndexing.Error())
	default:
		s.logger.Error("policy analysis failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "policy analysis failed")
	}
}

type qaRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("qa request", zap.String("question", req.Question), zap.Int("k", req.K))
	answer, err := s.indexer.Ask(r.Context(), req.Question, req.K)
	switch {
	case errors.Is(err, indexer.ErrEmptyQuestion):
		s.respondError(w, http.StatusBadRequest, "question is required")
	case errors.Is(err, indexer.ErrSearch):
		s.respondError(w, http.StatusServiceUnavailable, indexer.ErrSearch.Error())
	case err != nil:
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "answer generation failed")
	default:
		s.respondJSON(w, http.StatusOK, answer)
	}
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultCardLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cards, err := s.filteredCards(r)
	if err != nil {
		s.logger.Error("list cards failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"cards": cards, "count": len(cards)})
}

// filteredCards lists the tenant's cards filtered by the comma-separated risk parameter,
// in dashboard order.
func (s *Server) filteredCards(r *http.Request) ([]*models.Card, error) {
	q := r.URL.Query()
	cards, err := s.storage.ListCards(r.Context(), q.Get("tenant"), 0)
	if err != nil {
		return nil, err
	}
	return export.Sort(export.FilterRisk(cards, splitList(q.Get("risk"))...)), nil
}

func (s *Server) handleSearchCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := intParam(q.Get("limit"), 20)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cards, err := s.indexer.SearchCards(r.Context(), query, q.Get("tenant"), limit)
	if err != nil {
		s.logger.Error("card search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": query, "cards": cards})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cards, err := s.filteredCards(r)
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	if err := export.Write(w, format, export.Rows(cards, nil)); err != nil {
		s.logger.Error("export write failed", zap.String("format", string(format)), zap.Error(err))
	}
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.storage.GetCard(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "card not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, card)
}

type purgeRequest struct {
	Tenant string `json:"tenant"`
	Days   int    `json:"days"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Days <= 0 {
		req.Days = s.config.Retention.Days
	}
	n, err := s.indexer.Purge(r.Context(), req.Tenant, req.Days)
	if err != nil {
		s.logger.Error("purge failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": n, "days": req.Days})
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	n, err := s.indexer.DeleteTenant(r.Context(), tenant)
	if err != nil {
		s.logger.Error("delete tenant failed", zap.String("tenant", tenant), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tenant": tenant, "deleted": n})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultEventLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	events, err := s.storage.RecentEvents(r.Context(), q.Get("tenant"), limit)
	if err != nil {
		s.logger.Error("events failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.indexer.Status(r.Context(), r.URL.Query().Get("tenant"))
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":  st.Documents,
		"dimensions": st.Dimensions,
		"backend":    st.Backend,
		"cards":      st.Cards,
	}
	stc := s.config.Storage
	resp["config"] = map[string]interface{}{
		"store_name":      stc.StoreName,
		"vector_dir":      stc.VectorDir,
		"database_path":   stc.DatabasePath,
		"card_index_path": stc.CardIndexPath,
		"embedding_model": s.config.Embedding.Model,
		"chat_model":      s.config.LLM.Model,
		"default_k":       s.config.QA.DefaultK,
		"max_k":           s.config.QA.MaxK,
		"retention_days":  s.config.Retention.Days,
	}
	if diskBytes, err := storage.DiskUsageBytes(stc.DatabasePath, stc.VectorDir, stc.CardIndexPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
