// Package indexer runs the policy intake pipeline: extraction, redaction, chunking, vector
// indexing, snapshotting, analysis and card storage, plus grounded question answering.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/policysimplify/internal/config"
	"github.com/hyperjump/policysimplify/internal/extract"
	"github.com/hyperjump/policysimplify/internal/fileid"
	"github.com/hyperjump/policysimplify/internal/keyword"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/internal/policy"
	"github.com/hyperjump/policysimplify/internal/redact"
	"github.com/hyperjump/policysimplify/internal/snapshot"
	"github.com/hyperjump/policysimplify/internal/storage"
	"github.com/hyperjump/policysimplify/internal/vector"
)

var (
	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("document contains no extractable text")
	// ErrExtract is returned when a document cannot be read.
	ErrExtract = errors.New("document could not be read")
	// ErrIndexing is returned when chunks cannot be embedded, added or snapshotted.
	ErrIndexing = errors.New("document failed to index")
	// ErrSearch is returned when the vector search for a question fails.
	ErrSearch = errors.New("search temporarily unavailable")
	// ErrAlreadyIngested is returned by IngestFile for an unchanged, already ingested file.
	ErrAlreadyIngested = errors.New("file already ingested")
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// NoContextAnswer is returned by Ask when nothing relevant is indexed.
const NoContextAnswer = "No context found."

// fallbackSnippetChars bounds the analysis input when chunking yields nothing.
const fallbackSnippetChars = 3000

// Analyst produces card text and answers. *policy.Analyst implements it.
type Analyst interface {
	Summarize(ctx context.Context, text string) (string, error)
	Checklist(ctx context.Context, text, summary string) (string, error)
	AssessRisk(ctx context.Context, text, summary string) (string, error)
	Answer(ctx context.Context, snippets []string, question string) (string, error)
}

// Indexer wires the vector index, snapshot store, card storage and analyst together.
type Indexer struct {
	index     *vector.Index
	snapshots *snapshot.Store
	storeName string
	storage   storage.Storage
	cards     keyword.CardIndex
	analyst   Analyst
	extractor *extract.Extractor
	chunker   *Chunker
	qa        config.QAConfig
	bulk      bulkOptions
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer. cards may be nil to disable keyword search over cards;
// extractor may be nil to use a default one.
func NewIndexer(
	index *vector.Index,
	snapshots *snapshot.Store,
	store storage.Storage,
	cards keyword.CardIndex,
	analyst Analyst,
	extractor *extract.Extractor,
	cfg *config.Config,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		index:     index,
		snapshots: snapshots,
		storeName: cfg.Storage.StoreName,
		storage:   store,
		cards:     cards,
		analyst:   analyst,
		extractor: extractor,
		chunker:   NewChunker(cfg.Chunking.TargetChars, cfg.Chunking.OverlapChars, cfg.Chunking.HardMaxChars),
		qa:        cfg.QA,
		bulk:      defaultBulkOptions(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

type ingestRequest struct {
	tenant     string
	name       string
	text       string
	sourceType string
	sourceID   string
	// deferSave skips the snapshot write; the caller saves once at the end.
	deferSave bool
}

// IngestPDF ingests a PDF document.
func (idx *Indexer) IngestPDF(ctx context.Context, tenant, name string, data []byte) (*models.Card, error) {
	return idx.ingestBytes(ctx, tenant, name, ".pdf", data, false)
}

// IngestDocument ingests a document whose format is taken from the extension of name.
// Names without a supported extension are treated as PDF.
func (idx *Indexer) IngestDocument(ctx context.Context, tenant, name string, data []byte) (*models.Card, error) {
	return idx.ingestBytes(ctx, tenant, name, formatFor(name), data, false)
}

// formatFor returns the extractor extension for name, defaulting to PDF.
func formatFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extract.IsSupported(ext) {
		return ".pdf"
	}
	return ext
}

// IngestText ingests pasted policy text.
func (idx *Indexer) IngestText(ctx context.Context, tenant, name, text string) (*models.Card, error) {
	return idx.ingest(ctx, ingestRequest{
		tenant:     tenant,
		name:       name,
		text:       extract.NormalizeWhitespace(text),
		sourceType: policy.SourceText,
	})
}

// IngestFile ingests the file at path. A file whose path, modification time and size match
// an earlier ingest for the tenant returns ErrAlreadyIngested.
func (idx *Indexer) IngestFile(ctx context.Context, tenant, path string) (*models.Card, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !extract.IsSupported(ext) {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	sourceID := fileid.FileSourceID(absPath, info.ModTime(), info.Size())
	seen, err := idx.storage.HasSource(ctx, tenantOrDefault(tenant), sourceID)
	if err != nil {
		return nil, fmt.Errorf("check source: %w", err)
	}
	if seen {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return nil, ErrAlreadyIngested
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	text, err := idx.extractor.ExtractBytes(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}
	return idx.ingest(ctx, ingestRequest{
		tenant:     tenant,
		name:       filepath.Base(absPath),
		text:       text,
		sourceType: policy.SourceUploaded,
		sourceID:   sourceID,
	})
}

func (idx *Indexer) ingestBytes(ctx context.Context, tenant, name, ext string, data []byte, deferSave bool) (*models.Card, error) {
	text, err := idx.extractor.ExtractBytes(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}
	return idx.ingest(ctx, ingestRequest{
		tenant:     tenant,
		name:       name,
		text:       text,
		sourceType: policy.SourceUploaded,
		sourceID:   fileid.ContentSourceID(data),
		deferSave:  deferSave,
	})
}

// ingest indexes the redacted chunks, analyses the middle chunk and stores the card.
func (idx *Indexer) ingest(ctx context.Context, req ingestRequest) (*models.Card, error) {
	req.tenant = tenantOrDefault(req.tenant)
	if strings.TrimSpace(req.name) == "" {
		req.name = "policy"
	}
	if strings.TrimSpace(req.text) == "" {
		return nil, ErrNoText
	}
	text := redact.Scrub(req.text)
	chunks := idx.chunker.Chunk(text)
	docs := MakeDocs(chunks, req.name, req.tenant)
	if req.sourceID != "" {
		for _, d := range docs {
			d.Metadata[models.MetaSourceID] = req.sourceID
		}
	}

	if err := idx.index.Add(ctx, docs); err != nil {
		idx.logger.Error("indexing failed", zap.String("policy", req.name), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrIndexing, err)
	}
	if !req.deferSave {
		if err := idx.Save(); err != nil {
			return nil, err
		}
	}

	snippet := truncateRunes(text, fallbackSnippetChars)
	if len(chunks) > 0 {
		snippet = chunks[len(chunks)/2]
	}
	summary, err := idx.analyst.Summarize(ctx, snippet)
	if err != nil {
		return nil, err
	}
	checklist, err := idx.analyst.Checklist(ctx, snippet, summary)
	if err != nil {
		return nil, err
	}
	riskNote, err := idx.analyst.AssessRisk(ctx, snippet, summary)
	if err != nil {
		return nil, err
	}

	card := policy.ComposeCard(policy.CardInput{
		Tenant:     req.tenant,
		Policy:     req.name,
		Summary:    summary,
		Checklist:  checklist,
		RiskNote:   riskNote,
		SourceType: req.sourceType,
		SourceID:   req.sourceID,
	})
	if err := idx.storage.SaveCard(ctx, card); err != nil {
		return nil, fmt.Errorf("save card: %w", err)
	}
	if idx.cards != nil {
		if err := idx.cards.Index(ctx, card); err != nil {
			idx.logger.Warn("card keyword index failed", zap.String("card", card.ID), zap.Error(err))
		}
	}
	idx.logEvent(ctx, req.tenant, "ingest", fmt.Sprintf("%s (%s, %d chunks)", req.name, card.Risk, len(chunks)))
	idx.logger.Info("policy ingested",
		zap.String("policy", req.name),
		zap.String("tenant", req.tenant),
		zap.String("risk", card.Risk),
		zap.Int("chunks", len(chunks)))
	return card, nil
}

// Save writes the vector index snapshot.
func (idx *Indexer) Save() error {
	if err := idx.snapshots.Save(idx.index, idx.storeName); err != nil {
		idx.logger.Error("snapshot save failed", zap.String("store", idx.storeName), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrIndexing, err)
	}
	return nil
}

// Source is a retrieved chunk's document name and similarity.
type Source struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Answer is the reply to a question with the sources it was grounded on.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Ask answers question from the k most similar chunks. k of 0 uses the configured default;
// other values are clamped to [1, max k].
func (idx *Indexer) Ask(ctx context.Context, question string, k int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	k = idx.clampK(k)
	hits, err := idx.index.Search(ctx, question, k)
	if err != nil {
		idx.logger.Warn("question search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	if len(hits) == 0 {
		return &Answer{Answer: NoContextAnswer, Sources: []Source{}}, nil
	}

	snippets := make([]string, len(hits))
	sources := make([]Source, len(hits))
	for i, h := range hits {
		snippets[i] = h.Document.Text
		sources[i] = Source{Source: h.Document.Source(), Score: h.Score}
	}
	text, err := idx.analyst.Answer(ctx, snippets, question)
	if err != nil {
		return nil, err
	}
	idx.logEvent(ctx, "", "qa", truncateRunes(question, 200))
	return &Answer{Answer: text, Sources: sources}, nil
}

func (idx *Indexer) clampK(k int) int {
	maxK := idx.qa.MaxK
	if maxK <= 0 {
		maxK = 8
	}
	if k == 0 {
		k = idx.qa.DefaultK
	}
	if k < 1 {
		k = 1
	}
	if k > maxK {
		k = maxK
	}
	return k
}

// SearchCards returns the stored cards matching query, best first.
func (idx *Indexer) SearchCards(ctx context.Context, query, tenant string, limit int) ([]*models.Card, error) {
	if idx.cards == nil {
		return []*models.Card{}, nil
	}
	hits, err := idx.cards.Search(ctx, query, limit, &keyword.SearchOptions{Tenant: tenant, PolicyBoost: 2})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Card, 0, len(hits))
	for _, h := range hits {
		card, err := idx.storage.GetCard(ctx, h.ID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, nil
}

// SyncCardIndex indexes every stored card when the keyword index is empty, so a deleted
// or new index directory is repopulated. It returns the number of cards indexed.
func (idx *Indexer) SyncCardIndex(ctx context.Context) (int, error) {
	if idx.cards == nil {
		return 0, nil
	}
	n, err := idx.cards.DocCount()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	cards, err := idx.storage.ListCards(ctx, "", 0)
	if err != nil {
		return 0, err
	}
	for _, c := range cards {
		if err := idx.cards.Index(ctx, c); err != nil {
			return 0, fmt.Errorf("index card %s: %w", c.ID, err)
		}
	}
	if len(cards) > 0 {
		idx.logger.Info("card index rebuilt", zap.Int("cards", len(cards)))
	}
	return len(cards), nil
}

// Purge deletes the tenant's cards and events older than days.
func (idx *Indexer) Purge(ctx context.Context, tenant string, days int) (int, error) {
	ids, err := idx.storage.PurgeOlderThan(ctx, tenantOrDefault(tenant), days)
	if err != nil {
		return 0, err
	}
	idx.dropCards(ctx, ids)
	return len(ids), nil
}

// DeleteTenant removes all cards and events of tenant.
func (idx *Indexer) DeleteTenant(ctx context.Context, tenant string) (int, error) {
	ids, err := idx.storage.DeleteTenant(ctx, tenantOrDefault(tenant))
	if err != nil {
		return 0, err
	}
	idx.dropCards(ctx, ids)
	return len(ids), nil
}

func (idx *Indexer) dropCards(ctx context.Context, ids []string) {
	if idx.cards == nil || len(ids) == 0 {
		return
	}
	if err := idx.cards.Delete(ctx, ids...); err != nil {
		idx.logger.Warn("card keyword delete failed", zap.Int("cards", len(ids)), zap.Error(err))
	}
}

// Status summarizes the index and stored cards.
type Status struct {
	Documents  int    `json:"documents"`
	Dimensions int    `json:"dimensions"`
	Backend    string `json:"backend"`
	Cards      int64  `json:"cards"`
}

// Status reports index size and the tenant's card count.
func (idx *Indexer) Status(ctx context.Context, tenant string) (*Status, error) {
	n, err := idx.storage.CountCards(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return &Status{
		Documents:  idx.index.Len(),
		Dimensions: idx.index.Dimensions(),
		Backend:    idx.index.Backend(),
		Cards:      n,
	}, nil
}

func (idx *Indexer) logEvent(ctx context.Context, tenant, kind, detail string) {
	if err := idx.storage.LogEvent(ctx, tenantOrDefault(tenant), kind, detail); err != nil {
		idx.logger.Warn("event log failed", zap.String("kind", kind), zap.Error(err))
	}
}

func tenantOrDefault(tenant string) string {
	if strings.TrimSpace(tenant) == "" {
		return storage.DefaultTenant
	}
	return tenant
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
