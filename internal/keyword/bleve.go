package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/policysimplify/internal/models"
)

// Field names of the indexed card document.
const (
	fieldPolicy    = "policy"
	fieldSummary   = "summary"
	fieldChecklist = "checklist"
	fieldRisk      = "risk"
	fieldTenant    = "tenant"
)

var textFields = []string{fieldPolicy, fieldSummary, fieldChecklist}

type cardDoc struct {
	Policy    string `json:"policy"`
	Summary   string `json:"summary"`
	Checklist string `json:"checklist"`
	Risk      string `json:"risk"`
	Tenant    string `json:"tenant"`
}

// BleveIndex implements CardIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an
// in-memory index. If the mapping changes, remove the index directory and reindex.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming.
	textFieldMapping.Analyzer = standard.Name
	for _, f := range textFields {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldRisk, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(fieldTenant, keywordFieldMapping)
	im.AddDocumentMapping("card", docMapping)
	im.DefaultType = "card"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces a card.
func (b *BleveIndex) Index(ctx context.Context, card *models.Card) error {
	return b.index.Index(card.ID, cardDoc{
		Policy:    card.Policy,
		Summary:   card.Summary,
		Checklist: card.Checklist,
		Risk:      card.Risk,
		Tenant:    card.Tenant,
	})
}

// Search runs a match query over policy name, summary and checklist and returns up to
// limit hits. With a PolicyBoost > 1, name and body scores are computed separately and
// added, with the name score multiplied by the boost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*CardHit, error) {
	if strings.TrimSpace(query) == "" {
		return []*CardHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	policyBoost := 1.0
	fuzzy := false
	fuzziness := 2
	tenant := ""
	if opts != nil {
		if opts.PolicyBoost > 0 {
			policyBoost = opts.PolicyBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		tenant = opts.Tenant
	}

	if policyBoost <= 1.0 {
		q := b.textQuery(query, fuzzy, fuzziness, "")
		hits, err := b.run(q, tenant, limit)
		if err != nil {
			return nil, err
		}
		return hits, nil
	}

	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	nameHits, err := b.run(b.textQuery(query, fuzzy, fuzziness, fieldPolicy), tenant, reqSize)
	if err != nil {
		return nil, err
	}
	bodyQuery := bleve.NewDisjunctionQuery(
		b.textQuery(query, fuzzy, fuzziness, fieldSummary),
		b.textQuery(query, fuzzy, fuzziness, fieldChecklist),
	)
	bodyHits, err := b.run(bodyQuery, tenant, reqSize)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, h := range nameHits {
		scores[h.ID] += h.Score * policyBoost
	}
	for _, h := range bodyHits {
		scores[h.ID] += h.Score
	}
	merged := make([]*CardHit, 0, len(scores))
	for id, score := range scores {
		merged = append(merged, &CardHit{ID: id, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (b *BleveIndex) run(q blevequery.Query, tenant string, size int) ([]*CardHit, error) {
	if tenant != "" {
		tq := bleve.NewTermQuery(tenant)
		tq.SetField(fieldTenant)
		q = bleve.NewConjunctionQuery(q, tq)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*CardHit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &CardHit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// textQuery builds a match query, or a disjunction of fuzzy term queries, restricted to
// field when non-empty.
func (b *BleveIndex) textQuery(query string, fuzzy bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(query)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Delete removes cards from the index in one batch.
func (b *BleveIndex) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// DocCount returns the number of indexed cards.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
