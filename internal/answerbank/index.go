// Package answerbank maintains a local Bleve full-text index over the
// organization's reusable answers and case studies. The case-study operation
// consults this index before paying for web research.
package answerbank

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/caredraft/internal/drafting"
	"github.com/caredraft/internal/supabase"
	"go.uber.org/zap"
)

// Config holds index settings.
type Config struct {
	IndexPath string  // on-disk location of the index
	InMemory  bool    // in-memory index for tests
	MinScore  float64 // minimum score for a usable case-study match
}

// DefaultConfig returns the defaults used in production.
func DefaultConfig() Config {
	return Config{
		IndexPath: "./data/answerbank.bleve",
		MinScore:  0.3,
	}
}

// Index is the searchable answer bank.
type Index struct {
	idx    bleve.Index
	cfg    Config
	logger *zap.Logger
	mu     sync.RWMutex
}

type document struct {
	Title   string `json:"title"`
	Sector  string `json:"sector"`
	Content string `json:"content"`
}

// New opens (or creates) the index.
func New(cfg Config, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = 0.3
	}

	i := &Index{cfg: cfg, logger: logger.Named("answerbank")}

	var err error
	if cfg.InMemory {
		i.idx, err = bleve.NewMemOnly(buildMapping())
	} else if _, serr := os.Stat(cfg.IndexPath); serr == nil {
		i.idx, err = bleve.Open(cfg.IndexPath)
	} else {
		i.idx, err = bleve.New(cfg.IndexPath, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open answer-bank index: %w", err)
	}
	return i, nil
}

func buildMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("sector", text)
	doc.AddFieldMappingsAt("content", text)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Sync upserts the case-study items into the index. Non-case-study answers
// are skipped; they are retrieved through the CRUD proxy, not search.
func (i *Index) Sync(_ context.Context, items []supabase.AnswerItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	indexed := 0
	for _, item := range items {
		if !item.IsCaseStudy {
			continue
		}
		if err := batch.Index(item.ID, document{
			Title:   item.Title,
			Sector:  item.Sector,
			Content: item.Content,
		}); err != nil {
			return fmt.Errorf("index item %s: %w", item.ID, err)
		}
		indexed++
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("apply index batch: %w", err)
	}
	i.logger.Info("answer bank synced", zap.Int("case_studies", indexed))
	return nil
}

// Hit is a scored index match.
type Hit struct {
	ID      string
	Title   string
	Sector  string
	Content string
	Score   float64
}

// Search returns the best matches for query, optionally confined to sector.
func (i *Index) Search(_ context.Context, query, sector string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	q := bleve.NewBooleanQuery()
	q.AddMust(bleve.NewMatchQuery(query))
	if sector != "" {
		sectorQ := bleve.NewMatchQuery(sector)
		sectorQ.SetField("sector")
		q.AddShould(sectorQ)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"title", "sector", "content"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("answer-bank search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["sector"].(string); ok {
			hit.Sector = v
		}
		if v, ok := h.Fields["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// FindStudy implements drafting.StudySource over the local index.
func (i *Index) FindStudy(ctx context.Context, topic, sector string) (*drafting.Study, error) {
	hits, err := i.Search(ctx, topic, sector, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 || hits[0].Score < i.cfg.MinScore {
		return nil, nil
	}
	return &drafting.Study{
		Title:   hits[0].Title,
		Summary: hits[0].Content,
		Origin:  "answer_bank",
	}, nil
}

// Close releases the underlying index.
func (i *Index) Close() error {
	return i.idx.Close()
}
