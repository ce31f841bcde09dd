package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/viterin/vek/vek32"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// Embedder is the slice of the LLM provider the index needs. The same
// embedding identity must be used at build time and query time.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
}

// Match is a catalog record scored against a query.
type Match struct {
	Record ProductRecord `json:"record"`
	Score  float64       `json:"score"`
	Rank   int           `json:"rank"`
}

// Index holds the catalog records, their normalized embeddings and an
// in-memory BM25 index over the same textual projections. Callers must not
// mutate a returned index; rebuilds are explicit.
type Index struct {
	records  []ProductRecord
	vectors  [][]float32
	embedder Embedder
	bm       bleve.Index
	logger   *log.Logger
}

// persistedIndex is the on-disk artifact. The catalog hash and embedding
// model pin it to the exact inputs it was derived from.
type persistedIndex struct {
	CatalogSHA     string
	EmbeddingModel string
	Records        []ProductRecord
	Vectors        [][]float32
}

// BuildIndex loads the persisted index when it matches the current catalog
// file and embedding model, and embeds the catalog from scratch otherwise.
func BuildIndex(ctx context.Context, csvPath, indexPath string, embedder Embedder) (*Index, error) {
	return buildIndex(ctx, csvPath, indexPath, embedder, false)
}

// RebuildIndex ignores any persisted artifact and re-embeds the catalog.
func RebuildIndex(ctx context.Context, csvPath, indexPath string, embedder Embedder) (*Index, error) {
	return buildIndex(ctx, csvPath, indexPath, embedder, true)
}

func buildIndex(ctx context.Context, csvPath, indexPath string, embedder Embedder, force bool) (*Index, error) {
	logger := log.New(log.Writer(), "[CATALOG] ", log.LstdFlags)

	hash, err := fileSHA256(csvPath)
	if err != nil {
		return nil, fmt.Errorf("hashing catalog: %w", err)
	}

	if !force {
		if p, err := loadPersisted(indexPath); err == nil {
			if p.CatalogSHA == hash && p.EmbeddingModel == embedder.EmbeddingModel() {
				logger.Printf("loaded persisted index (%d records)", len(p.Records))
				return newIndex(p.Records, p.Vectors, embedder, logger)
			}
			logger.Printf("persisted index is stale, rebuilding")
		}
	}

	records, err := LoadCSV(csvPath)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text()
	}
	vectors, err := embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding catalog: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d records", len(vectors), len(records))
	}
	for _, v := range vectors {
		normalize(v)
	}

	if err := savePersisted(indexPath, persistedIndex{
		CatalogSHA:     hash,
		EmbeddingModel: embedder.EmbeddingModel(),
		Records:        records,
		Vectors:        vectors,
	}); err != nil {
		return nil, fmt.Errorf("persisting index: %w", err)
	}
	logger.Printf("built index for %d records", len(records))

	return newIndex(records, vectors, embedder, logger)
}

func newIndex(records []ProductRecord, vectors [][]float32, embedder Embedder, logger *log.Logger) (*Index, error) {
	bm, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating keyword index: %w", err)
	}
	for i, r := range records {
		if err := bm.Index(strconv.Itoa(i), r); err != nil {
			return nil, fmt.Errorf("indexing record %d: %w", i, err)
		}
	}
	return &Index{records: records, vectors: vectors, embedder: embedder, bm: bm, logger: logger}, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.records) }

// Search embeds the query with the build-time embedding model and returns
// the k nearest records by cosine similarity, most-similar first.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	qvecs, err := ix.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(qvecs) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(qvecs))
	}
	q := qvecs[0]
	normalize(q)

	type scored struct {
		idx   int
		score float64
	}
	scoreds := make([]scored, len(ix.vectors))
	for i, v := range ix.vectors {
		scoreds[i] = scored{idx: i, score: float64(vek32.Dot(q, v))}
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })

	if k > len(scoreds) {
		k = len(scoreds)
	}
	out := make([]Match, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, Match{Record: ix.records[scoreds[i].idx], Score: scoreds[i].score, Rank: i + 1})
	}
	return out, nil
}

// KeywordSearch runs a BM25 query-string search over the same projections.
func (ix *Index) KeywordSearch(query string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, k, 0, false)
	res, err := ix.bm.Search(req)
	if err != nil {
		return nil, err
	}
	var out []Match
	for i, hit := range res.Hits {
		idx, err := strconv.Atoi(hit.ID)
		if err != nil || idx < 0 || idx >= len(ix.records) {
			continue
		}
		out = append(out, Match{Record: ix.records[idx], Score: hit.Score, Rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// HybridSearch fuses vector and keyword rankings with reciprocal-rank
// fusion.
func (ix *Index) HybridSearch(ctx context.Context, query string, k int) ([]Match, error) {
	vecHits, err := ix.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	bmHits, err := ix.KeywordSearch(query, k)
	if err != nil {
		return nil, err
	}

	type agg struct {
		item  Match
		score float64
	}
	m := map[string]*agg{}
	add := func(list []Match) {
		for _, h := range list {
			key := h.Record.ProductName + "|" + h.Record.Brand
			x, ok := m[key]
			if !ok {
				x = &agg{item: h}
				m[key] = x
			}
			x.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(vecHits)
	add(bmHits)

	fused := make([]agg, 0, len(m))
	for _, v := range m {
		fused = append(fused, *v)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].score > fused[j].score })

	if k > len(fused) {
		k = len(fused)
	}
	out := make([]Match, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, Match{Record: fused[i].item.Record, Score: fused[i].score, Rank: i + 1})
	}
	return out, nil
}

func normalize(v []float32) {
	n := float32(math.Sqrt(float64(vek32.Dot(v, v))))
	if n == 0 {
		return
	}
	vek32.MulNumber_Inplace(v, 1/n)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func loadPersisted(path string) (persistedIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return persistedIndex{}, err
	}
	defer f.Close()
	var p persistedIndex
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return persistedIndex{}, fmt.Errorf("decoding persisted index: %w", err)
	}
	return p, nil
}

func savePersisted(path string, p persistedIndex) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(p); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
