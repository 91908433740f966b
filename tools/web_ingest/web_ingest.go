package web_ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/axiom/tools/web_ingest/models"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// Index is an in-memory BM25 index over chunked pages. One index serves one research
// session and is discarded afterwards.
type Index struct {
	mu     sync.RWMutex
	bleve  bleve.Index
	chunks map[string]models.DocChunk
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{bleve: idx, chunks: make(map[string]models.DocChunk)}, nil
}

// Ingest chunks and indexes docs. Documents with no text are skipped; identical text is
// indexed once.
func (i *Index) Ingest(docs []models.DocInput) (models.IngestResponse, error) {
	if len(docs) == 0 {
		return models.IngestResponse{}, errors.New("no documents provided")
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleve.NewBatch()
	var n int
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		hash := sha1Hex(doc.Text)
		for idx, part := range makeChunks(doc.Text, chunkSize, chunkOverlap) {
			chunk := models.DocChunk{
				DocID:       fmt.Sprintf("%s#%03d", hash, idx),
				URL:         doc.URL,
				Title:       doc.Title,
				Text:        part,
				ContentHash: hash,
				ChunkIndex:  idx,
			}
			if _, ok := i.chunks[chunk.DocID]; ok {
				continue
			}
			if err := batch.Index(chunk.DocID, chunk); err != nil {
				return models.IngestResponse{}, fmt.Errorf("failed to add chunk: %w", err)
			}
			i.chunks[chunk.DocID] = chunk
			n++
		}
	}
	if err := i.bleve.Batch(batch); err != nil {
		return models.IngestResponse{}, fmt.Errorf("index batch: %w", err)
	}
	return models.IngestResponse{Chunks: n, IndexedBM: n}, nil
}

// Search returns up to k chunks ranked by relevance to q.
func (i *Index) Search(q string, k int) ([]models.DocChunk, error) {
	if k <= 0 {
		k = 8
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(q), k, 0, false)
	res, err := i.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	out := make([]models.DocChunk, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if c, ok := i.chunks[hit.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

func (i *Index) Close() error { return i.bleve.Close() }

func sha1Hex(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// makeChunks splits text into windows of approx runes that overlap by overlap runes.
func makeChunks(text string, approx, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= approx {
		return []string{string(runes)}
	}
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + approx
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
