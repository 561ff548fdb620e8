// Package chromem implements memory.VectorStore on chromem-go, a pure Go
// embedded vector database. Embeddings are produced by an injected
// memory.Embedder and cached in ristretto so repeated text (retried
// uploads, repeated queries) is never embedded twice.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
	chromem "github.com/philippgille/chromem-go"

	"github.com/mnemolabs/mnemo/memory"
)

// Store wraps chromem-go for long-term memory storage.
// Each user gets their own collection for namespace isolation.
type Store struct {
	db          *chromem.DB
	embedder    memory.Embedder
	cache       *ristretto.Cache
	collections map[string]*chromem.Collection // keyed by user id
	mu          sync.RWMutex
}

// New creates a chromem-based store around the embedder.
func New(embedder memory.Embedder) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     16 << 20, // bytes of cached embeddings
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &Store{
		db:          chromem.NewDB(),
		embedder:    embedder,
		cache:       cache,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for a user.
func (s *Store) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	name := fmt.Sprintf("user_%s", userID)
	if userID == "" {
		name = "global"
	}

	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Embed converts text to a vector, serving repeats from the cache.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := s.cache.Get(text); ok {
		if emb, ok := cached.([]float32); ok {
			return emb, nil
		}
	}

	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	s.cache.Set(text, emb, int64(len(emb)*4))
	return emb, nil
}

// Upsert stores one record, overwriting by record id.
func (s *Store) Upsert(ctx context.Context, rec memory.Record) error {
	md := rec.Metadata()
	col, err := s.getOrCreateCollection(md["user_id"])
	if err != nil {
		return err
	}

	emb, err := s.Embed(ctx, rec.Text())
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID(),
		Content:   rec.Text(),
		Embedding: emb,
		Metadata:  md,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// UpsertBatch stores records in chunks. Item failures are logged and
// skipped; the batch keeps going.
func (s *Store) UpsertBatch(ctx context.Context, recs []memory.Record, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	stored := 0
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		for _, rec := range recs[start:end] {
			if err := s.Upsert(ctx, rec); err != nil {
				log.Printf("[CHROMEM] Skipping record %s: %v", rec.ID(), err)
				continue
			}
			stored++
		}
	}
	log.Printf("[CHROMEM] Batch upsert stored %d/%d records", stored, len(recs))
	return nil
}

// Query retrieves matches by vector similarity, restricted by the
// metadata filter and score threshold.
func (s *Store) Query(ctx context.Context, text string, topK int, filter map[string]string, threshold float32) ([]memory.Match, error) {
	col, err := s.getOrCreateCollection(filter["user_id"])
	if err != nil {
		return nil, err
	}

	emb, err := s.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size; retry with
	// smaller limits until it fits.
	var results []chromem.Result
	for limit := topK; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, emb, limit, filter, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil // collection is empty
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var matches []memory.Match
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		matches = append(matches, memory.Match{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: r.Metadata,
		})
	}
	return matches, nil
}

// DeleteOne removes a record by id. Collections are per-user and the id
// alone does not name one, so every collection is asked; absent ids are
// a no-op.
func (s *Store) DeleteOne(ctx context.Context, id string) error {
	s.mu.RLock()
	cols := make([]*chromem.Collection, 0, len(s.collections))
	for _, col := range s.collections {
		cols = append(cols, col)
	}
	s.mu.RUnlock()

	for _, col := range cols {
		if err := col.Delete(ctx, nil, nil, id); err != nil {
			log.Printf("[CHROMEM] Delete %s: %v", id, err)
		}
	}
	return nil
}

// DeleteMany removes all records matching the metadata filter.
func (s *Store) DeleteMany(ctx context.Context, filter map[string]string) error {
	col, err := s.getOrCreateCollection(filter["user_id"])
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, filter, nil); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	return nil
}

// Close releases the embedding cache. chromem-go itself keeps everything
// in memory, nothing else to release.
func (s *Store) Close() error {
	s.cache.Close()
	return nil
}

// isInsufficientDocsError checks if the error is chromem complaining
// that nResults exceeds the number of stored documents.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
