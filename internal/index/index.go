package index

import (
	"math"
	"sort"
	"sync"

	"linguachat/internal/model"
)

// SearchResult is one retrieved chunk with its distance from the query.
// Distance is 1 - cosine similarity, so lower means closer.
type SearchResult struct {
	Chunk    model.DocumentChunk `json:"chunk"`
	Distance float64             `json:"distance"`
}

// SessionIndexes maps a session id to that session's in-memory vector
// index. Indexes are private to their session: a lookup never sees chunks
// uploaded to any other session. An absent entry means no documents have
// been ingested yet.
type SessionIndexes struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

type index struct {
	chunks []model.DocumentChunk
}

func NewSessionIndexes() *SessionIndexes {
	return &SessionIndexes{indexes: make(map[string]*index)}
}

// Add appends chunks to the session's index, creating it on first use.
// Existing chunks are never replaced: uploading a second document extends
// the index.
func (s *SessionIndexes) Add(sessionID string, chunks []model.DocumentChunk) {
	if len(chunks) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[sessionID]
	if !ok {
		idx = &index{}
		s.indexes[sessionID] = idx
	}
	idx.chunks = append(idx.chunks, chunks...)
}

// Has reports whether the session currently holds any indexed documents.
// This is the single source of the session's document mode.
func (s *SessionIndexes) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[sessionID]
	return ok && len(idx.chunks) > 0
}

// Size returns the number of chunks indexed for the session.
func (s *SessionIndexes) Size(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[sessionID]
	if !ok {
		return 0
	}
	return len(idx.chunks)
}

// Search returns up to k chunks nearest to the query vector, ascending by
// distance, ties broken by insertion order. A session with no index yields
// an empty result, not an error. k larger than the index returns everything.
func (s *SessionIndexes) Search(sessionID string, query []float32, k int) []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[sessionID]
	if !ok || len(idx.chunks) == 0 || k <= 0 {
		return nil
	}

	results := make([]SearchResult, len(idx.chunks))
	for i, chunk := range idx.chunks {
		results[i] = SearchResult{
			Chunk:    chunk,
			Distance: 1 - cosineSimilarity(query, chunk.Embedding),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Clear drops the session's entire index. Returns false when there was
// nothing to drop.
func (s *SessionIndexes) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[sessionID]; !ok {
		return false
	}
	delete(s.indexes, sessionID)
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
