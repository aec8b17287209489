package vectorstore

import "compliance/internal/domain"

// Storage holds vectors and ranks them by similarity.
// Implementations must keep insertion order so ties rank deterministically.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Entries() []domain.IndexedVector
	Len() int
	Clear() error
}
