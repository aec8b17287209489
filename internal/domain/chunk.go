package domain

import "strconv"

// Document represents a single contract loaded from the corpus.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a contiguous span of a document used as the unit of retrieval.
// Start and End are rune offsets into the source document.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Index  int    `json:"index"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
}

// Core returns the part of the chunk that does not overlap with a predecessor
// ending at prevEnd.
func (c Chunk) Core(prevEnd int) string {
	skip := prevEnd - c.Start
	if skip <= 0 {
		return c.Text
	}
	runes := []rune(c.Text)
	if skip >= len(runes) {
		return ""
	}
	return string(runes[skip:])
}

// EmbeddingIdentity pins the embedding function used to build an index.
type EmbeddingIdentity struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// String renders the identity as provider/model@dimension.
func (id EmbeddingIdentity) String() string {
	return id.Provider + "/" + id.Model + "@" + strconv.Itoa(id.Dimension)
}

// Compatible reports whether vectors from other can be compared with vectors
// from id. A zero dimension on either side is treated as not yet known.
func (id EmbeddingIdentity) Compatible(other EmbeddingIdentity) bool {
	if id.Provider != other.Provider || id.Model != other.Model {
		return false
	}
	return id.Dimension == 0 || other.Dimension == 0 || id.Dimension == other.Dimension
}

// IndexedVector pairs a chunk with its embedding.
type IndexedVector struct {
	Chunk
	Vector []float64
}

// SearchResult represents a matching chunk with a similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}
