package index

import (
	"math"
	"sort"
)

// VectorIndex is an in-memory semantic index over the chunks of a single
// document. It is immutable once built and owned by exactly one session.
type VectorIndex struct {
	document string
	chunks   []string
	vectors  [][]float32
}

// ScoredChunk is a retrieved chunk with its cosine similarity to the query.
type ScoredChunk struct {
	Content string
	Score   float32
}

// New builds an index over pre-embedded chunks. chunks and vectors must be
// the same length.
func New(document string, chunks []string, vectors [][]float32) *VectorIndex {
	return &VectorIndex{
		document: document,
		chunks:   chunks,
		vectors:  vectors,
	}
}

// Document returns the name of the indexed source file.
func (x *VectorIndex) Document() string { return x.document }

// Len returns the number of indexed chunks.
func (x *VectorIndex) Len() int { return len(x.chunks) }

// Search returns the topK chunks most similar to the query vector, best
// first.
func (x *VectorIndex) Search(query []float32, topK int) []ScoredChunk {
	if topK <= 0 || len(x.chunks) == 0 {
		return nil
	}

	scored := make([]ScoredChunk, len(x.chunks))
	for i := range x.chunks {
		scored[i] = ScoredChunk{
			Content: x.chunks[i],
			Score:   cosineSimilarity(query, x.vectors[i]),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// chunkText splits text into overlapping chunks by rune count.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 512
	}
	if overlap >= size {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		i += size - overlap
		if i >= len(runes) {
			break
		}
	}
	return chunks
}
