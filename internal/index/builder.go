package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/pkg/pdfextract"
)

// ErrIndexing marks a document indexing failure: file I/O, PDF parsing, or
// embedding computation.
var ErrIndexing = errors.New("document indexing failed")

// Builder turns an uploaded PDF into a VectorIndex. The upload is staged in
// a fresh temp directory that is removed on every exit path.
type Builder struct {
	chunkSize    int
	chunkOverlap int
	batchSize    int

	// tempDir is the parent for staging directories; empty means the system
	// temp dir. Tests point it at a scratch dir to assert cleanup.
	tempDir string

	// extract is overridable for tests; the default parses PDFs.
	extract func(path string) (string, error)
}

func NewBuilder(chunkSize, chunkOverlap, batchSize int) *Builder {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 8
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Builder{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		batchSize:    batchSize,
		extract:      pdfextract.ExtractFile,
	}
}

// Build stages the file, extracts its text, chunks it, embeds every chunk,
// and returns the finished index. No partial index is ever returned.
func (b *Builder) Build(ctx context.Context, data []byte, fileName string, embedder ai.EmbeddingModel) (*VectorIndex, error) {
	idx, err := b.build(ctx, data, fileName, embedder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexing, err)
	}
	return idx, nil
}

func (b *Builder) build(ctx context.Context, data []byte, fileName string, embedder ai.EmbeddingModel) (*VectorIndex, error) {
	staging, err := os.MkdirTemp(b.tempDir, "insight-doc-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	name := filepath.Base(fileName)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document.pdf"
	}
	path := filepath.Join(staging, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	text, err := b.extract(path)
	if err != nil {
		return nil, err
	}

	chunks := chunkText(text, b.chunkSize, b.chunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no chunks")
	}

	vectors := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += b.batchSize {
		end := i + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	return New(name, chunks, vectors), nil
}
