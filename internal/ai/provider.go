package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrModelLoad marks a provisioning failure: the embedding model could not be
// downloaded or loaded even after rebuilding the local cache once.
var ErrModelLoad = errors.New("model provisioning failed")

// ChatModel generates an answer from a chat transcript.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// EmbeddingModel turns text into embedding vectors.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type handles struct {
	llm      ChatModel
	embedder EmbeddingModel
}

// Provider constructs and memoizes model handles per credential. Model
// download and session construction are expensive, so handles are built once
// and shared across every session in the process.
type Provider struct {
	mu      sync.Mutex
	cache   map[string]*handles
	repoID  string
	dir     string
	libPath string
	baseURL string
	model   string
	maxSeq  int

	// Overridable for tests; defaults hit the hub and ONNX runtime.
	download func(ctx context.Context, repoID, dir string) error
	load     func(dir, libPath string, maxSeq int) (EmbeddingModel, error)
}

type ProviderOptions struct {
	RepoID            string
	CacheDir          string
	ONNXSharedLibPath string
	MaxSequenceLength int
	LLMBaseURL        string
	LLMModel          string
}

func NewProvider(opts ProviderOptions) *Provider {
	hub := NewHubDownloader()
	return &Provider{
		cache:    make(map[string]*handles),
		repoID:   opts.RepoID,
		dir:      opts.CacheDir,
		libPath:  opts.ONNXSharedLibPath,
		baseURL:  opts.LLMBaseURL,
		model:    opts.LLMModel,
		maxSeq:   opts.MaxSequenceLength,
		download: hub.Snapshot,
		load: func(dir, libPath string, maxSeq int) (EmbeddingModel, error) {
			return LoadEmbedder(dir, libPath, maxSeq)
		},
	}
}

// Get returns the chat and embedding handles for the credential, building
// them on first use. On any failure both handles are nil and the error wraps
// ErrModelLoad with the underlying cause.
func (p *Provider) Get(ctx context.Context, credential string) (ChatModel, EmbeddingModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.cache[credential]; ok {
		return h.llm, h.embedder, nil
	}

	embedder, err := p.resolveEmbedder(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	h := &handles{
		llm:      NewLLMClient(p.baseURL, p.model, credential),
		embedder: embedder,
	}
	p.cache[credential] = h
	return h.llm, h.embedder, nil
}

// resolveEmbedder loads the embedding model from the local cache directory,
// downloading the snapshot first if the directory is missing. A failed load
// is treated as a corrupt cache: the directory is deleted, the snapshot is
// re-downloaded, and the load is retried exactly once.
func (p *Provider) resolveEmbedder(ctx context.Context) (EmbeddingModel, error) {
	if _, err := os.Stat(p.dir); os.IsNotExist(err) {
		if err := p.download(ctx, p.repoID, p.dir); err != nil {
			return nil, err
		}
	}

	embedder, loadErr := p.load(p.dir, p.libPath, p.maxSeq)
	if loadErr == nil {
		return embedder, nil
	}

	if err := os.RemoveAll(p.dir); err != nil {
		return nil, fmt.Errorf("reset model cache: %v (load error: %v)", err, loadErr)
	}
	if err := p.download(ctx, p.repoID, p.dir); err != nil {
		return nil, err
	}
	return p.load(p.dir, p.libPath, p.maxSeq)
}
