package ai

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Embedder runs the sentence-transformer ONNX model locally and turns text
// into L2-normalized embedding vectors. One inference runs at a time; the
// underlying session buffers are not safe for concurrent Run calls.
type Embedder struct {
	mu sync.Mutex

	session    *ort.DynamicAdvancedSession
	tokenizer  *wordpieceTokenizer
	inputNames []string
}

// LoadEmbedder loads the model snapshot stored in dir. It fails if any
// artifact is missing or unreadable, which the provisioner treats as a
// corrupt cache.
func LoadEmbedder(dir, onnxLibPath string, maxSeq int) (*Embedder, error) {
	if maxSeq <= 2 {
		maxSeq = 256
	}

	tokenizer, err := loadTokenizer(filepath.Join(dir, "vocab.txt"), maxSeq)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	if onnxLibPath != "" {
		ort.SetSharedLibraryPath(onnxLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	modelPath := filepath.Join(dir, "onnx", "model.onnx")
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model has no inputs or outputs")
	}

	inputNames := make([]string, len(inputs))
	for i := range inputs {
		inputNames[i] = inputs[i].Name
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames,
		[]string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx new session: %w", err)
	}

	return &Embedder{
		session:    session,
		tokenizer:  tokenizer,
		inputNames: inputNames,
	}, nil
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := e.tokenizer.Encode(text)
	n := int64(len(ids))
	shape := ort.NewShape(1, n)

	inputs := make([]ort.Value, 0, len(e.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()

	for _, name := range e.inputNames {
		data := make([]int64, len(ids))
		switch name {
		case "input_ids":
			copy(data, ids)
		case "attention_mask":
			for i := range data {
				data[i] = 1
			}
		default:
			// token_type_ids: all zeros for a single segment.
		}
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx new input tensor %s: %w", name, err)
		}
		inputs = append(inputs, tensor)
	}

	outputs := []ort.Value{nil}

	e.mu.Lock()
	err := e.session.Run(inputs, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected onnx output type")
	}

	outShape := hidden.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected onnx output rank %d", len(outShape))
	}
	tokens := int(outShape[1])
	dim := int(outShape[2])
	if tokens == 0 || dim == 0 {
		return nil, fmt.Errorf("empty onnx output")
	}

	return meanPool(hidden.GetData(), tokens, dim), nil
}

// EmbedBatch embeds texts one at a time. The model takes a single sequence
// per run since inputs are not padded to a common length.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// Close releases the ONNX session. The embedder is unusable afterwards.
func (e *Embedder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
}

// meanPool averages token states into one vector and L2-normalizes it.
func meanPool(data []float32, tokens, dim int) []float32 {
	out := make([]float32, dim)
	for t := 0; t < tokens; t++ {
		base := t * dim
		for d := 0; d < dim; d++ {
			out[d] += data[base+d]
		}
	}
	var norm float64
	for d := range out {
		out[d] /= float32(tokens)
		norm += float64(out[d]) * float64(out[d])
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for d := range out {
			out[d] *= scale
		}
	}
	return out
}
