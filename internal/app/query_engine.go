package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/index"
)

// ErrQuery marks a retrieval or generation failure during one turn.
var ErrQuery = errors.New("query failed")

const answerSystemPrompt = "You are a helpful assistant. Answer the user's question based only on the following context. If the context does not contain enough information, say so. Do not make up facts."

// answerQuestion retrieves the chunks most relevant to the question and asks
// the language model for an answer grounded in them. Answers are never
// cached; the same question is recomputed every time.
func answerQuestion(
	ctx context.Context,
	idx *index.VectorIndex,
	llm ai.ChatModel,
	embedder ai.EmbeddingModel,
	question string,
	topK int,
) (string, error) {
	queryVec, err := embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: embed question: %v", ErrQuery, err)
	}

	hits := idx.Search(queryVec, topK)
	if len(hits) == 0 {
		return "", fmt.Errorf("%w: no chunks retrieved", ErrQuery)
	}

	var contextBlock strings.Builder
	for _, hit := range hits {
		contextBlock.WriteString("\n---\n")
		contextBlock.WriteString(hit.Content)
	}
	contextBlock.WriteString("\n---")

	messages := []ai.ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: "Context:" + contextBlock.String() + "\n\nQuestion: " + question + "\n\nAnswer:"},
	}

	answer, err := llm.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQuery, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}
	return answer, nil
}
