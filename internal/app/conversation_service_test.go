package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/index"
	"github.com/parardhadhar/parardha-insight-engine/internal/session"
)

type fakeLLM struct {
	answer string
	err    error
	calls  int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeProvider struct {
	llm   *fakeLLM
	emb   *fakeEmbedder
	err   error
	calls int
}

func (f *fakeProvider) Get(ctx context.Context, credential string) (ai.ChatModel, ai.EmbeddingModel, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.llm, f.emb, nil
}

type fakeBuilder struct {
	err   error
	calls int
}

func (f *fakeBuilder) Build(ctx context.Context, data []byte, fileName string, embedder ai.EmbeddingModel) (*index.VectorIndex, error) {
	f.calls++
	if f.err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrIndexing, f.err)
	}
	return index.New(fileName, []string{"chunk one", "chunk two"}, [][]float32{{1, 0}, {0, 1}}), nil
}

type fixture struct {
	svc      *ConversationService
	store    *session.Store
	provider *fakeProvider
	builder  *fakeBuilder
	llm      *fakeLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := session.NewStore(time.Hour)
	llm := &fakeLLM{answer: "grounded answer"}
	provider := &fakeProvider{llm: llm, emb: &fakeEmbedder{}}
	builder := &fakeBuilder{}
	svc := NewConversationService(store, provider, "gsk_test", builder, 2, nil)
	return &fixture{svc: svc, store: store, provider: provider, builder: builder, llm: llm}
}

func (f *fixture) startWithDocument(t *testing.T) *session.Session {
	t.Helper()
	sess := f.svc.StartSession()
	require.NoError(t, f.svc.Upload(sess.ID, []byte("%PDF-1.4"), "paper.pdf"))
	return sess
}

func TestAskWithoutDocumentRejectsButKeepsQuestion(t *testing.T) {
	f := newFixture(t)
	sess := f.svc.StartSession()

	_, err := f.svc.Ask(context.Background(), sess.ID, "what is this about?")
	require.ErrorIs(t, err, ErrNoDocument)

	// The question is appended before validation and survives the reject.
	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "what is this about?", msgs[0].Content)

	// Nothing downstream ran.
	assert.Zero(t, f.provider.calls)
	assert.Zero(t, f.builder.calls)
}

func TestAskIndexesAtMostOncePerSession(t *testing.T) {
	f := newFixture(t)
	sess := f.startWithDocument(t)
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, sess.ID, "first question")
	require.NoError(t, err)
	_, err = f.svc.Ask(ctx, sess.ID, "second question")
	require.NoError(t, err)

	assert.Equal(t, 1, f.builder.calls, "the second question reuses the index")
	assert.Equal(t, 2, f.llm.calls, "answers are never cached")
}

func TestAskTranscriptOrdering(t *testing.T) {
	f := newFixture(t)
	sess := f.startWithDocument(t)
	ctx := context.Background()

	const turns = 3
	for i := 0; i < turns; i++ {
		_, err := f.svc.Ask(ctx, sess.ID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	msgs := sess.Messages()
	require.Len(t, msgs, 2*turns)
	for i, msg := range msgs {
		if i%2 == 0 {
			assert.Equal(t, session.RoleUser, msg.Role)
			assert.Equal(t, fmt.Sprintf("question %d", i/2), msg.Content)
		} else {
			assert.Equal(t, session.RoleAssistant, msg.Role)
		}
	}
}

func TestAskProvisioningFailureHaltsTurn(t *testing.T) {
	f := newFixture(t)
	sess := f.startWithDocument(t)
	f.provider.err = fmt.Errorf("%w: snapshot corrupt", ai.ErrModelLoad)

	_, err := f.svc.Ask(context.Background(), sess.ID, "question")
	require.ErrorIs(t, err, ai.ErrModelLoad)

	msgs := sess.Messages()
	require.Len(t, msgs, 1, "question is kept, no assistant entry")
	assert.Zero(t, f.builder.calls)
}

func TestAskQueryFailureIsolatedPerTurn(t *testing.T) {
	f := newFixture(t)
	sess := f.startWithDocument(t)
	ctx := context.Background()

	f.llm.err = errors.New("upstream 500")
	_, err := f.svc.Ask(ctx, sess.ID, "doomed question")
	require.ErrorIs(t, err, ErrQuery)

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "doomed question", msgs[0].Content)

	// A later, different question on the same session still succeeds.
	f.llm.err = nil
	result, err := f.svc.Ask(ctx, sess.ID, "healthy question")
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, session.RoleAssistant, result.Messages[1].Role)
	assert.Equal(t, "grounded answer", result.Messages[1].Content)

	msgs = sess.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "doomed question", msgs[0].Content)
	assert.Equal(t, "healthy question", msgs[1].Content)
	assert.Equal(t, session.RoleAssistant, msgs[2].Role)
}

func TestAskIndexingFailureRetainsNoPartialIndex(t *testing.T) {
	f := newFixture(t)
	sess := f.startWithDocument(t)
	ctx := context.Background()

	f.builder.err = errors.New("unreadable pdf")
	_, err := f.svc.Ask(ctx, sess.ID, "question")
	require.ErrorIs(t, err, index.ErrIndexing)
	assert.Nil(t, sess.Index())

	// The next turn retries indexing from scratch.
	f.builder.err = nil
	_, err = f.svc.Ask(ctx, sess.ID, "question again")
	require.NoError(t, err)
	assert.Equal(t, 2, f.builder.calls)
	assert.NotNil(t, sess.Index())
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newFixture(t)
	sess := f.startWithDocument(t)

	_, err := f.svc.Ask(context.Background(), sess.ID, "   ")
	require.ErrorIs(t, err, ErrQuestionEmpty)
	assert.Empty(t, sess.Messages())
}

func TestAskUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ask(context.Background(), "missing", "question")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	sess := f.svc.StartSession()

	assert.ErrorIs(t, f.svc.Upload(sess.ID, nil, "empty.pdf"), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.Upload("missing", []byte("x"), "a.pdf"), session.ErrNotFound)
}
