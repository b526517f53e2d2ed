package app

import (
	"context"
	"errors"
	"strings"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/index"
	"github.com/parardhadhar/parardha-insight-engine/internal/session"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrQuestionEmpty = errors.New("question is empty")
	ErrNoDocument    = errors.New("no document uploaded for this session")
)

// ModelProvider resolves the chat and embedding handles for a credential.
type ModelProvider interface {
	Get(ctx context.Context, credential string) (ai.ChatModel, ai.EmbeddingModel, error)
}

// IndexBuilder turns an uploaded file into a queryable vector index.
type IndexBuilder interface {
	Build(ctx context.Context, data []byte, fileName string, embedder ai.EmbeddingModel) (*index.VectorIndex, error)
}

// ConversationService orchestrates a session's turns: it appends the user's
// question, resolves model handles, builds the document index on first use,
// runs retrieval-augmented answering, and appends the assistant's reply.
type ConversationService struct {
	sessions   *session.Store
	provider   ModelProvider
	credential string
	builder    IndexBuilder
	topK       int
	archive    *ArchiveService // nil when archiving is disabled
}

func NewConversationService(
	sessions *session.Store,
	provider ModelProvider,
	credential string,
	builder IndexBuilder,
	topK int,
	archive *ArchiveService,
) *ConversationService {
	if topK <= 0 {
		topK = 5
	}
	return &ConversationService{
		sessions:   sessions,
		provider:   provider,
		credential: credential,
		builder:    builder,
		topK:       topK,
		archive:    archive,
	}
}

// StartSession mints a fresh conversation.
func (s *ConversationService) StartSession() *session.Session {
	return s.sessions.Create()
}

// EndSession discards a conversation and everything it owns.
func (s *ConversationService) EndSession(id string) {
	s.sessions.Delete(id)
}

// History returns the session's transcript in submission order.
func (s *ConversationService) History(sessionID string) ([]session.Message, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages(), nil
}

// Upload stores the PDF for the session. The index is built lazily on the
// first question, not here. Uploading a second file replaces the stored
// bytes, but an index that was already built stays in place: questions keep
// answering against the first indexed document.
func (s *ConversationService) Upload(sessionID string, data []byte, fileName string) error {
	if len(data) == 0 {
		return ErrInvalidInput
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.SetDocument(&session.Document{Name: fileName, Data: data})
	return nil
}

// AskResult carries the user and assistant transcript entries of one
// successful turn.
type AskResult struct {
	Messages []session.Message `json:"messages"`
}

// Ask runs one conversation turn. The question is appended to the transcript
// before any validation, so it survives every failure mode; the assistant
// entry is appended only on success. A failed turn never poisons the next
// one.
func (s *ConversationService) Ask(ctx context.Context, sessionID, question string) (*AskResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrQuestionEmpty
	}

	userMsg := sess.Append(session.RoleUser, question)
	s.recordArchive(ctx, sessionID, userMsg)

	doc := sess.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}

	llm, embedder, err := s.provider.Get(ctx, s.credential)
	if err != nil {
		return nil, err
	}

	idx := sess.Index()
	if idx == nil {
		built, err := s.builder.Build(ctx, doc.Data, doc.Name, embedder)
		if err != nil {
			return nil, err
		}
		if !sess.SetIndex(built) {
			idx = sess.Index()
		} else {
			idx = built
		}
	}

	answer, err := answerQuestion(ctx, idx, llm, embedder, question, s.topK)
	if err != nil {
		return nil, err
	}

	assistantMsg := sess.Append(session.RoleAssistant, answer)
	s.recordArchive(ctx, sessionID, assistantMsg)

	return &AskResult{Messages: []session.Message{userMsg, assistantMsg}}, nil
}

func (s *ConversationService) recordArchive(ctx context.Context, sessionID string, msg session.Message) {
	if s.archive == nil {
		return
	}
	s.archive.Record(ctx, sessionID, msg)
}
